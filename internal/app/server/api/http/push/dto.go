package push

import (
	"storesync/internal/domain/push"
)

type pushInput struct {
	StoreID string `path:"id" doc:"Store connection id"`
	Body    pushRequest
}

type pushRequest struct {
	ProductIDs []string `json:"product_ids,omitempty" doc:"Local product ids to push" maxItems:"20"`
	ArticleIDs []string `json:"article_ids,omitempty" doc:"Local article ids to push" maxItems:"20"`
	Force      bool     `json:"force,omitempty" doc:"Push even when the store copy is newer"`
}

type pushOutput struct {
	Body *push.Result
}
