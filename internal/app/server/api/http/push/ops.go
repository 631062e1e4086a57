package push

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) pushOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-push",
		Method:      http.MethodPost,
		Path:        "/api/stores/{id}/push",
		Summary:     "Queue local changes for sync",
		Description: "Queues the dirty fields of the given products and articles for push to the store.",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
