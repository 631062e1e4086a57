package token

import (
	"storesync/internal/domain/session"
)

type issueInput struct {
	Body issueRequest
}

type issueRequest struct {
	UserID   int    `json:"user_id" doc:"Owner of the new token" minimum:"1"`
	Name     string `json:"name,omitempty" doc:"Label shown in token listings"`
	TTLHours int    `json:"ttl_hours,omitempty" doc:"Token lifetime in hours; 0 means no expiry" minimum:"0"`
}

type issueOutput struct {
	Body issueResponse
}

type issueResponse struct {
	// Token is shown once; only its digest is stored.
	Token string         `json:"token"`
	Info  *session.Token `json:"info"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Tokens []*session.Token `json:"tokens"`
}

type revokeInput struct {
	ID string `path:"id" doc:"Token id"`
}

type revokeOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}
