package token

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) issueOp() huma.Operation {
	return huma.Operation{
		OperationID: "tokens-issue",
		Method:      http.MethodPost,
		Path:        "/internal/tokens",
		Summary:     "Issue an API token for a user",
		Description: "Internal endpoint for the provisioning system; the raw token is returned once.",
		Tags:        []string{"internal"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.scheduler,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "tokens-list",
		Method:      http.MethodGet,
		Path:        "/api/tokens",
		Summary:     "List own API tokens",
		Tags:        []string{"tokens"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) revokeOp() huma.Operation {
	return huma.Operation{
		OperationID: "tokens-revoke",
		Method:      http.MethodDelete,
		Path:        "/api/tokens/{id}",
		Summary:     "Revoke an API token",
		Tags:        []string{"tokens"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
