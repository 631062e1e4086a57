package store

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) connectOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-connect",
		Method:      http.MethodPost,
		Path:        "/api/stores",
		Summary:     "Connect a store",
		Description: "Validates and stores encrypted credentials for an external store.",
		Tags:        []string{"stores"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-list",
		Method:      http.MethodGet,
		Path:        "/api/stores",
		Summary:     "List connected stores",
		Tags:        []string{"stores"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-find",
		Method:      http.MethodGet,
		Path:        "/api/stores/{id}",
		Summary:     "Get one store connection",
		Tags:        []string{"stores"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-delete",
		Method:      http.MethodDelete,
		Path:        "/api/stores/{id}",
		Summary:     "Disconnect a store",
		Tags:        []string{"stores"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) platformsOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-platforms",
		Method:      http.MethodGet,
		Path:        "/api/platforms",
		Summary:     "List supported platforms",
		Tags:        []string{"stores"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
