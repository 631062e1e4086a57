package heartbeat

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "heartbeat-status",
		Method:      http.MethodGet,
		Path:        "/api/stores/{id}/heartbeat",
		Summary:     "Reconciliation state for a store",
		Tags:        []string{"heartbeat"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) checkOp() huma.Operation {
	return huma.Operation{
		OperationID: "heartbeat-check",
		Method:      http.MethodPost,
		Path:        "/api/stores/{id}/heartbeat/check",
		Summary:     "Run a store check now",
		Description: "Checks the store immediately, ignoring the interval and the failure ceiling.",
		Tags:        []string{"heartbeat"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resetOp() huma.Operation {
	return huma.Operation{
		OperationID: "heartbeat-reset",
		Method:      http.MethodPost,
		Path:        "/api/stores/{id}/heartbeat/reset",
		Summary:     "Clear a store's failure count",
		Tags:        []string{"heartbeat"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) conflictsOp() huma.Operation {
	return huma.Operation{
		OperationID: "heartbeat-conflicts",
		Method:      http.MethodGet,
		Path:        "/api/stores/{id}/conflicts",
		Summary:     "Conflict audit trail for a store",
		Description: "Lists local edits that were overwritten by newer store data.",
		Tags:        []string{"heartbeat"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) tickOp() huma.Operation {
	return huma.Operation{
		OperationID: "heartbeat-tick",
		Method:      http.MethodPost,
		Path:        "/internal/heartbeat/tick",
		Summary:     "Check all due stores",
		Description: "Internal endpoint for the scheduler; not for user traffic.",
		Tags:        []string{"internal"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.scheduler,
	}
}
