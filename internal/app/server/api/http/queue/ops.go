package queue

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "queue-list",
		Method:      http.MethodGet,
		Path:        "/api/stores/{id}/queue",
		Summary:     "List sync jobs for a store",
		Tags:        []string{"queue"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statsOp() huma.Operation {
	return huma.Operation{
		OperationID: "queue-stats",
		Method:      http.MethodGet,
		Path:        "/api/stores/{id}/queue/stats",
		Summary:     "Queue counters per status",
		Tags:        []string{"queue"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "queue-find",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{id}",
		Summary:     "Get one sync job",
		Tags:        []string{"queue"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) logsOp() huma.Operation {
	return huma.Operation{
		OperationID: "queue-logs",
		Method:      http.MethodGet,
		Path:        "/api/stores/{id}/logs",
		Summary:     "Sync audit trail for a store",
		Tags:        []string{"queue"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) tickOp() huma.Operation {
	return huma.Operation{
		OperationID: "queue-tick",
		Method:      http.MethodPost,
		Path:        "/internal/queue/tick",
		Summary:     "Process one batch of due sync jobs",
		Description: "Internal endpoint for the scheduler; not for user traffic.",
		Tags:        []string{"internal"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.scheduler,
	}
}
