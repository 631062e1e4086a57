package importapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) startOp() huma.Operation {
	return huma.Operation{
		OperationID: "import-start",
		Method:      http.MethodPost,
		Path:        "/api/stores/{id}/import",
		Summary:     "Start or resume a store import",
		Description: "Counts the catalog, plans chunks for large stores and imports small ones immediately.",
		Tags:        []string{"import"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) runOp() huma.Operation {
	return huma.Operation{
		OperationID: "import-run",
		Method:      http.MethodPost,
		Path:        "/api/imports/{jobID}/run",
		Summary:     "Process pending import chunks",
		Description: "Runs chunks until done or out of time budget. Invoke again while can_resume is true.",
		Tags:        []string{"import"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "import-status",
		Method:      http.MethodGet,
		Path:        "/api/imports/{jobID}",
		Summary:     "Import job progress",
		Tags:        []string{"import"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
