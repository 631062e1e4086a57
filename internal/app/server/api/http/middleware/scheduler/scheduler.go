package scheduler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Scheduler guards internal tick endpoints with a shared static token.
// These endpoints are driven by cron, not by users.
type Scheduler struct {
	token string
	log   *slog.Logger
}

func New(token string, log *slog.Logger) *Scheduler {
	return &Scheduler{
		token: token,
		log:   log.With(slog.String("component", "scheduler_middleware")),
	}
}

func (s *Scheduler) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")

		if s.token == "" || !ok ||
			subtle.ConstantTimeCompare([]byte(raw), []byte(s.token)) != 1 {
			s.log.Warn("scheduler token rejected", "path", ctx.URL().Path)
			ctx.SetStatus(http.StatusUnauthorized)
			ctx.SetHeader("Content-Type", "application/json")
			_ = json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
				"error": "Unauthorized",
			})
			return
		}

		next(ctx)
	}
}
