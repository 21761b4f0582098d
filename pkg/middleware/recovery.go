package middleware

import (
	"net/http"
	"runtime/debug"

	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/utils"

	"go.uber.org/zap"
)

// Recovery turns panics into 500 responses. Stack traces go to the log, and
// to the response body only in development.
func Recovery(cfg *config.Config, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					if cfg.IsDevelopment() {
						utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
							"INTERNAL_SERVER_ERROR", "Internal server error", debugString(rec))
						return
					}
					utils.WriteInternalServerErrorResponse(w, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func debugString(rec interface{}) string {
	if err, ok := rec.(error); ok {
		return err.Error()
	}
	if s, ok := rec.(string); ok {
		return s
	}
	return "panic"
}
