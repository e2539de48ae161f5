package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ctxRequestIDKey struct{}

// requestIDFrom returns the request id injected by the middleware
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(ctxRequestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// requestIDMiddleware tags every request with a correlation id, echoed in
// the X-Request-ID response header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxRequestIDKey{}, id)))
	})
}

// NewRouter builds the HTTP route table
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ingest", h.Ingest).Methods(http.MethodPost)
	r.HandleFunc("/devices", h.ListDevices).Methods(http.MethodGet)
	r.HandleFunc("/devices/near-city/search", h.DevicesNearCity).Methods(http.MethodGet)
	r.HandleFunc("/devices/{id}", h.GetDevice).Methods(http.MethodGet)
	r.HandleFunc("/messages", h.ListMessages).Methods(http.MethodGet)

	return r
}

// NewServer creates an http.Server bound to the fx lifecycle
func NewServer(lc fx.Lifecycle, logger *zap.Logger, port int, router *mux.Router) *http.Server {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting http server", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping http server")
			return srv.Shutdown(ctx)
		},
	})

	return srv
}
