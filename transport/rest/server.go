package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Handler - the process-boundary endpoints: a fixed-OK health check and the
// metrics scrape handler. Every response permits any origin.
func Handler(metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metricsHandler)

	return allowAnyOrigin(mux)
}

// Start - serves the process-boundary endpoints until ctx is canceled.
func Start(ctx context.Context, port string, metricsHandler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      Handler(metricsHandler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// allowAnyOrigin - CORS middleware; the relay serves anonymous browser
// clients from any origin.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", "*")
		writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if req.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(writer, req)
	})
}
