package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/logger"
	"chatforge-backend/internal/queue"

	"go.uber.org/zap"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MakeHTTPHandleFunc runs f on the request worker pool. routeMiddleware runs
// before the job is queued, after CORS and request logging.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, routeMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Name: r.Method + " " + r.URL.Path,
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		if !s.requestQueueManager.EnqueueJob(job) {
			WriteJSON(w, http.StatusServiceUnavailable, ApiError{Error: "Server is shutting down."})
			return
		}

		if err := <-errc; err != nil {
			writeError(w, r, err)
		}
	}

	return s.wrap(baseHandler, routeMiddleware)
}

// MakeStreamHandleFunc runs f on the connection goroutine. It is used for
// long lived responses such as server-sent events that must not hold a
// pool worker.
func (s *APIServer) MakeStreamHandleFunc(f apiFunc, routeMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			writeError(w, r, err)
		}
	}

	return s.wrap(baseHandler, routeMiddleware)
}

func (s *APIServer) wrap(baseHandler http.HandlerFunc, routeMiddleware []middleware.Middleware) http.HandlerFunc {
	routed := middleware.Chain(baseHandler, routeMiddleware...)

	finalHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		routed(w, r)
	}

	return middleware.Chain(finalHandler, s.cors, middleware.Logging())
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.ErrorLog != nil {
			if httpErr.StatusCode >= http.StatusInternalServerError {
				log.Error("request failed", zap.Int("status", httpErr.StatusCode), zap.Error(httpErr.ErrorLog))
			} else {
				log.Debug("request rejected", zap.Int("status", httpErr.StatusCode), zap.Error(httpErr.ErrorLog))
			}
		}
		WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message, Fields: httpErr.Fields})
		return
	}

	log.Error("request failed", zap.Error(err))
	WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
}
