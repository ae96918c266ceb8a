package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/database"
	"chatforge-backend/internal/logger"
	"chatforge-backend/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	db                  *database.Database
	routeRegistrars     []RouteRegistrar
	cors                middleware.Middleware
	metrics             *metrics
}

// NewAPIServer builds a server whose handlers run on rqm. cors may be nil,
// in which case only the local dashboard origin is allowed.
func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, db *database.Database, cors middleware.Middleware, registrars ...RouteRegistrar) *APIServer {
	if cors == nil {
		cors = middleware.CORS(middleware.DefaultCORSConfig([]string{"http://localhost:3000"}))
	}

	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		db:                  db,
		routeRegistrars:     registrars,
		cors:                cors,
		metrics:             newMetrics(prometheus.DefaultRegisterer, listenAddr, rqm),
	}
}

// Routes assembles the instrumented handler with every registrar and /metrics.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	return s.metrics.instrument(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	log := logger.Get().With(zap.String("listen_addr", s.listenAddr))

	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *APIServer) Database() *database.Database {
	return s.db
}
