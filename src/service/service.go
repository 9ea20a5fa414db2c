package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mosaicnetworks/rtinet/src/node"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Service exposes the state of a relay node over HTTP.
type Service struct {
	bindAddress string
	node        *node.Node
	gatherer    prometheus.Gatherer
	timeout     time.Duration
	logger      *logrus.Entry

	mux    *http.ServeMux
	server *http.Server
}

// NewService returns a Service for n. Metrics are read from gatherer, which
// is usually the registry the node was created with.
func NewService(bindAddress string,
	n *node.Node,
	gatherer prometheus.Gatherer,
	timeout time.Duration,
	logger *logrus.Entry,
) *Service {

	service := Service{
		bindAddress: bindAddress,
		node:        n,
		gatherer:    gatherer,
		timeout:     timeout,
		logger:      logger,
		mux:         http.NewServeMux(),
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.mux,
	}

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/federations", s.makeHandler(s.GetFederations))
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the handler serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call. It returns nil after
// Shutdown.
func (s *Service) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.node.GetStats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetFederations lists the live federation executions of the relay tree.
func (s *Service) GetFederations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	infos, err := s.node.Federations(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Listing federations")

		http.Error(w, err.Error(), http.StatusServiceUnavailable)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(infos)
}
