package main

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/internal/notification"
	"github.com/monthlyclub/monthly-club/pkg/jsonutil"
)

type healthCheck func(ctx context.Context) error

// server exposes the operational endpoints of the notifier.
type server struct {
	svc      *notification.Service
	gatherer prometheus.Gatherer
	checks   map[string]healthCheck
	logger   *zap.Logger
}

func newServer(svc *notification.Service, gatherer prometheus.Gatherer, checks map[string]healthCheck, logger *zap.Logger) *server {
	return &server{svc: svc, gatherer: gatherer, checks: checks, logger: logger}
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/preview", s.listPreviews).Methods(http.MethodGet)
	r.HandleFunc("/preview/{kind}", s.preview).Methods(http.MethodGet)
	return otelhttp.NewHandler(r, "notifier")
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
	}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	jsonutil.WriteJSON(w, status, resp)
}

func (s *server) listPreviews(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0, len(notification.Kinds))
	for _, k := range notification.Kinds {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	jsonutil.WriteJSON(w, http.StatusOK, map[string][]string{"kinds": kinds})
}

// preview renders a sample email. ?format=json returns the whole message
// instead of the HTML body.
func (s *server) preview(w http.ResponseWriter, r *http.Request) {
	kind := notification.Kind(mux.Vars(r)["kind"])

	msg, err := s.svc.Preview(kind)
	if err != nil {
		if errors.Is(err, notification.ErrUnknownKind) {
			jsonutil.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("preview failed", zap.Error(err), zap.String("kind", string(kind)))
		jsonutil.WriteError(w, http.StatusInternalServerError, "failed to render preview")
		return
	}

	if r.URL.Query().Get("format") == "json" {
		jsonutil.WriteJSON(w, http.StatusOK, msg)
		return
	}
	jsonutil.WriteHTML(w, http.StatusOK, msg.HTML)
}
