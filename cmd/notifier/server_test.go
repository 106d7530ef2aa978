package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/internal/notification"
)

func newTestServer(t *testing.T, checks map[string]healthCheck) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc := notification.NewService(
		notification.NewLogSender(zap.NewNop()),
		notification.Config{},
		notification.WithMetrics(notification.NewMetrics(reg)),
		notification.WithClock(func() time.Time { return time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC) }),
	)
	// Touch the collectors so /metrics has something to report.
	_, err := svc.SendEmail(context.Background(), notification.EmailMessage{
		To: "a@example.com", Subject: "hi", HTML: "<p>hi</p>",
	})
	require.NoError(t, err)

	return newServer(svc, reg, checks, zap.NewNop()).routes()
}

func TestServerRoutes(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		checks       map[string]healthCheck
		wantStatus   int
		wantType     string
		wantContains []string
	}{
		{
			name:         "health without dependencies",
			path:         "/health",
			wantStatus:   http.StatusOK,
			wantType:     "application/json",
			wantContains: []string{`"status":"ok"`},
		},
		{
			name: "health with failing dependency",
			path: "/health",
			checks: map[string]healthCheck{
				"redis":    func(context.Context) error { return nil },
				"postgres": func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus:   http.StatusServiceUnavailable,
			wantContains: []string{`"status":"degraded"`, `"postgres":"connection refused"`, `"redis":"ok"`},
		},
		{
			name:         "metrics",
			path:         "/metrics",
			wantStatus:   http.StatusOK,
			wantContains: []string{"monthlyclub_emails_sent_total", `kind="custom"`},
		},
		{
			name:         "preview html",
			path:         "/preview/payment_failed",
			wantStatus:   http.StatusOK,
			wantType:     "text/html; charset=utf-8",
			wantContains: []string{"<!DOCTYPE html>", "£25.50", "Your card was declined."},
		},
		{
			name:         "preview owner alert",
			path:         "/preview/owner_cron_report",
			wantStatus:   http.StatusOK,
			wantContains: []string{"sub_456: card_declined"},
		},
		{
			name:         "preview unknown kind",
			path:         "/preview/newsletter",
			wantStatus:   http.StatusNotFound,
			wantContains: []string{"unknown kind"},
		},
		{
			name:         "preview list",
			path:         "/preview",
			wantStatus:   http.StatusOK,
			wantContains: []string{"welcome", "owner_business_activated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.checks)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, w.Header().Get("Content-Type"))
			}
			for _, s := range tt.wantContains {
				assert.Contains(t, w.Body.String(), s)
			}
		})
	}
}

func TestPreviewJSON(t *testing.T) {
	h := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/preview/subscription_confirmed?format=json", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var msg notification.EmailMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, "alex@example.com", msg.To)
	assert.Equal(t, "Your subscription to Unlimited Classes is confirmed", msg.Subject)
	assert.Equal(t, notification.KindSubscriptionConfirmed, msg.Kind)
	assert.Contains(t, msg.HTML, "1 February 2025")
}

func TestPreviewRejectsPost(t *testing.T) {
	h := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/preview/welcome", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
