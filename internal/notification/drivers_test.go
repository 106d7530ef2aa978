package notification

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDevSenderWritesHTMLAndMetadata(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "emails")
	sender, err := NewDevSender(dir)
	require.NoError(t, err)
	sender.now = func() time.Time { return time.Date(2025, time.January, 20, 9, 30, 15, 0, time.UTC) }

	msg := EmailMessage{
		From:    "Club <club@example.com>",
		To:      "alex@example.com",
		Subject: "Payment received",
		HTML:    "<p>Thanks</p>",
		Kind:    KindPaymentSucceeded,
	}
	res, err := sender.Send(context.Background(), msg)
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	prefix := "2025_01_20_093015_payment_succeeded_" + res.ID[:8]
	html, err := os.ReadFile(filepath.Join(dir, prefix+".html"))
	require.NoError(t, err)
	assert.Equal(t, msg.HTML, string(html))

	raw, err := os.ReadFile(filepath.Join(dir, prefix+".json"))
	require.NoError(t, err)
	var meta devMetadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, res.ID, meta.ID)
	assert.Equal(t, "alex@example.com", meta.To)
	assert.Equal(t, "Payment received", meta.Subject)
	assert.Equal(t, KindPaymentSucceeded, meta.Kind)
	assert.Equal(t, "2025-01-20T09:30:15Z", meta.Timestamp)
}

func TestNewDevSenderRequiresDir(t *testing.T) {
	_, err := NewDevSender("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Payment received", "payment_received"},
		{"Hi <Sam>! / ../etc", "hi_sam__..etc"},
		{"", "email"},
		{"???", "email"},
		{strings.Repeat("a", 80), strings.Repeat("a", 60)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core))

	res, err := sender.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "Hi", HTML: "<p>x</p>", Kind: KindTest})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a@example.com", fields["to"])
	assert.Equal(t, "Hi", fields["subject"])
	assert.Equal(t, res.ID, fields["id"])
	assert.NotContains(t, fields, "html")
}

func TestSenderRegistry(t *testing.T) {
	reg := NewSenderRegistry()
	reg.Register(NewLogSender(nil))

	s, err := reg.Get("log")
	require.NoError(t, err)
	assert.Equal(t, "log", s.Name())

	_, err = reg.Get("smtp")
	assert.ErrorIs(t, err, ErrUnknownSender)
}
