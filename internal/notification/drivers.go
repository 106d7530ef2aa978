package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DevSender writes each message to disk as an HTML file plus JSON metadata
// instead of sending it. Used for local development and template review.
type DevSender struct {
	dir string
	now func() time.Time
}

func NewDevSender(dir string) (*DevSender, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: dev sender directory is required", ErrInvalidConfig)
	}
	return &DevSender{dir: dir, now: time.Now}, nil
}

func (d *DevSender) Name() string { return "dev" }

type devMetadata struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Kind      Kind              `json:"kind,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

func (d *DevSender) Send(ctx context.Context, msg EmailMessage) (SendResult, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return SendResult{}, fmt.Errorf("create dev mail directory: %w", err)
	}

	id := uuid.NewString()
	now := d.now()
	label := string(msg.Kind)
	if label == "" {
		label = msg.Subject
	}
	base := fmt.Sprintf("%s_%s_%s", now.Format("2006_01_02_150405"), sanitizeFilename(label), id[:8])

	if err := os.WriteFile(filepath.Join(d.dir, base+".html"), []byte(msg.HTML), 0o644); err != nil {
		return SendResult{}, fmt.Errorf("write dev mail html: %w", err)
	}

	meta, err := json.MarshalIndent(devMetadata{
		ID:        id,
		Timestamp: now.Format(time.RFC3339),
		From:      msg.From,
		To:        msg.To,
		Subject:   msg.Subject,
		Kind:      msg.Kind,
		Tags:      msg.Tags,
	}, "", "  ")
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal dev mail metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0o644); err != nil {
		return SendResult{}, fmt.Errorf("write dev mail metadata: %w", err)
	}

	return SendResult{ID: id}, nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilename.ReplaceAllString(s, "")
	if len(s) > 60 {
		s = s[:60]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}

// LogSender only logs messages. Useful where no provider is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (l *LogSender) Name() string { return "log" }

func (l *LogSender) Send(ctx context.Context, msg EmailMessage) (SendResult, error) {
	id := uuid.NewString()
	l.logger.Info("email not sent (log sender)",
		zap.String("id", id),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("kind", string(msg.Kind)),
		zap.Int("html_bytes", len(msg.HTML)))
	return SendResult{ID: id}, nil
}

// SenderRegistry holds the senders available to a process, keyed by name.
type SenderRegistry struct {
	mu      sync.RWMutex
	senders map[string]Sender
}

func NewSenderRegistry() *SenderRegistry {
	return &SenderRegistry{senders: make(map[string]Sender)}
}

func (r *SenderRegistry) Register(sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[sender.Name()] = sender
}

func (r *SenderRegistry) Get(name string) (Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sender, ok := r.senders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSender, name)
	}
	return sender, nil
}
