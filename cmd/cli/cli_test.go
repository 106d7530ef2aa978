package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/internal/notification"
)

func TestReadPayload(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		data    string
		want    string
		wantErr bool
	}{
		{name: "inline", data: `{"email":"a@example.com"}`, want: `{"email":"a@example.com"}`},
		{name: "stdin", stdin: `{"name":"Sam"}`, data: "-", want: `{"name":"Sam"}`},
		{name: "invalid", data: `{"email":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPayload(strings.NewReader(tt.stdin), tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitList(" a:9092, ,b:9092 "))
	assert.Nil(t, splitList(""))
}

func TestTestMessage(t *testing.T) {
	svc := notification.NewService(notification.NewLogSender(zap.NewNop()), notification.Config{})

	msg, err := testMessage(svc, notification.KindTest)
	require.NoError(t, err)
	assert.Equal(t, notification.KindTest, msg.Kind)
	assert.Contains(t, msg.HTML, "<title>Test email</title>")

	msg, err = testMessage(svc, notification.KindWelcome)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Monthly Club!", msg.Subject)

	_, err = testMessage(svc, "nope")
	assert.ErrorIs(t, err, notification.ErrUnknownKind)
}

func TestCLISender(t *testing.T) {
	s, err := cliSender("log", "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "log", s.Name())

	s, err = cliSender("dev", t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "dev", s.Name())

	_, err = cliSender("smtp", "", zap.NewNop())
	assert.ErrorIs(t, err, notification.ErrUnknownSender)
}

func TestPreviewCommandWritesEveryKind(t *testing.T) {
	dir := t.TempDir()
	cmd := newPreviewCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--out", dir})

	require.NoError(t, cmd.Execute())

	for _, kind := range notification.Kinds {
		b, err := os.ReadFile(filepath.Join(dir, string(kind)+".html"))
		require.NoError(t, err, kind)
		assert.NotEmpty(t, b, kind)
	}
	assert.Equal(t, len(notification.Kinds), strings.Count(out.String(), "\n"))
}

func TestPreviewCommandSingleKind(t *testing.T) {
	cmd := newPreviewCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"payment_succeeded"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "£25.50")
	assert.Contains(t, out.String(), "<!DOCTYPE html>")
}
