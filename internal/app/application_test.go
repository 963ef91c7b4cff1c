package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger/internal/config"
	"messenger/internal/session"
	"messenger/internal/uploads"
	"messenger/pkg/types"
)

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		ServiceName:    "messenger",
		Environment:    "test",
		LogLevel:       "info",
		APIBaseURL:     apiURL,
		GatewayURL:     "ws://localhost:0/ws",
		AuthToken:      "tok",
		UserID:         "u1",
		HTTPTimeout:    5 * time.Second,
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   2 * time.Second,
		EventBuffer:    16,
		TypingDebounce: 2 * time.Second,
		TypingTTL:      5 * time.Second,
	}
}

func TestNewApplicationRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("http://localhost:8081")
	cfg.UserID = ""

	_, err := NewApplication(cfg, zerolog.Nop())

	assert.Error(t, err)
}

func TestSendActiveRejectsEmptyInputLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	a, err := NewApplication(testConfig(srv.URL), zerolog.Nop())
	require.NoError(t, err)

	_, err = a.SendActive(context.Background(), "c1", "u2", "   ")

	assert.ErrorIs(t, err, session.ErrEmptyMessage)
	assert.False(t, called)
}

func TestSendActiveBlockedWhileUploading(t *testing.T) {
	uploadStarted := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/attachments" {
			close(uploadStarted)
			<-release
			_ = json.NewEncoder(w).Encode(types.AttachmentMeta{ID: "att-1", MIME: "text/plain", Size: 3})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	a, err := NewApplication(testConfig(srv.URL), zerolog.Nop())
	require.NoError(t, err)

	uploadDone := make(chan struct{})
	go func() {
		defer close(uploadDone)
		_, _ = a.Uploads().Upload(context.Background(), "a.txt", []byte("abc"), "text/plain")
	}()

	<-uploadStarted
	_, err = a.SendActive(context.Background(), "c1", "u2", "hello")
	assert.ErrorIs(t, err, uploads.ErrUploadsInFlight)

	close(release)
	<-uploadDone
	assert.False(t, a.Uploads().IsUploading())
}

func TestSendActiveAttachesPendingAndResets(t *testing.T) {
	var sent types.SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/attachments":
			_ = json.NewEncoder(w).Encode(types.AttachmentMeta{ID: "att-1", MIME: "text/plain", Size: 3})
		case "/messages":
			_ = json.NewDecoder(r.Body).Decode(&sent)
			_ = json.NewEncoder(w).Encode(types.Message{ID: "m1", ConversationID: sent.ConversationID, Text: sent.Text})
		default:
			_, _ = w.Write([]byte("[]"))
		}
	}))
	defer srv.Close()

	a, err := NewApplication(testConfig(srv.URL), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Store().Bootstrap(context.Background()))

	_, err = a.Uploads().Upload(context.Background(), "a.txt", []byte("abc"), "text/plain")
	require.NoError(t, err)

	msg, err := a.SendActive(context.Background(), "c1", "u2", "see attached")

	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, []string{"att-1"}, sent.AttachmentIDs)
	assert.Empty(t, a.Uploads().Pending(), "a successful send resets the pending set")
}

func TestSendActiveFailureKeepsPendingAttachments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/attachments":
			_ = json.NewEncoder(w).Encode(types.AttachmentMeta{ID: "att-1", MIME: "text/plain", Size: 3})
		case "/messages":
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "queue full"})
		default:
			_, _ = w.Write([]byte("[]"))
		}
	}))
	defer srv.Close()

	a, err := NewApplication(testConfig(srv.URL), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Store().Bootstrap(context.Background()))

	_, err = a.Uploads().Upload(context.Background(), "a.txt", []byte("abc"), "text/plain")
	require.NoError(t, err)

	_, err = a.SendActive(context.Background(), "c1", "u2", "see attached")

	require.Error(t, err)
	assert.Len(t, a.Uploads().Pending(), 1, "a failed send keeps the attachments for the retry")
}
