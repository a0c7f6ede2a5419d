package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().SetBaseURL(server.URL)
	logger := zap.NewNop() // Use a no-op logger for tests

	c := &Client{
		client:  client,
		token:   "test_token",
		chatID:  "-1001",
		logger:  logger,
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}

	return c, server
}

func TestSendMessage(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var received map[string]interface{}
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bottest_token/sendMessage", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 777}}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		msgID, err := c.SendMessage(context.Background(), "hello", 0)

		assert.NoError(t, err)
		assert.Equal(t, int64(777), msgID)
		assert.Equal(t, "-1001", received["chat_id"])
		assert.Equal(t, "hello", received["text"])
		assert.Equal(t, "Markdown", received["parse_mode"])
		_, hasReply := received["reply_to_message_id"]
		assert.False(t, hasReply, "unthreaded message must omit reply_to_message_id")
	})

	t.Run("ThreadedReply", func(t *testing.T) {
		var received map[string]interface{}
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 778}}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		msgID, err := c.SendMessage(context.Background(), "update", 777)

		assert.NoError(t, err)
		assert.Equal(t, int64(778), msgID)
		assert.Equal(t, float64(777), received["reply_to_message_id"])
	})

	t.Run("APIError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok": false, "description": "Bad Request: can't parse entities"}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		msgID, err := c.SendMessage(context.Background(), "broken _markdown", 0)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send message")
		assert.Equal(t, int64(0), msgID)
	})
}

func TestGetMe(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest_token/getMe", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 0, "username": "trade_dashboard_bot"}}`))
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	username, err := c.GetMe(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "trade_dashboard_bot", username)
}

func TestEscapeMarkdown(t *testing.T) {
	testCases := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "Underscore", in: "GBP_USD", expected: "GBP\\_USD"},
		{name: "Asterisk", in: "risk*2", expected: "risk\\*2"},
		{name: "OpenBracket", in: "[gold]", expected: "\\[gold]"},
		{name: "Backtick", in: "tick`s", expected: "tick\\`s"},
		{name: "Clean", in: "EURUSD", expected: "EURUSD"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, EscapeMarkdown(tc.in))
		})
	}
}
