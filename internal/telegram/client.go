package telegram

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-dashboard-go/internal/config"
)

const baseURL = "https://api.telegram.org"

// ClientInterface defines the interface for the Telegram Bot API client.
type ClientInterface interface {
	GetMe(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, text string, replyTo int64) (int64, error)
}

// Client is a client for the Telegram Bot API. It sends Markdown
// messages to a single configured chat and implements ClientInterface.
type Client struct {
	client  *resty.Client
	token   string
	chatID  string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Telegram Bot API client.
func NewClient(cfg *config.Telegram, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(baseURL)

	// Telegram throttles bots well below its hard limits in group
	// chats, so the limiter is deliberately conservative.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		logger:  logger,
		limiter: limiter,
	}
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool    `json:"ok"`
	Description string  `json:"description"`
	Result      message `json:"result"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// sendMessageRequest is the payload for the sendMessage method.
type sendMessageRequest struct {
	ChatID           string `json:"chat_id"`
	Text             string `json:"text"`
	ParseMode        string `json:"parse_mode"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// GetMe fetches the bot's own identity. Used as a startup connectivity
// check; returns the bot username.
func (c *Client) GetMe(ctx context.Context) (string, error) {
	req := c.client.R().
		SetContext(ctx).
		SetResult(&apiResponse{})

	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/bot%s/getMe", c.token), req)
	if err != nil {
		return "", fmt.Errorf("failed to get bot identity: %w", err)
	}

	result := resp.Result().(*apiResponse)
	if !result.OK {
		return "", fmt.Errorf("telegram rejected getMe: %s", result.Description)
	}
	return result.Result.Username, nil
}

// SendMessage posts a Markdown message to the configured chat and
// returns the provider-assigned message id. A non-zero replyTo threads
// the message as a reply.
func (c *Client) SendMessage(ctx context.Context, text string, replyTo int64) (int64, error) {
	body := sendMessageRequest{
		ChatID:           c.chatID,
		Text:             text,
		ParseMode:        "Markdown",
		ReplyToMessageID: replyTo,
	}

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(&body).
		SetResult(&apiResponse{})

	resp, err := c.doRequest(ctx, "POST", fmt.Sprintf("/bot%s/sendMessage", c.token), req)
	if err != nil {
		c.logger.Error("Failed to send telegram message", zap.Error(err))
		return 0, fmt.Errorf("failed to send message: %w", err)
	}

	result := resp.Result().(*apiResponse)
	if !result.OK {
		return 0, fmt.Errorf("telegram rejected message: %s", result.Description)
	}
	return result.Result.MessageID, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Telegram request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// markdownEscaper escapes the Markdown control characters Telegram
// treats as formatting. An unbalanced underscore or asterisk in a
// symbol name would otherwise make the API reject the whole message.
var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"`", "\\`",
)

// EscapeMarkdown escapes user-supplied text for safe interpolation into
// a Markdown message template.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
