// Package waha is a minimal client for the messaging session provider's REST
// API: session lifecycle, chat history, and media download.
package waha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/example/studysync/internal/application"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the provider endpoint, e.g. "http://waha:3000".
	BaseURL string
	// Session is the logical session name.
	Session string
	// ChatID selects the chat whose history is fetched.
	ChatID string
	// APIKey is sent as the X-Api-Key header on every request.
	APIKey string
	// InternalHost replaces "localhost" in media URLs. The provider mints
	// media links for external consumers; inside an isolated network
	// namespace they must point at the service hostname instead.
	InternalHost string
	// MessageLimit caps the chat history fetch.
	MessageLimit int
	// HTTPClient overrides the default client (15s timeout).
	HTTPClient *http.Client
}

// Client talks to the messaging provider. The auth header is client state,
// carried per instance, never a process-wide variable.
type Client struct {
	baseURL      string
	session      string
	chatID       string
	apiKey       string
	internalHost string
	limit        int
	http         *http.Client
}

// NewClient constructs a Client with defaults filled in.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://waha:3000"
	}
	if opts.Session == "" {
		opts.Session = "default"
	}
	if opts.InternalHost == "" {
		opts.InternalHost = "waha"
	}
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = 100
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:      opts.BaseURL,
		session:      opts.Session,
		chatID:       opts.ChatID,
		apiKey:       opts.APIKey,
		internalHost: opts.InternalHost,
		limit:        opts.MessageLimit,
		http:         opts.HTTPClient,
	}
}

// StartSession asks the provider to start the configured session. The call is
// idempotent on the provider side; starting an already-running session is
// harmless.
func (c *Client) StartSession(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/api/sessions/%s/start", c.baseURL, url.PathEscape(c.session))
	resp, err := c.do(ctx, http.MethodPost, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("waha: start session: %s", resp.Status)
	}
	return nil
}

// SessionStatus returns the status of the first session reported by the
// provider.
func (c *Client) SessionStatus(ctx context.Context) (string, error) {
	endpoint := c.baseURL + "/api/sessions?all=true"
	resp, err := c.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("waha: session status: %s", resp.Status)
	}

	var sessions []struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return "", fmt.Errorf("waha: decode sessions: %w", err)
	}
	if len(sessions) == 0 {
		return "", fmt.Errorf("waha: no sessions reported")
	}
	return sessions[0].Status, nil
}

type wireMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp"`
	Body      string `json:"body"`
	HasMedia  bool   `json:"hasMedia"`
	Media     *struct {
		URL      string `json:"url"`
		Mimetype string `json:"mimetype"`
	} `json:"media"`
}

// Messages fetches the most recent chat messages, newest-last as returned by
// the provider. Timestamps on the wire are epoch seconds.
func (c *Client) Messages(ctx context.Context) ([]application.Message, error) {
	endpoint := fmt.Sprintf("%s/api/%s/chats/%s/messages?limit=%s",
		c.baseURL, url.PathEscape(c.session), url.PathEscape(c.chatID), strconv.Itoa(c.limit))
	resp, err := c.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("waha: fetch messages: %s", resp.Status)
	}

	var wire []wireMessage
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("waha: decode messages: %w", err)
	}

	messages := make([]application.Message, 0, len(wire))
	for _, m := range wire {
		msg := application.Message{
			ID:        m.ID,
			From:      m.From,
			Timestamp: time.Unix(m.Timestamp, 0),
			Body:      m.Body,
		}
		if m.HasMedia && m.Media != nil {
			msg.Media = &application.Media{URL: m.Media.URL, Mimetype: m.Media.Mimetype}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// DownloadMedia fetches attachment bytes, rewriting a localhost media URL to
// the internal service hostname first.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	rewritten, err := c.rewriteMediaURL(mediaURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, rewritten)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("waha: download media: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) rewriteMediaURL(mediaURL string) (string, error) {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return "", fmt.Errorf("waha: media url: %w", err)
	}
	if parsed.Hostname() == "localhost" {
		host := c.internalHost
		if port := parsed.Port(); port != "" {
			host = host + ":" + port
		}
		parsed.Host = host
	}
	return parsed.String(), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("waha: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("waha: %w", err)
	}
	return resp, nil
}
