package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// SendResult mirrors the provider outcome. Send never returns a Go error: callers
// inspect Success and treat a failure as a degraded side effect.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) SendResult
}

type Client struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewClient(apiURL, apiKey, from string, timeout time.Duration) *Client {
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func (c *Client) Send(ctx context.Context, msg Message) SendResult {
	if c.apiURL == "" || c.apiKey == "" {
		return SendResult{Error: "email provider is not configured"}
	}
	if msg.To == "" {
		return SendResult{Error: "recipient address is empty"}
	}

	body, err := json.Marshal(sendRequest{From: c.from, To: msg.To, Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text})
	if err != nil {
		return SendResult{Error: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return SendResult{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{Error: fmt.Sprintf("send request: %v", err)}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{Error: fmt.Sprintf("provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))}
	}

	var parsed sendResponse
	_ = json.Unmarshal(raw, &parsed)
	return SendResult{Success: true, MessageID: parsed.ID}
}
