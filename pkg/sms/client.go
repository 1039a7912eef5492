package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, to, body string) SendResult
}

// Client talks to a Twilio-compatible Messages endpoint.
type Client struct {
	apiURL     string
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
}

func NewClient(apiURL, accountSID, authToken, from string, timeout time.Duration) *Client {
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type messageResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

func (c *Client) Send(ctx context.Context, to, body string) SendResult {
	if c.apiURL == "" || c.accountSID == "" || c.authToken == "" {
		return SendResult{Error: "sms provider is not configured"}
	}
	if to == "" {
		return SendResult{Error: "recipient phone is empty"}
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.apiURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{Error: fmt.Sprintf("send request: %v", err)}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed messageResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return SendResult{Error: fmt.Sprintf("provider returned %d: %s", resp.StatusCode, msg)}
	}
	return SendResult{Success: true, MessageID: parsed.SID}
}
