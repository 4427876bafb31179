// Package sms delivers OTP codes through the SMS Local HTTP API.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"asset-registry/backend/internal/mfa/dispatch"
)

const defaultTimeout = 15 * time.Second

// SMSLocalClient sends OTP SMS via SMS Local API.
// See https://www.smslocal.in/help/otp-sms/.
type SMSLocalClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewSMSLocalClient returns a client that uses the given API key and optional base URL/sender.
func NewSMSLocalClient(apiKey, baseURL, sender string) *SMSLocalClient {
	if baseURL == "" {
		baseURL = "https://app.smslocal.in/api/smsapi"
	}
	return &SMSLocalClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Send implements dispatch.Sender.
func (c *SMSLocalClient) Send(ctx context.Context, m dispatch.Message) error {
	return c.SendOTP(ctx, m.To, m.Code)
}

// SendOTP sends the OTP to phone via SMS Local (route=otp). Non-digits in phone are dropped.
// Does not log the OTP.
func (c *SMSLocalClient) SendOTP(ctx context.Context, phone, otp string) error {
	if c.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	numbers := digitsOnly(phone)
	if numbers == "" {
		return fmt.Errorf("sms: phone number has no digits")
	}
	body := map[string]interface{}{
		"route":     "otp",
		"numbers":   numbers,
		"variables": otp,
	}
	if c.Sender != "" {
		body["sender_id"] = c.Sender
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
