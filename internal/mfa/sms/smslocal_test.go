package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	identitydomain "asset-registry/backend/internal/identity/domain"
	"asset-registry/backend/internal/mfa/dispatch"
)

func TestNewSMSLocalClient_Defaults(t *testing.T) {
	client := NewSMSLocalClient("api-key", "", "")
	if client.BaseURL != "https://app.smslocal.in/api/smsapi" {
		t.Errorf("BaseURL = %q, want default", client.BaseURL)
	}
	if client.HTTPClient == nil || client.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("HTTPClient = %+v, want timeout %v", client.HTTPClient, defaultTimeout)
	}
	custom := NewSMSLocalClient("api-key", "https://custom.sms.local/api", "REG")
	if custom.BaseURL != "https://custom.sms.local/api" || custom.Sender != "REG" {
		t.Errorf("custom client = %+v", custom)
	}
}

func TestSend_RequestFormat(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "test-api-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	client := NewSMSLocalClient("test-api-key", server.URL, "REG")
	err := client.Send(context.Background(), dispatch.Message{
		Channel: identitydomain.ChannelSMS,
		To:      "+254 700-000-001",
		Code:    "123456",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if body["route"] != "otp" {
		t.Errorf("route = %v, want otp", body["route"])
	}
	if body["numbers"] != "254700000001" {
		t.Errorf("numbers = %v, want digits only", body["numbers"])
	}
	if body["variables"] != "123456" {
		t.Errorf("variables = %v, want 123456", body["variables"])
	}
	if body["sender_id"] != "REG" {
		t.Errorf("sender_id = %v, want REG", body["sender_id"])
	}
}

func TestSendOTP_Errors(t *testing.T) {
	ctx := context.Background()

	if err := NewSMSLocalClient("", "", "").SendOTP(ctx, "1234567890", "123456"); err == nil ||
		!strings.Contains(err.Error(), "API key not configured") {
		t.Errorf("missing key err = %v", err)
	}
	if err := NewSMSLocalClient("k", "", "").SendOTP(ctx, "n/a", "123456"); err == nil {
		t.Error("phone without digits should fail")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid request"}`))
	}))
	defer server.Close()
	err := NewSMSLocalClient("api-key", server.URL, "").SendOTP(ctx, "1234567890", "123456")
	if err == nil || !strings.Contains(err.Error(), "status=400") || !strings.Contains(err.Error(), "invalid request") {
		t.Errorf("non-200 err = %v", err)
	}
}

func TestSendOTP_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := NewSMSLocalClient("api-key", server.URL, "").SendOTP(ctx, "1234567890", "123456"); err == nil {
		t.Fatal("expected error when context deadline passes")
	}
}
