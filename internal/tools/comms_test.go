package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendEmail_GuardsUnresolvedRecipient(t *testing.T) {
	c := NewCommsCapability(SMTPConfig{Host: "smtp.example.com", Port: 587, User: "agent"})
	ctx := context.Background()

	for _, to := range []string{"", "<recipient>"} {
		_, err := c.Execute(ctx, "send_email", map[string]any{"to": to, "subject": "x"})
		if err == nil {
			t.Errorf("recipient %q accepted", to)
		}
	}
}

func TestSendEmail_RequiresSMTPConfig(t *testing.T) {
	c := NewCommsCapability(SMTPConfig{})
	_, err := c.Execute(context.Background(), "send_email", map[string]any{"to": "a@example.com"})
	if err == nil {
		t.Error("unconfigured smtp accepted")
	}
}

func TestSendMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
	}))
	defer srv.Close()

	c := NewCommsCapability(SMTPConfig{})
	out, err := c.Execute(context.Background(), "send_message", map[string]any{
		"destination": srv.URL,
		"message":     "the kettle is on",
	})
	if err != nil {
		t.Fatalf("send_message failed: %v", err)
	}
	if out != "message sent" {
		t.Errorf("result = %v", out)
	}
	if got["text"] != "the kettle is on" {
		t.Errorf("payload = %v", got)
	}
}

func TestSendMessage_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewCommsCapability(SMTPConfig{})
	_, err := c.Execute(context.Background(), "send_message", map[string]any{
		"destination": srv.URL,
		"message":     "x",
	})
	if err == nil {
		t.Error("HTTP 403 treated as success")
	}
}
