package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"os"
	"path/filepath"
	"time"
)

// SMTPConfig carries outbound mail settings for the comms capability.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// CommsCapability sends email with attachments and posts webhook
// messages. Delivery itself is best effort; the caller sees a boolean
// style result or an error.
type CommsCapability struct {
	SMTP   SMTPConfig
	client *http.Client
}

func NewCommsCapability(cfg SMTPConfig) *CommsCapability {
	return &CommsCapability{
		SMTP:   cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CommsCapability) Name() string {
	return "comms"
}

func (c *CommsCapability) Description() string {
	return "Communication: send an email with an attachment, post a message to a webhook."
}

func (c *CommsCapability) Execute(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "send_email":
		return c.sendEmail(
			strParam(params, "to"),
			strParam(params, "subject"),
			strParam(params, "attachment"),
		)
	case "send_message":
		return c.sendMessage(ctx, strParam(params, "destination"), strParam(params, "message"))
	default:
		return nil, fmt.Errorf("unknown comms action %q", action)
	}
}

func (c *CommsCapability) sendEmail(to, subject, attachment string) (any, error) {
	if to == "" || to == "<recipient>" {
		return nil, fmt.Errorf("no recipient resolved for email")
	}
	if c.SMTP.Host == "" || c.SMTP.User == "" {
		return nil, fmt.Errorf("smtp is not configured")
	}

	from := c.SMTP.From
	if from == "" {
		from = c.SMTP.User
	}

	var msg bytes.Buffer
	boundary := "ghosthand-attachment"
	fmt.Fprintf(&msg, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\nContent-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n", boundary)
	fmt.Fprintf(&msg, "Sent by your assistant.\r\n\r\n")

	if attachment != "" {
		data, err := os.ReadFile(attachment)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment: %w", err)
		}
		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		fmt.Fprintf(&msg, "Content-Type: application/octet-stream\r\n")
		fmt.Fprintf(&msg, "Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(attachment))
		encoded := base64.StdEncoding.EncodeToString(data)
		for len(encoded) > 76 {
			msg.WriteString(encoded[:76] + "\r\n")
			encoded = encoded[76:]
		}
		msg.WriteString(encoded + "\r\n")
	}
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", c.SMTP.Host, c.SMTP.Port)
	auth := smtp.PlainAuth("", c.SMTP.User, c.SMTP.Pass, c.SMTP.Host)
	if err := smtp.SendMail(addr, auth, from, []string{to}, msg.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	return fmt.Sprintf("email sent to %s", to), nil
}

// sendMessage posts a JSON payload with a text field to any webhook
// style destination.
func (c *CommsCapability) sendMessage(ctx context.Context, destination, message string) (any, error) {
	if destination == "" {
		return nil, fmt.Errorf("destination required")
	}
	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("failed to send message: HTTP %d", resp.StatusCode)
	}
	return "message sent", nil
}
