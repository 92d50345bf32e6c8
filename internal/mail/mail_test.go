package mail

import (
	"strings"
	"testing"
)

func TestNewSMTPValidation(t *testing.T) {
	if _, err := NewSMTP("", "587", "noreply@example.com"); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := NewSMTP("smtp.example.com", "587", ""); err == nil {
		t.Fatal("expected error for missing sender")
	}
	if _, err := NewSMTP("smtp.example.com", "587", "noreply@example.com"); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestMessageFormat(t *testing.T) {
	msg := string(Message("noreply@example.com", "alice@example.com", "Hello", "<p>Hi</p>"))

	for _, want := range []string{
		"From: noreply@example.com\r\n",
		"To: alice@example.com\r\n",
		"Subject: Hello\r\n",
		"Content-Type: text/html",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}

	headerEnd := strings.Index(msg, "\r\n\r\n")
	if headerEnd < 0 {
		t.Fatal("missing blank line between headers and body")
	}
	if !strings.Contains(msg[headerEnd:], "<p>Hi</p>") {
		t.Fatal("body not present after headers")
	}
}
