// Package messaging builds the outbound WhatsApp deep link for a customer
// and hands it to the platform's default link opener.
package messaging

import (
	"bytes"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"text/template"
)

const (
	// DefaultBaseURL is the click-to-chat endpoint.
	DefaultBaseURL = "https://wa.me/"
	// DefaultGreeting is rendered with the customer's name.
	DefaultGreeting = "Hola {{.Name}}!"
)

// Recipient is the data available to the greeting template.
type Recipient struct {
	Name  string
	Code  string
	Phone string
}

// Composer renders greetings and deep links.
type Composer struct {
	base     string
	greeting *template.Template
}

// NewComposer parses the greeting template. Empty arguments use the defaults.
func NewComposer(baseURL, greeting string) (*Composer, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if strings.TrimSpace(greeting) == "" {
		greeting = DefaultGreeting
	}
	tmpl, err := template.New("greeting").Option("missingkey=zero").Parse(greeting)
	if err != nil {
		return nil, fmt.Errorf("messaging: parse greeting: %w", err)
	}
	return &Composer{base: baseURL, greeting: tmpl}, nil
}

// Greeting renders the message text for r.
func (c *Composer) Greeting(r Recipient) (string, error) {
	var buf bytes.Buffer
	if err := c.greeting.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("messaging: render greeting: %w", err)
	}
	return buf.String(), nil
}

// Link returns <base><digits>?text=<message>, with the message encoded the
// way browsers encode a URI component (spaces as %20).
func (c *Composer) Link(r Recipient) (string, error) {
	msg, err := c.Greeting(r)
	if err != nil {
		return "", err
	}
	return c.base + Digits(r.Phone) + "?text=" + encodeComponent(msg), nil
}

// Digits strips everything but 0-9 from phone; wa.me rejects anything else.
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Opener hands a URL to something that can show it to the operator.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(string) error

// Open calls f(url).
func (f OpenerFunc) Open(url string) error { return f(url) }

// SystemOpener launches the platform's default handler without waiting for it.
type SystemOpener struct{}

// Open starts open / xdg-open / cmd start depending on the OS.
func (SystemOpener) Open(link string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
	case "darwin":
		cmd = exec.Command("open", link)
	default:
		cmd = exec.Command("xdg-open", link)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("messaging: open %s: %w", link, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
