// Package mailer sends transactional email through the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/usefence/licensed/internal/license"
)

// Config holds the delivery settings.
type Config struct {
	APIBase string
	APIKey  string
	From    string
	Support string
	Timeout time.Duration
}

// Message is one outbound email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Client delivers Messages. With no API key it only logs them, which is what
// local development wants.
type Client struct {
	cfg  Config
	http *resty.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := resty.New().
		SetBaseURL(cfg.APIBase).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		hc.SetAuthToken(cfg.APIKey)
	}
	return &Client{cfg: cfg, http: hc}
}

// Send posts msg to the provider.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = c.cfg.From
	}
	if c.cfg.APIKey == "" {
		log.Warn().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail api key not configured, email not sent")
		return nil
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(msg).Post("/emails")
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send email: http %d: %s", resp.StatusCode(), resp.String())
	}
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// SendLicenseEmail delivers a newly issued license code.
func (c *Client) SendLicenseEmail(ctx context.Context, email, code string, typ license.LicenseType) error {
	body, err := render(licenseTmpl, map[string]string{
		"Code":    code,
		"Type":    typ.Label(),
		"Support": c.cfg.Support,
	})
	if err != nil {
		return err
	}
	return c.Send(ctx, Message{To: email, Subject: "Your Fence License Key", HTML: body})
}

// SendStudentLink delivers the discounted payment link to a verified student.
func (c *Client) SendStudentLink(ctx context.Context, email, link string) error {
	body, err := render(studentTmpl, map[string]string{
		"Link":    link,
		"Support": c.cfg.Support,
	})
	if err != nil {
		return err
	}
	return c.Send(ctx, Message{To: email, Subject: "Your Fence Student Discount Link", HTML: body})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

var licenseTmpl = template.Must(template.New("license").Parse(`<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 40px 20px;">
  <h1 style="font-size: 24px; font-weight: normal; color: #1a1a1a;">Thanks for purchasing Fence!</h1>
  <p style="color: #5c5c5c; font-size: 16px; line-height: 1.6;">Here is your {{.Type}} license key. Enter it in the app when prompted:</p>
  <div style="background: #f5f5f5; padding: 20px; border-radius: 8px;">
    <code style="font-size: 14px; word-break: break-all; color: #1a1a1a;">{{.Code}}</code>
  </div>
  <p style="color: #5c5c5c; font-size: 14px; line-height: 1.6;">A key activates one Mac. To move it to another Mac, email {{.Support}}.</p>
  <p style="color: #999; font-size: 13px; margin-top: 40px;">Questions? Reply to this email or reach out at {{.Support}}</p>
</div>`))

var studentTmpl = template.Must(template.New("student").Parse(`<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 500px; margin: 0 auto; padding: 40px 20px;">
  <h1 style="font-size: 24px; font-weight: normal; color: #1a1a1a;">Your student discount is ready</h1>
  <p style="color: #5c5c5c; font-size: 16px; line-height: 1.6;">Thanks for verifying your student status. Here is your link to get Fence at the student price:</p>
  <a href="{{.Link}}" style="display: inline-block; background: #2D5A3D; color: white; padding: 16px 32px; text-decoration: none; border-radius: 6px;">Get Fence</a>
  <p style="color: #5c5c5c; font-size: 14px; line-height: 1.6; margin-top: 32px;">One-time purchase, lifetime access, no subscription.</p>
  <p style="color: #999; font-size: 13px; margin-top: 40px;">Questions? Reply to this email or reach out at {{.Support}}</p>
</div>`))
