package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ekrini-reservation/internal/domain"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender `json:"sender"`
	To          []BrevoTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
	TextContent string      `json:"textContent,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Sender dispatches reservation notifications. Nil = no-op. All sends are
// fire-and-forget from the caller's point of view.
type Sender interface {
	SendReservationConfirmation(ctx context.Context, toEmail string, r *domain.Reservation) error
}

// BrevoClient sends emails via the Brevo (Sendinblue) API. Same env as the
// Express service: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@e-krini.com"
}

// SendReservationConfirmation sends the booking confirmation email
// (Express emailTemplates.reservationConfirmationEmail).
func (c *BrevoClient) SendReservationConfirmation(ctx context.Context, toEmail string, r *domain.Reservation) error {
	if c.APIKey == "" {
		return nil
	}
	subject := fmt.Sprintf("Confirmation de réservation %s", r.ReservationID)
	start := r.StartDate.Format("02/01/2006")
	end := r.EndDate.Format("02/01/2006")

	html := fmt.Sprintf(`
    <p>Bonjour,</p>
    <p>Votre réservation <strong>%s</strong> a bien été enregistrée.</p>
    <ul>
      <li>Véhicule: %s %s</li>
      <li>Période: du %s au %s (%d jours)</li>
      <li>Montant total: %.2f€</li>
      <li>Statut: %s</li>
    </ul>
    <p>Merci de votre confiance.</p>
`, EscapeHTML(r.ReservationID), EscapeHTML(r.CarBrand), EscapeHTML(r.CarModel), start, end, r.TotalDays, r.TotalAmount, r.Status)

	text := fmt.Sprintf("Bonjour,\n\nVotre réservation %s a bien été enregistrée.\n"+
		"Véhicule: %s %s\nPériode: du %s au %s (%d jours)\nMontant total: %.2f€\n\nMerci de votre confiance.",
		r.ReservationID, r.CarBrand, r.CarModel, start, end, r.TotalDays, r.TotalAmount)

	return c.send(ctx, toEmail, subject, html, text)
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html, text string) error {
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "E-krini"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		TextContent: text,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// EscapeHTML escapes user-provided strings interpolated into email HTML.
func EscapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	return r.Replace(s)
}
