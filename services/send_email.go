package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/config"
	"github.com/skillarena/backend/errs"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents an error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
}

// Mailer sends transactional email through Resend.
type Mailer struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
}

// NewMailer returns nil when RESEND_API_KEY is not set; callers treat a nil
// Mailer as "notifications off".
func NewMailer(cfg config.Email) *Mailer {
	if cfg.ResendAPIKey == "" {
		return nil
	}
	return &Mailer{
		apiKey:   cfg.ResendAPIKey,
		from:     cfg.FromEmail,
		endpoint: resendEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SendEmail sends an HTML email to recipients.
func (m *Mailer) SendEmail(ctx context.Context, subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return errs.NewMissingRequiredFieldError("recipients")
	}

	payload := ResendEmailRequest{
		From:    m.from,
		To:      recipients,
		Subject: subject,
		Html:    body,
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return errs.NewUpstreamError("resend", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.NewUpstreamError("resend", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ResendErrorResponse
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			return errs.NewUpstreamError("resend", fmt.Errorf("status %d: %s", resp.StatusCode, errorResp.Message))
		}
		return errs.NewUpstreamError("resend", fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var emailResponse ResendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Info().Str("emailId", emailResponse.ID).Msg("Successfully sent email via Resend")
	}
	return nil
}

// WinnerEmail congratulates the winner of contestName.
func WinnerEmail(winnerName, contestName, prize string) (subject, body string) {
	subject = fmt.Sprintf("You won %s!", contestName)
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>Congratulations, your submission won <strong>%s</strong>. "+
			"The prize of $%s is on its way.</p><p>The SkillArena team</p>",
		html.EscapeString(winnerName), html.EscapeString(contestName), html.EscapeString(prize))
	return subject, body
}

// ReviewEmail tells a creator whether their contest was approved.
func ReviewEmail(creatorName, contestName string, approved bool) (subject, body string) {
	verdict := "approved and is now open for registrations"
	subject = fmt.Sprintf("%s was approved", contestName)
	if !approved {
		verdict = "rejected by an administrator"
		subject = fmt.Sprintf("%s was rejected", contestName)
	}
	body = fmt.Sprintf("<p>Hi %s,</p><p>Your contest <strong>%s</strong> was %s.</p><p>The SkillArena team</p>",
		html.EscapeString(creatorName), html.EscapeString(contestName), verdict)
	return subject, body
}
