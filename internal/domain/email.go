package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// DrawSummaryEmailData holds data for the organizer's post-wave summary email.
type DrawSummaryEmailData struct {
	ContactEmail  string
	EventName     string
	Wave          int
	InvitedCount  int
	WaitingCount  int
	DeadlineHours int
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendDrawSummary(ctx context.Context, data *DrawSummaryEmailData) error
}
