package services

import (
	"context"
	"fmt"
	"log"

	"eventlottery/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendDrawSummary sends the organizer's post-wave summary using the
// "draw_summary" template and the given data.
func (s *emailService) SendDrawSummary(ctx context.Context, data *domain.DrawSummaryEmailData) error {
	if data == nil {
		return fmt.Errorf("draw summary data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("draw_summary", data)
	if err != nil {
		return fmt.Errorf("failed to render draw_summary template: %w", err)
	}
	if err := s.mailer.Send(data.ContactEmail, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send draw summary email: %w", err)
	}
	log.Printf("[EMAIL] Draw summary sent to %s", data.ContactEmail)
	return nil
}
