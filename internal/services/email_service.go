// Файл: internal/services/email_service.go
package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"eod-monitor/pkg/mailer"
)

//go:embed templates/*.html
var templateFS embed.FS

// EmailServiceInterface — слой рендеринга поверх почтового транспорта.
// Ошибка отправки для одной группы/аудитории локальна: вызывающий код
// логирует её и продолжает обработку остальных.
type EmailServiceInterface interface {
	Send(ctx context.Context, recipients []string, subject, templateName string, data map[string]interface{}) error
	SendWithAttachment(ctx context.Context, recipients []string, subject, templateName string, data map[string]interface{}, att *mailer.Attachment) error
}

type EmailService struct {
	mailer    mailer.Mailer
	templates *template.Template
	logger    *zap.Logger
}

func NewEmailService(m mailer.Mailer, logger *zap.Logger) (*EmailService, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("разбор шаблонов писем: %w", err)
	}
	return &EmailService{mailer: m, templates: templates, logger: logger}, nil
}

func (s *EmailService) Send(ctx context.Context, recipients []string, subject, templateName string, data map[string]interface{}) error {
	return s.SendWithAttachment(ctx, recipients, subject, templateName, data, nil)
}

func (s *EmailService) SendWithAttachment(ctx context.Context, recipients []string, subject, templateName string, data map[string]interface{}, att *mailer.Attachment) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("рендеринг шаблона %s: %w", templateName, err)
	}

	return s.mailer.Send(ctx, mailer.Message{
		To:         recipients,
		Subject:    subject,
		HTMLBody:   body.String(),
		Attachment: att,
	})
}
