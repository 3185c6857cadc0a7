// Файл: pkg/mailer/mailer.go
package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"eod-monitor/pkg/config"
)

// Attachment — необязательное вложение письма (например, xlsx-выгрузка
// недельного отчёта).
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To         []string
	Subject    string
	HTMLBody   string
	Attachment *Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPMailer struct {
	smtp   config.SMTPConfig
	email  config.EmailConfig
	logger *zap.Logger
}

func NewSMTPMailer(smtpCfg config.SMTPConfig, emailCfg config.EmailConfig, logger *zap.Logger) Mailer {
	return &SMTPMailer{smtp: smtpCfg, email: emailCfg, logger: logger}
}

// Send отправляет письмо. В режиме, отличном от SEND, получатели подменяются
// тестовым списком; в режиме LOG письмо не уходит вовсе, фиксируется только
// намерение. Пустой итоговый список получателей — не ошибка, а no-op.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	base := msg.To
	if m.email.Mode != "SEND" {
		base = m.email.TestRecipients
	}

	final := CleanRecipients(base)
	if len(final) == 0 {
		m.logger.Warn("список получателей пуст после очистки, письмо пропущено",
			zap.String("subject", msg.Subject))
		return nil
	}

	if m.email.Mode == "LOG" {
		m.logger.Info("--- EMAIL DRY RUN (MODE=LOG) ---",
			zap.String("from", m.smtp.Sender),
			zap.Strings("to", final),
			zap.String("subject", msg.Subject),
			zap.Bool("attachment", msg.Attachment != nil))
		return nil
	}

	body := BuildMIME(m.smtp.Sender, final, msg.Subject, msg.HTMLBody, msg.Attachment)

	addr := fmt.Sprintf("%s:%d", m.smtp.Host, m.smtp.Port)
	var auth smtp.Auth
	if m.smtp.User != "" && m.smtp.Password != "" {
		auth = smtp.PlainAuth("", m.smtp.User, m.smtp.Password, m.smtp.Host)
	}

	if err := smtp.SendMail(addr, auth, m.smtp.Sender, final, body); err != nil {
		return fmt.Errorf("отправка письма '%s': %w", msg.Subject, err)
	}

	m.logger.Info("письмо отправлено",
		zap.String("subject", msg.Subject),
		zap.Strings("to", final))
	return nil
}

// CleanRecipients убирает пустые и пробельные адреса и дубликаты,
// сохраняя порядок первого вхождения.
func CleanRecipients(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, addr := range in {
		trimmed := strings.TrimSpace(addr)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

const mixedBoundary = "eodmonitor-mixed-boundary"

// BuildMIME собирает тело письма: text/html, либо multipart/mixed при
// наличии вложения. Заголовки чистятся от CR/LF.
func BuildMIME(from string, to []string, subject, htmlBody string, att *Attachment) []byte {
	var b strings.Builder

	writeHeader := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(sanitizeHeader(value))
		b.WriteString("\r\n")
	}

	writeHeader("From", from)
	writeHeader("To", strings.Join(to, ", "))
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", subject))
	writeHeader("MIME-Version", "1.0")

	if att == nil {
		writeHeader("Content-Type", "text/html; charset=UTF-8")
		b.WriteString("\r\n")
		b.WriteString(htmlBody)
		return []byte(b.String())
	}

	writeHeader("Content-Type", fmt.Sprintf("multipart/mixed; boundary=%s", mixedBoundary))
	b.WriteString("\r\n")

	b.WriteString("--" + mixedBoundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	b.WriteString("--" + mixedBoundary + "\r\n")
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.WriteString(fmt.Sprintf("Content-Type: %s; name=%q\r\n", contentType, att.Filename))
	b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", att.Filename))
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")

	encoded := base64.StdEncoding.EncodeToString(att.Data)
	// Переносы каждые 76 символов, как требует RFC 2045.
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")

	b.WriteString("--" + mixedBoundary + "--\r\n")
	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
