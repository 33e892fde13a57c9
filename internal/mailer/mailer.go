// Package mailer отправляет служебные письма через SMTP-релей.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"

	"github.com/wneessen/go-mail"

	"github.com/rajivgeraev/autoswap-api/internal/config"
)

// Sender отправляет готовое письмо
type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// smtpSender отправка через go-mail клиента
type smtpSender struct {
	cfg config.SMTPConfig
}

func (s *smtpSender) Send(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("ошибка создания SMTP клиента: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// Mailer шаблонные уведомления пользователям
type Mailer struct {
	from   string
	sender Sender
}

// New создает Mailer; без SMTP_HOST письма только логируются
func New(cfg config.SMTPConfig) *Mailer {
	if !cfg.Configured() {
		log.Println("⚠️ SMTP не настроен, письма не будут отправляться")
		return &Mailer{from: cfg.From}
	}
	return &Mailer{from: cfg.From, sender: &smtpSender{cfg: cfg}}
}

// NewWithSender создает Mailer с заданным способом отправки
func NewWithSender(from string, sender Sender) *Mailer {
	return &Mailer{from: from, sender: sender}
}

var suspensionHTML = template.Must(template.New("suspension").Parse(`<p>Hello,</p>
<p>Your AutoSwap account has been suspended after a report from another user.</p>
<p>Reason: <strong>{{.Reason}}</strong></p>
<p>If you believe this is a mistake, reply to this email.</p>`))

// BuildSuspensionMessage собирает письмо о блокировке аккаунта
func (m *Mailer) BuildSuspensionMessage(to, reason string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("некорректный адрес отправителя: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("некорректный адрес получателя: %w", err)
	}
	msg.Subject("Your AutoSwap account has been suspended")
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Hello,\n\nYour AutoSwap account has been suspended after a report from another user.\nReason: %s\n\nIf you believe this is a mistake, reply to this email.\n", reason))

	var html bytes.Buffer
	if err := suspensionHTML.Execute(&html, struct{ Reason string }{reason}); err != nil {
		return nil, fmt.Errorf("ошибка шаблона письма: %w", err)
	}
	msg.AddAlternativeString(mail.TypeTextHTML, html.String())
	return msg, nil
}

// SendSuspensionEmail уведомляет пользователя о блокировке.
// Ошибки только логируются и вызывающему не возвращаются.
func (m *Mailer) SendSuspensionEmail(ctx context.Context, to, reason string) {
	if to == "" {
		log.Printf("⚠️ Нет email для уведомления о блокировке")
		return
	}
	if m.sender == nil {
		log.Printf("SMTP не настроен, письмо о блокировке для %s не отправлено", to)
		return
	}

	msg, err := m.BuildSuspensionMessage(to, reason)
	if err != nil {
		log.Printf("❌ Ошибка подготовки письма для %s: %v", to, err)
		return
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		log.Printf("❌ Ошибка отправки письма для %s: %v", to, err)
		return
	}
	log.Printf("✅ Письмо о блокировке отправлено: %s", to)
}
