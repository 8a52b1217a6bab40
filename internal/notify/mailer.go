package notify

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"github.com/trivium-ecommerce/fulfillment/internal/config"
	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// totalOrdersPlaceholder — плейсхолдер в шаблонах письма.
const totalOrdersPlaceholder = "[total_orders]"

// Mailer отправляет сводное письмо по итогам цикла. Ошибка отправки
// возвращается вызывающему, но по контракту Notifier она только
// логируется и никогда не отменяет сделанную работу.
type Mailer struct {
	cfg config.EmailConfig
	log *log.Entry
}

var _ domain.Notifier = (*Mailer)(nil)

// NewMailer создаёт SMTP-нотификатор.
func NewMailer(cfg config.EmailConfig, logger *log.Entry) *Mailer {
	if logger == nil {
		logger = log.WithField("component", "mailer")
	}
	return &Mailer{cfg: cfg, log: logger}
}

// Send отправляет сводку цикла всем получателям. Выключенный нотификатор
// или пустой список получателей превращают вызов в no-op.
func (m *Mailer) Send(ctx context.Context, report domain.CycleReport) error {
	if !m.cfg.Enabled {
		return nil
	}
	if len(m.cfg.Recipients) == 0 {
		m.log.Warn("email enabled but no recipients configured")
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set sender %s: %w", m.cfg.From, err)
	}
	if err := msg.To(m.cfg.Recipients...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(RenderSubject(m.cfg.SubjectTemplate, report))
	msg.SetBodyString(mail.TypeTextPlain, RenderBody(m.cfg.BodyTemplate, report))

	client, err := m.client()
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send summary mail: %w", err)
	}

	m.log.WithFields(log.Fields{
		"recipients": len(m.cfg.Recipients),
		"orders":     report.TotalProcessed(),
	}).Info("summary mail sent")
	return nil
}

// client собирает SMTP-клиент: порт 465 означает implicit TLS, иначе
// STARTTLS по возможности.
func (m *Mailer) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	}
	if m.cfg.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	} else if m.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(m.cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("build smtp client for %s: %w", m.cfg.SMTPHost, err)
	}
	return client, nil
}

// RenderSubject подставляет итоги цикла в шаблон темы.
func RenderSubject(template string, report domain.CycleReport) string {
	return strings.ReplaceAll(template, totalOrdersPlaceholder, strconv.Itoa(report.TotalProcessed()))
}

// RenderBody подставляет итоги цикла в шаблон тела и дописывает список
// созданных файлов.
func RenderBody(template string, report domain.CycleReport) string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(template, totalOrdersPlaceholder, strconv.Itoa(report.TotalProcessed())))

	files := report.FilesCreated()
	if len(files) > 0 {
		b.WriteString("\n\nGenerated batch files:\n")
		for _, f := range files {
			b.WriteString("  - ")
			b.WriteString(filepath.Base(f))
			b.WriteString("\n")
		}
	}

	for _, acc := range report.Accounts {
		if !acc.Success {
			b.WriteString(fmt.Sprintf("\nAccount %s failed: %s\n", acc.Account, acc.Error))
		}
	}
	return b.String()
}
