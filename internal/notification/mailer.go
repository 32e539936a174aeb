package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer delivers the "order ready" message to the order owner.
type Mailer interface {
	SendOrderReady(ctx context.Context, order *model.Order, qrPNG []byte) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.FromName == "" {
		cfg.FromName = "Campus Buffet"
	}
	return &SMTPMailer{cfg: cfg}
}

var readyTemplate = template.Must(template.New("ready").Parse(`<div style="font-family: Arial, sans-serif;">
  <h2>Hi {{.Name}},</h2>
  <p>Your order <strong>{{.Number}}</strong> is <strong>ready</strong> for pickup.</p>
  <p><strong>Show this code at the counter to collect it:</strong></p>
  <img src="cid:{{.QRName}}" alt="QR for order {{.Number}}" style="width:220px;height:220px;" />
  <p>Total: {{.Total}}</p>
  <p>Thanks for your order!</p>
</div>`))

func qrFileName(orderID int64) string {
	return fmt.Sprintf("order-%d.png", orderID)
}

func renderReady(order *model.Order) (string, error) {
	name := "there"
	if order.User != nil && order.User.Name != "" {
		name = order.User.Name
	}
	var buf bytes.Buffer
	err := readyTemplate.Execute(&buf, map[string]any{
		"Name":   name,
		"Number": order.OrderNumber,
		"QRName": qrFileName(order.ID),
		"Total":  order.Total.StringFixed(2),
	})
	return buf.String(), err
}

func (m *SMTPMailer) SendOrderReady(ctx context.Context, order *model.Order, qrPNG []byte) error {
	if order.User == nil || order.User.Email == "" {
		return fmt.Errorf("order %d has no recipient", order.ID)
	}

	body, err := renderReady(order)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(order.User.Email); err != nil {
		return err
	}
	msg.Subject(fmt.Sprintf("Your order %s is ready", order.OrderNumber))
	msg.SetBodyString(mail.TypeTextHTML, body)
	msg.EmbedReader(qrFileName(order.ID), bytes.NewReader(qrPNG))

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// LogMailer stands in when SMTP is not configured.
type LogMailer struct {
	logger logger.ZapLogger
}

func NewLogMailer(log logger.ZapLogger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) SendOrderReady(_ context.Context, order *model.Order, qrPNG []byte) error {
	to := ""
	if order.User != nil {
		to = order.User.Email
	}
	m.logger.Info("order ready mail (smtp disabled)",
		zap.Int64("order_id", order.ID),
		zap.String("to", to),
		zap.Int("qr_bytes", len(qrPNG)),
	)
	return nil
}
