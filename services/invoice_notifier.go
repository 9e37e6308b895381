package services

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/yashrajoria/pharmacy-agent/models"
	awspkg "github.com/yashrajoria/pharmacy-agent/pkg/aws"
	"github.com/yashrajoria/pharmacy-agent/repository"
	"github.com/yashrajoria/pharmacy-agent/sender"
	"go.uber.org/zap"
)

//go:embed templates/invoice.html
var templateFS embed.FS

// InvoiceNotifier delivers an invoice for a paid order. It reports
// whether delivery worked and never fails the order.
type InvoiceNotifier interface {
	SendInvoice(ctx context.Context, invoice *models.Invoice) bool
}

// invoiceEvent is the payload shape the notification consumer expects.
type invoiceEvent struct {
	EventType string                 `json:"event_type"`
	Recipient string                 `json:"recipient"`
	Data      map[string]interface{} `json:"data"`
}

const eventTypeInvoiceIssued = "invoice_issued"

// EmailInvoiceNotifier sends the invoice by SMTP when a sender is
// configured, otherwise publishes an invoice_issued event to SNS. Every
// attempt is written to the notification log when one is configured.
type EmailInvoiceNotifier struct {
	email     sender.EmailSender
	publisher awspkg.SNSPublisher
	topicArn  string
	logs      repository.NotificationRepository
	tmpl      *template.Template
	timeout   time.Duration
	metrics   MetricsRecorder
	logger    *zap.Logger
}

type InvoiceNotifierConfig struct {
	Email     sender.EmailSender
	Publisher awspkg.SNSPublisher
	TopicArn  string
	Logs      repository.NotificationRepository
	Timeout   time.Duration
	Metrics   MetricsRecorder
}

func NewEmailInvoiceNotifier(cfg InvoiceNotifierConfig, logger *zap.Logger) (*EmailInvoiceNotifier, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice template: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmailInvoiceNotifier{
		email:     cfg.Email,
		publisher: cfg.Publisher,
		topicArn:  cfg.TopicArn,
		logs:      cfg.Logs,
		tmpl:      tmpl,
		timeout:   timeout,
		metrics:   cfg.Metrics,
		logger:    logger,
	}, nil
}

func (n *EmailInvoiceNotifier) SendInvoice(ctx context.Context, invoice *models.Invoice) bool {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var (
		channel string
		err     error
	)
	switch {
	case n.email != nil:
		channel = models.NotificationChannelEmail
		err = n.sendEmail(ctx, invoice)
	case n.publisher != nil && n.topicArn != "":
		channel = models.NotificationChannelSNS
		err = n.publish(ctx, invoice)
	default:
		n.logger.Warn("no invoice channel configured", zap.String("invoice_id", invoice.InvoiceID))
		return false
	}

	entry := &models.NotificationLog{
		Channel:   channel,
		Recipient: invoice.CustomerEmail,
		Subject:   invoiceSubject(invoice),
		OrderID:   invoice.OrderID,
		InvoiceID: invoice.InvoiceID,
		Status:    models.NotificationStatusSent,
	}
	if err != nil {
		entry.Status = models.NotificationStatusFailed
		entry.Error = err.Error()
		n.logger.Warn("invoice delivery failed",
			zap.String("invoice_id", invoice.InvoiceID),
			zap.String("channel", channel),
			zap.Error(err),
		)
	} else {
		n.logger.Info("invoice delivered",
			zap.String("invoice_id", invoice.InvoiceID),
			zap.String("channel", channel),
		)
		recordCount(ctx, n.metrics, MetricInvoicesSent, map[string]string{"Channel": channel})
	}

	if n.logs != nil {
		// The delivery deadline may already be spent; the log write gets its own.
		logCtx, logCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer logCancel()
		if logErr := n.logs.SaveLog(logCtx, entry); logErr != nil {
			n.logger.Error("failed to save notification log", zap.Error(logErr))
		}
	}
	return err == nil
}

func invoiceSubject(invoice *models.Invoice) string {
	return fmt.Sprintf("Your invoice %s", invoice.InvoiceID)
}

func (n *EmailInvoiceNotifier) sendEmail(ctx context.Context, invoice *models.Invoice) error {
	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, invoice); err != nil {
		return fmt.Errorf("template render failed: %w", err)
	}
	_, err := n.email.SendEmail(ctx, invoice.CustomerEmail, invoiceSubject(invoice), buf.String())
	return err
}

func (n *EmailInvoiceNotifier) publish(ctx context.Context, invoice *models.Invoice) error {
	body, err := json.Marshal(invoiceEvent{
		EventType: eventTypeInvoiceIssued,
		Recipient: invoice.CustomerEmail,
		Data: map[string]interface{}{
			"email":        invoice.CustomerEmail,
			"invoice_id":   invoice.InvoiceID,
			"order_id":     invoice.OrderID,
			"product_name": invoice.ProductName,
			"quantity":     invoice.Quantity,
			"unit_price":   invoice.UnitPrice,
			"total_paid":   invoice.TotalPaid,
			"paid_at":      invoice.PaidAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return err
	}
	return n.publisher.Publish(ctx, n.topicArn, body)
}
