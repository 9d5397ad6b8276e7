package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	appconfig "supplement-program-api/config"
	"supplement-program-api/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// ComplianceReminder is what the notification collaborator needs to nudge a beneficiary.
type ComplianceReminder struct {
	IdempotencyKey string    `json:"idempotency_key"`
	TemplateCode   string    `json:"template_code"`
	OrganizationID uint      `json:"organization_id"`
	EnrollmentID   uint      `json:"enrollment_id"`
	BeneficiaryID  uint      `json:"beneficiary_id"`
	SupplyID       uint      `json:"supply_id"`
	MonthIndex     int       `json:"month_index"`
	DueAt          time.Time `json:"due_at"`
	Link           string    `json:"link"`
}

// Notifier hands a reminder to an outbound channel and returns the provider message id.
type Notifier interface {
	Channel() string
	Notify(ctx context.Context, reminder ComplianceReminder) (string, error)
}

// NewNotifier picks the notifier configured by NOTIFY_DRIVER.
func NewNotifier(ctx context.Context, cfg *appconfig.AppConfig, logger *zap.Logger) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Notify.Driver)) {
	case "", "log":
		return NewLogNotifier(logger), nil
	case "sqs":
		return NewSQSNotifier(ctx, cfg.Notify.SQSQueueName)
	case "mail":
		return NewMailNotifier(cfg.Mail), nil
	default:
		return nil, fmt.Errorf("unsupported NOTIFY_DRIVER %q", cfg.Notify.Driver)
	}
}

// LogNotifier only logs reminders. Used in development and when no channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = appconfig.Logger
	}
	return &LogNotifier{logger: logger.Named("notifier")}
}

func (n *LogNotifier) Channel() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, r ComplianceReminder) (string, error) {
	n.logger.Info("compliance reminder",
		zap.String("idempotency_key", r.IdempotencyKey),
		zap.Uint("supply_id", r.SupplyID),
		zap.Int("month_index", r.MonthIndex),
		zap.Time("due_at", r.DueAt))
	return r.IdempotencyKey, nil
}

// SQSAPI is the part of the SQS client used to hand reminders off.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier enqueues reminders for the notification service.
type SQSNotifier struct {
	client   SQSAPI
	queueURL string
}

func NewSQSNotifier(ctx context.Context, queueName string) (*SQSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := sqs.New(sqs.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
	})
	resp, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		return nil, fmt.Errorf("get queue url for %s: %w", queueName, err)
	}
	return &SQSNotifier{client: client, queueURL: aws.ToString(resp.QueueUrl)}, nil
}

func NewSQSNotifierWithClient(client SQSAPI, queueURL string) *SQSNotifier {
	return &SQSNotifier{client: client, queueURL: queueURL}
}

func (n *SQSNotifier) Channel() string { return "sqs" }

func (n *SQSNotifier) Notify(ctx context.Context, r ComplianceReminder) (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	out, err := n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"template_code":   {DataType: aws.String("String"), StringValue: aws.String(r.TemplateCode)},
			"idempotency_key": {DataType: aws.String("String"), StringValue: aws.String(r.IdempotencyKey)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("send sqs message: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// MailNotifier mails reminders to the operations mailbox.
type MailNotifier struct {
	cfg  appconfig.MailConfig
	send func(cfg appconfig.MailConfig, to []string, subject, html string) error
}

func NewMailNotifier(cfg appconfig.MailConfig) *MailNotifier {
	return &MailNotifier{cfg: cfg, send: appconfig.SendMail}
}

func (n *MailNotifier) Channel() string { return "mail" }

func (n *MailNotifier) Notify(_ context.Context, r ComplianceReminder) (string, error) {
	var to []string
	for _, addr := range n.cfg.OpsRecipients {
		if addr = strings.TrimSpace(addr); utils.ValidateEmail(addr) {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return "", fmt.Errorf("no valid reminder recipients configured (NOTIFY_MAIL_TO)")
	}
	subject := fmt.Sprintf("Compliance reminder: supply %d month %d", r.SupplyID, r.MonthIndex)
	body := fmt.Sprintf(
		"<p>Compliance for month %d of enrollment %d was due %s.</p><p><a href=\"%s\">Submit compliance</a></p>",
		r.MonthIndex, r.EnrollmentID, html.EscapeString(r.DueAt.Format(time.RFC1123)), html.EscapeString(r.Link))
	if err := n.send(n.cfg, to, subject, body); err != nil {
		return "", err
	}
	return r.IdempotencyKey, nil
}
