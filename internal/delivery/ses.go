package delivery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/leadflow/internal/config"
	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
)

const vendorSES = "ses"

// SESAPI is the part of the SES v2 client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends email through AWS SES using the SDK v2.
type SESSender struct {
	client    SESAPI
	fromEmail string
	fromName  string
	configSet string
	timeout   time.Duration
}

// NewSESSender builds an SES client from cfg. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain applies.
func NewSESSender(ctx context.Context, cfg config.SESConfig) (*SESSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESSenderWithClient(sesv2.NewFromConfig(awsCfg), cfg), nil
}

// NewSESSenderWithClient wraps an existing client.
func NewSESSenderWithClient(client SESAPI, cfg config.SESConfig) *SESSender {
	return &SESSender{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		configSet: cfg.ConfigurationSet,
		timeout:   cfg.Timeout(),
	}
}

// Send delivers one email. Vendor rejections are reported as an unsuccessful
// SendResult, not an error.
func (s *SESSender) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	if msg.To == "" {
		return nil, fmt.Errorf("ses send: recipient is required: %w", domain.ErrValidation)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromAddress(msg)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: tags(msg),
	}
	if msg.Text != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	if s.configSet != "" {
		input.ConfigurationSetName = aws.String(s.configSet)
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		log.Printf("[SES] Failed to send to %s: %v", logger.RedactEmail(msg.To), err)
		return &domain.SendResult{Success: false, Vendor: vendorSES, Error: err.Error()}, nil
	}

	messageID := aws.ToString(result.MessageId)
	log.Printf("[SES] Sent to %s (id: %s)", logger.RedactEmail(msg.To), messageID)
	return &domain.SendResult{
		Success:   true,
		MessageID: messageID,
		Vendor:    vendorSES,
		SentAt:    time.Now(),
	}, nil
}

func (s *SESSender) fromAddress(msg *domain.OutboundMessage) string {
	email, name := msg.From, msg.FromName
	if email == "" {
		email, name = s.fromEmail, s.fromName
	}
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// tags skips empty values, which SES rejects.
func tags(msg *domain.OutboundMessage) []types.MessageTag {
	var out []types.MessageTag
	for _, kv := range [][2]string{{"campaign_id", msg.CampaignID}, {"lead_id", msg.LeadID}} {
		if kv[1] != "" {
			out = append(out, types.MessageTag{Name: aws.String(kv[0]), Value: aws.String(kv[1])})
		}
	}
	return out
}
