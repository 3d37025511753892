package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// sesAPI is the part of the SES v2 client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// sesSender implements Sender using Amazon SES stored templates. Template
// names are prefixed so several environments can share one account.
type sesSender struct {
	client         sesAPI
	from           string
	templatePrefix string
	logger         zerolog.Logger
}

// NewSESSender creates a sender using the default AWS credential chain.
func NewSESSender(ctx context.Context, region, from, templatePrefix string, logger zerolog.Logger) (Sender, error) {
	logger = logger.With().Str("component", "ses-sender").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().Str("region", region).Str("from", from).Msg("SES sender initialised")

	return &sesSender{
		client:         sesv2.NewFromConfig(cfg),
		from:           from,
		templatePrefix: templatePrefix,
		logger:         logger,
	}, nil
}

// Send submits a templated email.
func (s *sesSender) Send(ctx context.Context, msg Message) error {
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Template: &types.Template{
				TemplateName: aws.String(s.templatePrefix + msg.Template),
				TemplateData: aws.String(string(msg.Data)),
			},
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("template", msg.Template).Msg("SES rejected email")
		return fmt.Errorf("failed to send email via SES: %w", err)
	}

	s.logger.Debug().Str("message_id", aws.ToString(out.MessageId)).Msg("email accepted by SES")
	return nil
}
