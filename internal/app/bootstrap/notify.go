package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/carepulse/internal/config"
	"github.com/wolfman30/carepulse/internal/events"
	"github.com/wolfman30/carepulse/internal/notify"
	"github.com/wolfman30/carepulse/pkg/logging"
)

// BuildEmailSender picks the configured provider. Misconfiguration falls back
// to the stub sender, which only logs, so the workflow keeps running.
func BuildEmailSender(cfg *appconfig.Config, loadAWS AWSConfigFunc, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		// NewSendGridSender returns a typed nil without a key; keep it off the interface.
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("EMAIL_PROVIDER=sendgrid without SENDGRID_API_KEY; using stub sender")
	case "ses":
		if strings.TrimSpace(cfg.EmailFrom) == "" {
			logger.Warn("EMAIL_PROVIDER=ses without EMAIL_FROM; using stub sender")
			break
		}
		awsCfg, err := awsConfig(loadAWS)
		if err != nil {
			logger.Warn("ses unavailable; using stub sender", "error", err)
			break
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail:        cfg.EmailFrom,
			FromName:         cfg.EmailFromName,
			ConfigurationSet: cfg.SESConfigurationSet,
		}, logger)
	}
	return notify.NewStubEmailSender(logger)
}

// BuildPublisher returns the SQS publisher when a queue is configured and a
// logging publisher otherwise.
func BuildPublisher(cfg *appconfig.Config, loadAWS AWSConfigFunc, logger *logging.Logger) (events.Publisher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.AppointmentEventsQueueURL) == "" {
		return events.NewLogPublisher(logger), nil
	}
	awsCfg, err := awsConfig(loadAWS)
	if err != nil {
		return nil, err
	}
	return events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.AppointmentEventsQueueURL), nil
}
