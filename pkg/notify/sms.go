package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/noah-isme/waste-mgmt-api/pkg/config"
)

type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender publishes transactional text messages through AWS SNS.
type SMSSender struct {
	client   snsPublisher
	sender   string
	renderer *Renderer
}

// NewSMSSender returns nil when SMS delivery is disabled.
func NewSMSSender(ctx context.Context, cfg config.SMSConfig, renderer *Renderer) (*SMSSender, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SMSSender{client: sns.NewFromConfig(awsCfg), sender: cfg.Sender, renderer: renderer}, nil
}

// Send implements Notifier.
func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	body, err := s.renderer.Text(msg.Template, msg.Data)
	if err != nil {
		return err
	}
	attrs := map[string]snsTypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.sender != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snsTypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.sender),
		}
	}
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(msg.To),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("publish sms to %s: %w", msg.To, err)
	}
	return nil
}
