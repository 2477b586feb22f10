package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes alert notifications to a topic.
type SNSClient struct {
	svc      snsAPI
	topicArn string
}

func NewSNSClient(cfg aws.Config, topicArn string) *SNSClient {
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}
}

// SendAlert publishes message to the topic and returns the message id.
func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) (string, error) {
	out, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

func (c *SNSClient) SendEnforcementAlert(ctx context.Context, e domain.EnforcementLogEntry) (string, error) {
	subject := fmt.Sprintf("Energy policy %s switched off %s", e.PolicyName, e.DeviceName)
	message := fmt.Sprintf(
		"Policy Enforcement\n\n"+
			"Policy: %s\n"+
			"Device: %s\n"+
			"Owner: %s\n"+
			"Energy today: %.3f kWh\n"+
			"Threshold: %.3f kWh\n"+
			"Time: %s",
		e.PolicyName,
		e.DeviceName,
		e.OwnerName,
		e.EnergyConsumedKWh,
		e.ThresholdKWh,
		e.EnforcedAt.Format(time.RFC3339),
	)
	return c.SendAlert(ctx, subject, message)
}
