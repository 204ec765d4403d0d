package budget

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"

	"costscope/internal/store"
)

// SNSNotifier publishes budget alerts to an SNS topic
type SNSNotifier struct {
	client   snsiface.SNSAPI
	topicARN string
}

// NewSNSNotifier creates a notifier for the given topic
func NewSNSNotifier(sess *session.Session, topicARN string) *SNSNotifier {
	return &SNSNotifier{
		client:   sns.New(sess),
		topicARN: topicARN,
	}
}

// NewSNSNotifierWithClient creates a notifier with an injected client
func NewSNSNotifierWithClient(client snsiface.SNSAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// Publish implements Notifier
func (n *SNSNotifier) Publish(ctx context.Context, alert store.BudgetAlert) error {
	_, err := n.client.PublishWithContext(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(fmt.Sprintf("Budget alert for account %s", alert.AccountID)),
		Message:  aws.String(alert.Message),
		MessageAttributes: map[string]*sns.MessageAttributeValue{
			"alert_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(alert.AlertType),
			},
			"service": {
				DataType:    aws.String("String"),
				StringValue: aws.String(alert.Service),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.topicARN, err)
	}
	return nil
}
