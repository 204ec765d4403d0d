package budget

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costscope/internal/store"
)

type fakeSNS struct {
	snsiface.SNSAPI
	err   error
	input *sns.PublishInput
}

func (f *fakeSNS) PublishWithContext(_ aws.Context, input *sns.PublishInput, _ ...request.Option) (*sns.PublishOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = input
	return &sns.PublishOutput{}, nil
}

func TestSNSNotifierPublish(t *testing.T) {
	client := &fakeSNS{}
	n := NewSNSNotifierWithClient(client, "arn:aws:sns:us-east-1:123456789012:cost-alerts")

	alert := store.BudgetAlert{
		AccountID:   testAccount,
		AlertType:   store.AlertTypeServiceBudgetExceeded,
		Service:     "Amazon EC2",
		CurrentCost: 25,
		BudgetLimit: 20,
		Message:     "Amazon EC2 budget exceeded: $25.00 > $20.00",
	}
	require.NoError(t, n.Publish(context.Background(), alert))

	require.NotNil(t, client.input)
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:cost-alerts", aws.StringValue(client.input.TopicArn))
	assert.Equal(t, alert.Message, aws.StringValue(client.input.Message))
	assert.Contains(t, aws.StringValue(client.input.Subject), testAccount)
	assert.Equal(t, alert.AlertType, aws.StringValue(client.input.MessageAttributes["alert_type"].StringValue))
}

func TestSNSNotifierPublishError(t *testing.T) {
	n := NewSNSNotifierWithClient(&fakeSNS{err: fmt.Errorf("denied")}, "arn:topic")

	err := n.Publish(context.Background(), store.BudgetAlert{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arn:topic")
}
