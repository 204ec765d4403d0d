package store

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI

	batchInputs []*dynamodb.BatchWriteItemInput
	// unprocessedOnce returns the first request of the first batch as
	// unprocessed exactly once
	unprocessedOnce bool

	queryPages    []*dynamodb.QueryOutput
	lastQuery     *dynamodb.QueryInput
	describeError error
}

func (f *fakeDynamo) BatchWriteItemWithContext(_ aws.Context, input *dynamodb.BatchWriteItemInput, _ ...request.Option) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchInputs = append(f.batchInputs, input)

	out := &dynamodb.BatchWriteItemOutput{}
	if f.unprocessedOnce {
		f.unprocessedOnce = false
		for table, requests := range input.RequestItems {
			out.UnprocessedItems = map[string][]*dynamodb.WriteRequest{
				table: requests[:1],
			}
		}
	}
	return out, nil
}

func (f *fakeDynamo) QueryPagesWithContext(_ aws.Context, input *dynamodb.QueryInput, fn func(*dynamodb.QueryOutput, bool) bool, _ ...request.Option) error {
	f.lastQuery = input
	for i, page := range f.queryPages {
		if !fn(page, i == len(f.queryPages)-1) {
			break
		}
	}
	return nil
}

func (f *fakeDynamo) DescribeTableWithContext(_ aws.Context, _ *dynamodb.DescribeTableInput, _ ...request.Option) (*dynamodb.DescribeTableOutput, error) {
	if f.describeError != nil {
		return nil, f.describeError
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func costItem(date, service string, cost string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"account_id": {S: aws.String(testAccount)},
		"timestamp":  {S: aws.String(date)},
		"service":    {S: aws.String(service)},
		"cost":       {N: aws.String(cost)},
	}
}

func TestDynamoPutCostRecordsChunksBatches(t *testing.T) {
	client := &fakeDynamo{}
	s := NewDynamoStoreWithClient(client, "cost-table")

	var records []CostRecord
	for i := 0; i < 30; i++ {
		records = append(records, CostRecord{
			AccountID: testAccount,
			Date:      "2026-08-01",
			Service:   string(rune('A' + i)),
			Cost:      1,
		})
	}
	require.NoError(t, s.PutCostRecords(context.Background(), records))

	// 30 rows exceed the 25-item batch limit, so two batches
	require.Len(t, client.batchInputs, 2)
	assert.Len(t, client.batchInputs[0].RequestItems["cost-table"], 25)
	assert.Len(t, client.batchInputs[1].RequestItems["cost-table"], 5)

	// Every item carries the composite sort key
	item := client.batchInputs[0].RequestItems["cost-table"][0].PutRequest.Item
	assert.Contains(t, aws.StringValue(item["record_key"].S), "COST#2026-08-01#")
}

func TestDynamoBatchWriteRetriesUnprocessed(t *testing.T) {
	client := &fakeDynamo{unprocessedOnce: true}
	s := NewDynamoStoreWithClient(client, "cost-table")

	err := s.PutCostRecords(context.Background(), []CostRecord{
		{AccountID: testAccount, Date: "2026-08-01", Service: "Amazon EC2", Cost: 1},
	})
	require.NoError(t, err)

	// First call returns one unprocessed item, second call drains it
	assert.Len(t, client.batchInputs, 2)
}

func TestDynamoQueryCostRecordsKeyRange(t *testing.T) {
	client := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{
		{Items: []map[string]*dynamodb.AttributeValue{
			costItem("2026-08-02", "Amazon S3", "5"),
			costItem("2026-08-01", "Amazon EC2", "10"),
		}},
	}}
	s := NewDynamoStoreWithClient(client, "cost-table")

	records, err := s.QueryCostRecords(context.Background(), testAccount, "2026-08-01", "2026-08-02")
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "2026-08-01", records[0].Date)
	assert.Equal(t, 10.0, records[0].Cost)

	values := client.lastQuery.ExpressionAttributeValues
	assert.Equal(t, "COST#2026-08-01", aws.StringValue(values[":start"].S))
	// The "#~" suffix keeps the end date inclusive
	assert.Equal(t, "COST#2026-08-02#~", aws.StringValue(values[":end"].S))
}

func TestDynamoRecentAlertsDescendingWithLimit(t *testing.T) {
	client := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{
		{Items: []map[string]*dynamodb.AttributeValue{
			{
				"account_id": {S: aws.String(testAccount)},
				"timestamp":  {S: aws.String("2026-08-02T00:00:00Z")},
				"alert_type": {S: aws.String(AlertTypeBudgetExceeded)},
			},
			{
				"account_id": {S: aws.String(testAccount)},
				"timestamp":  {S: aws.String("2026-08-01T00:00:00Z")},
				"alert_type": {S: aws.String(AlertTypeBudgetExceeded)},
			},
		}},
	}}
	s := NewDynamoStoreWithClient(client, "cost-table")

	alerts, err := s.RecentAlerts(context.Background(), testAccount, 1)
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, "2026-08-02T00:00:00Z", alerts[0].Timestamp)
	assert.False(t, aws.BoolValue(client.lastQuery.ScanIndexForward))
	assert.Equal(t, "ALERT#", aws.StringValue(client.lastQuery.ExpressionAttributeValues[":prefix"].S))
}

func TestDynamoTableExists(t *testing.T) {
	s := NewDynamoStoreWithClient(&fakeDynamo{}, "cost-table")
	assert.NoError(t, s.TableExists(context.Background()))

	missing := NewDynamoStoreWithClient(&fakeDynamo{
		describeError: awserr.New(dynamodb.ErrCodeResourceNotFoundException, "not found", nil),
	}, "cost-table")
	err := missing.TableExists(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
