package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/google/uuid"

	"costscope/internal/logging"
)

// Sort key prefixes for the single-table layout. All record kinds share one
// table partitioned by account_id.
const (
	costKeyPrefix  = "COST#"
	alertKeyPrefix = "ALERT#"
	recKeyPrefix   = "REC#"

	partitionKey = "account_id"
	sortKey      = "record_key"

	batchWriteMax = 25 // DynamoDB BatchWriteItem item limit
)

// DynamoStore persists records in a single DynamoDB table with
// pk=account_id and sk=record_key ("COST#<date>#<service>",
// "ALERT#<timestamp>#<id>", "REC#<timestamp>#<id>").
type DynamoStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

// NewDynamoStore creates a store backed by the given table. endpoint
// overrides the DynamoDB endpoint for local development when non-empty.
func NewDynamoStore(sess *session.Session, table, endpoint string) *DynamoStore {
	cfg := aws.NewConfig()
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint)
	}
	return &DynamoStore{
		client: dynamodb.New(sess, cfg),
		table:  table,
	}
}

// NewDynamoStoreWithClient creates a store with an injected client
func NewDynamoStoreWithClient(client dynamodbiface.DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func costRecordKey(date, service string) string {
	return costKeyPrefix + date + "#" + service
}

// PutCostRecords implements Store. Rows are written in BatchWriteItem chunks;
// identical keys overwrite, which makes re-fetching idempotent.
func (s *DynamoStore) PutCostRecords(ctx context.Context, records []CostRecord) error {
	var requests []*dynamodb.WriteRequest
	for _, record := range records {
		item, err := dynamodbattribute.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal cost record: %w", err)
		}
		item[sortKey] = &dynamodb.AttributeValue{S: aws.String(costRecordKey(record.Date, record.Service))}
		requests = append(requests, &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: item},
		})
	}
	return s.batchWrite(ctx, requests)
}

// batchWrite writes requests in chunks, retrying unprocessed items
func (s *DynamoStore) batchWrite(ctx context.Context, requests []*dynamodb.WriteRequest) error {
	for start := 0; start < len(requests); start += batchWriteMax {
		end := start + batchWriteMax
		if end > len(requests) {
			end = len(requests)
		}

		pending := requests[start:end]
		for len(pending) > 0 {
			out, err := s.client.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]*dynamodb.WriteRequest{
					s.table: pending,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to batch write to %s: %w", s.table, err)
			}

			pending = out.UnprocessedItems[s.table]
			if len(pending) > 0 {
				logging.Debug("Retrying unprocessed items", map[string]interface{}{
					"table": s.table,
					"count": len(pending),
				})
			}
		}
	}
	return nil
}

// QueryCostRecords implements Store
func (s *DynamoStore) QueryCostRecords(ctx context.Context, accountID, startDate, endDate string) ([]CostRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#pk = :account AND #sk BETWEEN :start AND :end"),
		ExpressionAttributeNames: map[string]*string{
			"#pk": aws.String(partitionKey),
			"#sk": aws.String(sortKey),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":account": {S: aws.String(accountID)},
			":start":   {S: aws.String(costKeyPrefix + startDate)},
			// "#~" sorts after "#<any service>" so the end date is inclusive
			":end": {S: aws.String(costKeyPrefix + endDate + "#~")},
		},
	}

	var records []CostRecord
	err := s.client.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, lastPage bool) bool {
		for _, item := range page.Items {
			var record CostRecord
			if err := dynamodbattribute.UnmarshalMap(item, &record); err != nil {
				logging.Warn("Skipping unreadable cost record", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			records = append(records, record)
		}
		return !lastPage
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query cost records: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].Service < records[j].Service
	})
	return records, nil
}

// PutAlerts implements Store
func (s *DynamoStore) PutAlerts(ctx context.Context, alerts []BudgetAlert) error {
	var requests []*dynamodb.WriteRequest
	for _, alert := range alerts {
		item, err := dynamodbattribute.MarshalMap(alert)
		if err != nil {
			return fmt.Errorf("failed to marshal alert: %w", err)
		}
		item[sortKey] = &dynamodb.AttributeValue{
			S: aws.String(alertKeyPrefix + alert.Timestamp + "#" + uuid.NewString()),
		}
		requests = append(requests, &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: item},
		})
	}
	return s.batchWrite(ctx, requests)
}

// RecentAlerts implements Store
func (s *DynamoStore) RecentAlerts(ctx context.Context, accountID string, limit int) ([]BudgetAlert, error) {
	items, err := s.queryPrefixDescending(ctx, accountID, alertKeyPrefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	alerts := make([]BudgetAlert, 0, len(items))
	for _, item := range items {
		var alert BudgetAlert
		if err := dynamodbattribute.UnmarshalMap(item, &alert); err != nil {
			logging.Warn("Skipping unreadable alert", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// PutRecommendations implements Store
func (s *DynamoStore) PutRecommendations(ctx context.Context, recs []Recommendation) error {
	var requests []*dynamodb.WriteRequest
	for _, rec := range recs {
		item, err := dynamodbattribute.MarshalMap(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendation: %w", err)
		}
		item[sortKey] = &dynamodb.AttributeValue{
			S: aws.String(recKeyPrefix + rec.Timestamp + "#" + rec.RecommendationID),
		}
		requests = append(requests, &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: item},
		})
	}
	return s.batchWrite(ctx, requests)
}

// RecentRecommendations implements Store
func (s *DynamoStore) RecentRecommendations(ctx context.Context, accountID string, limit int) ([]Recommendation, error) {
	items, err := s.queryPrefixDescending(ctx, accountID, recKeyPrefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}

	recs := make([]Recommendation, 0, len(items))
	for _, item := range items {
		var rec Recommendation
		if err := dynamodbattribute.UnmarshalMap(item, &rec); err != nil {
			logging.Warn("Skipping unreadable recommendation", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// queryPrefixDescending returns up to limit items whose sort key starts with
// prefix, newest first. Sort keys embed RFC3339 timestamps so lexicographic
// order is chronological.
func (s *DynamoStore) queryPrefixDescending(ctx context.Context, accountID, prefix string, limit int) ([]map[string]*dynamodb.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#pk = :account AND begins_with(#sk, :prefix)"),
		ExpressionAttributeNames: map[string]*string{
			"#pk": aws.String(partitionKey),
			"#sk": aws.String(sortKey),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":account": {S: aws.String(accountID)},
			":prefix":  {S: aws.String(prefix)},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int64(int64(limit))
	}

	var items []map[string]*dynamodb.AttributeValue
	err := s.client.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, lastPage bool) bool {
		items = append(items, page.Items...)
		return limit <= 0 || len(items) < limit
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// TableExists reports whether the configured table is reachable. Used as a
// pre-flight check so commands fail fast on configuration errors.
func (s *DynamoStore) TableExists(ctx context.Context) error {
	_, err := s.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		if strings.Contains(err.Error(), dynamodb.ErrCodeResourceNotFoundException) {
			return fmt.Errorf("table %s does not exist", s.table)
		}
		return fmt.Errorf("failed to describe table %s: %w", s.table, err)
	}
	return nil
}
