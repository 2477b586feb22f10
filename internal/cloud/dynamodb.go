package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDBClient archives enforcement log entries.
type DynamoDBClient struct {
	svc   dynamoAPI
	table string
}

func NewDynamoDBClient(cfg aws.Config, table string) *DynamoDBClient {
	return &DynamoDBClient{svc: dynamodb.NewFromConfig(cfg), table: table}
}

// EnforcementRecord is the DynamoDB shape of an enforcement.
type EnforcementRecord struct {
	EnforcementID     string  `dynamodbav:"enforcementId"`
	LogID             int64   `dynamodbav:"logId"`
	EnforcedAt        int64   `dynamodbav:"enforcedAt"`
	PolicyName        string  `dynamodbav:"policyName"`
	DeviceName        string  `dynamodbav:"deviceName"`
	OwnerName         string  `dynamodbav:"ownerName"`
	EnergyConsumedKWh float64 `dynamodbav:"energyConsumedKwh"`
	ThresholdKWh      float64 `dynamodbav:"thresholdKwh"`
}

func newEnforcementRecord(e domain.EnforcementLogEntry) EnforcementRecord {
	return EnforcementRecord{
		EnforcementID:     uuid.NewString(),
		LogID:             e.ID,
		EnforcedAt:        e.EnforcedAt.Unix(),
		PolicyName:        e.PolicyName,
		DeviceName:        e.DeviceName,
		OwnerName:         e.OwnerName,
		EnergyConsumedKWh: e.EnergyConsumedKWh,
		ThresholdKWh:      e.ThresholdKWh,
	}
}

func (c *DynamoDBClient) PutEnforcement(ctx context.Context, e domain.EnforcementLogEntry) error {
	item, err := attributevalue.MarshalMap(newEnforcementRecord(e))
	if err != nil {
		return fmt.Errorf("failed to marshal enforcement: %w", err)
	}
	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put enforcement in DynamoDB: %w", err)
	}
	return nil
}
