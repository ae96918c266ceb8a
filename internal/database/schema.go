package database

import (
	"context"
	"errors"
	"fmt"

	"chatforge-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// IndexSpec is a global secondary index keyed by a single string attribute.
type IndexSpec struct {
	Name         string
	PartitionKey string
}

// TableSpec describes a table keyed by a single string attribute.
type TableSpec struct {
	Name         string
	PartitionKey string
	Indexes      []IndexSpec
}

// Schema lists every table the service reads or writes.
func Schema() []TableSpec {
	return []TableSpec{
		{
			Name:         model.TenantsTable,
			PartitionKey: "tenantId",
			Indexes:      []IndexSpec{{Name: model.TenantsByEmailIndex, PartitionKey: "email"}},
		},
		{
			Name:         model.ChatbotsTable,
			PartitionKey: "chatbotId",
			Indexes: []IndexSpec{
				{Name: model.ChatbotsByAPIKeyIndex, PartitionKey: "apiKey"},
				{Name: model.ChatbotsByOwnerIndex, PartitionKey: "tenantId"},
			},
		},
		{Name: model.SubmissionsTable, PartitionKey: "submissionId"},
		{Name: model.SubscribersTable, PartitionKey: "email"},
	}
}

// ListTables returns all table names in the account/endpoint.
func (c *DynamoDBClient) ListTables(ctx context.Context) ([]string, error) {
	var last *string
	var names []string

	for {
		out, err := c.svc.ListTables(ctx, &dynamodb.ListTablesInput{
			ExclusiveStartTableName: last,
			Limit:                   aws.Int32(100),
		})
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}

		names = append(names, out.TableNames...)
		if out.LastEvaluatedTableName == nil {
			break
		}
		last = out.LastEvaluatedTableName
	}

	return names, nil
}

// DescribeTable returns metadata for a single table.
func (c *DynamoDBClient) DescribeTable(ctx context.Context, table string) (*types.TableDescription, error) {
	out, err := c.svc.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	return out.Table, nil
}

// CreateTable creates the table with on-demand billing. It reports created=false
// when the table already exists.
func (c *DynamoDBClient) CreateTable(ctx context.Context, name string, spec TableSpec) (bool, error) {
	attrs := []types.AttributeDefinition{{
		AttributeName: aws.String(spec.PartitionKey),
		AttributeType: types.ScalarAttributeTypeS,
	}}
	seen := map[string]bool{spec.PartitionKey: true}

	var indexes []types.GlobalSecondaryIndex
	for _, idx := range spec.Indexes {
		if !seen[idx.PartitionKey] {
			attrs = append(attrs, types.AttributeDefinition{
				AttributeName: aws.String(idx.PartitionKey),
				AttributeType: types.ScalarAttributeTypeS,
			})
			seen[idx.PartitionKey] = true
		}
		indexes = append(indexes, types.GlobalSecondaryIndex{
			IndexName: aws.String(idx.Name),
			KeySchema: []types.KeySchemaElement{{
				AttributeName: aws.String(idx.PartitionKey),
				KeyType:       types.KeyTypeHash,
			}},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}

	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		AttributeDefinitions: attrs,
		KeySchema: []types.KeySchemaElement{{
			AttributeName: aws.String(spec.PartitionKey),
			KeyType:       types.KeyTypeHash,
		}},
		BillingMode: types.BillingModePayPerRequest,
	}
	if len(indexes) > 0 {
		input.GlobalSecondaryIndexes = indexes
	}

	if _, err := c.svc.CreateTable(ctx, input); err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, fmt.Errorf("create table %s: %w", name, err)
	}
	return true, nil
}
