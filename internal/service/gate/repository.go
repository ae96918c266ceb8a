package gate

import (
	"context"
	"errors"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound = errors.New("gate repository: not found")
	// ErrConflict means the conditional write lost: the cycle was already
	// rolled, the limit was reached or the counter is already zero.
	ErrConflict = errors.New("gate repository: condition failed")
)

type Repository interface {
	FindChatbotByAPIKey(ctx context.Context, apiKey string) (model.ChatbotItem, error)
	GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error)
	// StartCycle sets the counter to 1 and the cycle start to cycleStart, only if
	// the stored cycle start still equals prevCycleStart.
	StartCycle(ctx context.Context, tenantID, prevCycleStart, cycleStart string) (model.TenantItem, error)
	// IncrementUsage adds one to the counter only while it is below the limit.
	IncrementUsage(ctx context.Context, tenantID string) (model.TenantItem, error)
	// DecrementUsage subtracts one from the counter only while it is positive.
	DecrementUsage(ctx context.Context, tenantID string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) FindChatbotByAPIKey(ctx context.Context, apiKey string) (model.ChatbotItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		r.db.Table(model.ChatbotsTable),
		aws.String(model.ChatbotsByAPIKeyIndex),
		"apiKey = :apiKey",
		map[string]types.AttributeValue{":apiKey": database.String(apiKey)},
		nil,
	)
	if err != nil {
		return model.ChatbotItem{}, err
	}
	if len(items) == 0 {
		return model.ChatbotItem{}, ErrNotFound
	}

	bots, err := database.UnmarshalItems[model.ChatbotItem](items[:1])
	if err != nil {
		return model.ChatbotItem{}, err
	}
	return bots[0], nil
}

func (r *DynamoRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	var tenant model.TenantItem
	err := r.db.Client.GetItem(ctx, r.db.Table(model.TenantsTable), database.StringKey("tenantId", tenantID), &tenant)
	if errors.Is(err, database.ErrItemNotFound) {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, err
}

func (r *DynamoRepository) StartCycle(ctx context.Context, tenantID, prevCycleStart, cycleStart string) (model.TenantItem, error) {
	condition := "attribute_exists(tenantId) AND #cs = :prev"
	if prevCycleStart == "" {
		condition = "attribute_exists(tenantId) AND (attribute_not_exists(#cs) OR #cs = :prev)"
	}

	var tenant model.TenantItem
	err := r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.TenantsTable),
		database.StringKey("tenantId", tenantID),
		"SET messagesSent = :one, #cs = :start",
		condition,
		map[string]types.AttributeValue{
			":one":   database.Number(1),
			":start": database.String(cycleStart),
			":prev":  database.String(prevCycleStart),
		},
		map[string]string{"#cs": "planCycleStartDate"},
		&tenant,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return model.TenantItem{}, ErrConflict
	}
	return tenant, err
}

func (r *DynamoRepository) IncrementUsage(ctx context.Context, tenantID string) (model.TenantItem, error) {
	var tenant model.TenantItem
	err := r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.TenantsTable),
		database.StringKey("tenantId", tenantID),
		"ADD messagesSent :one",
		"attribute_exists(tenantId) AND (attribute_not_exists(messagesSent) OR messagesSent < messageLimit)",
		map[string]types.AttributeValue{":one": database.Number(1)},
		nil,
		&tenant,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return model.TenantItem{}, ErrConflict
	}
	return tenant, err
}

func (r *DynamoRepository) DecrementUsage(ctx context.Context, tenantID string) error {
	err := r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.TenantsTable),
		database.StringKey("tenantId", tenantID),
		"ADD messagesSent :minusOne",
		"messagesSent > :zero",
		map[string]types.AttributeValue{
			":minusOne": database.Number(-1),
			":zero":     database.Number(0),
		},
		nil,
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrConflict
	}
	return err
}
