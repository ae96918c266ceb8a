package admin

import (
	"context"
	"errors"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("admin repository: not found")

type Repository interface {
	ListTenants(ctx context.Context) ([]model.TenantItem, error)
	GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error)
	ListChatbots(ctx context.Context, tenantID string) ([]model.ChatbotItem, error)
	// DeleteTenant removes the tenant and every chatbot it owns.
	DeleteTenant(ctx context.Context, tenantID string) error
	SetBanned(ctx context.Context, tenantID string, banned bool) (model.TenantItem, error)
	SetPlan(ctx context.Context, tenantID string, plan model.Plan) (model.TenantItem, error)
	SetChatbotAPIKey(ctx context.Context, chatbotID, apiKey string) (model.ChatbotItem, error)
	DeleteChatbot(ctx context.Context, chatbotID string) error
	ListSubmissions(ctx context.Context) ([]model.SubmissionItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) ListTenants(ctx context.Context) ([]model.TenantItem, error) {
	items, err := r.db.Client.ScanAll(ctx, r.db.Table(model.TenantsTable), "", nil, nil)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalItems[model.TenantItem](items)
}

func (r *DynamoRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	var tenant model.TenantItem
	err := r.db.Client.GetItem(ctx, r.db.Table(model.TenantsTable), database.StringKey("tenantId", tenantID), &tenant)
	if errors.Is(err, database.ErrItemNotFound) {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, err
}

func (r *DynamoRepository) ListChatbots(ctx context.Context, tenantID string) ([]model.ChatbotItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		r.db.Table(model.ChatbotsTable),
		aws.String(model.ChatbotsByOwnerIndex),
		"tenantId = :tenantId",
		map[string]types.AttributeValue{":tenantId": database.String(tenantID)},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalItems[model.ChatbotItem](items)
}

func (r *DynamoRepository) DeleteTenant(ctx context.Context, tenantID string) error {
	bots, err := r.ListChatbots(ctx, tenantID)
	if err != nil {
		return err
	}
	keys := make([]map[string]types.AttributeValue, 0, len(bots))
	for _, bot := range bots {
		keys = append(keys, database.StringKey("chatbotId", bot.ChatbotID))
	}
	if err := r.db.Client.BatchDeleteItems(ctx, r.db.Table(model.ChatbotsTable), keys); err != nil {
		return err
	}

	err = r.db.Client.DeleteItem(ctx, r.db.Table(model.TenantsTable), database.StringKey("tenantId", tenantID))
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) SetBanned(ctx context.Context, tenantID string, banned bool) (model.TenantItem, error) {
	var tenant model.TenantItem
	err := r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.TenantsTable),
		database.StringKey("tenantId", tenantID),
		"SET isBanned = :banned",
		"attribute_exists(tenantId)",
		map[string]types.AttributeValue{":banned": database.Bool(banned)},
		nil,
		&tenant,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, err
}

func (r *DynamoRepository) SetPlan(ctx context.Context, tenantID string, plan model.Plan) (model.TenantItem, error) {
	limits := plan.Limits()

	var tenant model.TenantItem
	err := r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.TenantsTable),
		database.StringKey("tenantId", tenantID),
		"SET #plan = :plan, messageLimit = :messages, chatbotLimit = :chatbots",
		"attribute_exists(tenantId)",
		map[string]types.AttributeValue{
			":plan":     database.String(plan.String()),
			":messages": database.Number(limits.Messages),
			":chatbots": database.Number(limits.Chatbots),
		},
		map[string]string{"#plan": "plan"},
		&tenant,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, err
}

func (r *DynamoRepository) SetChatbotAPIKey(ctx context.Context, chatbotID, apiKey string) (model.ChatbotItem, error) {
	var bot model.ChatbotItem
	err := r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.ChatbotsTable),
		database.StringKey("chatbotId", chatbotID),
		"SET apiKey = :apiKey",
		"attribute_exists(chatbotId)",
		map[string]types.AttributeValue{":apiKey": database.String(apiKey)},
		nil,
		&bot,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return model.ChatbotItem{}, ErrNotFound
	}
	return bot, err
}

func (r *DynamoRepository) DeleteChatbot(ctx context.Context, chatbotID string) error {
	err := r.db.Client.DeleteItem(ctx, r.db.Table(model.ChatbotsTable), database.StringKey("chatbotId", chatbotID))
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) ListSubmissions(ctx context.Context) ([]model.SubmissionItem, error) {
	items, err := r.db.Client.ScanAll(ctx, r.db.Table(model.SubmissionsTable), "", nil, nil)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalItems[model.SubmissionItem](items)
}
