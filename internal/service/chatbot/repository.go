package chatbot

import (
	"context"
	"errors"
	"sort"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("chatbot repository: not found")

type Repository interface {
	GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error)
	ListChatbots(ctx context.Context, tenantID string) ([]model.ChatbotItem, error)
	GetChatbot(ctx context.Context, chatbotID string) (model.ChatbotItem, error)
	FindChatbotByAPIKey(ctx context.Context, apiKey string) (model.ChatbotItem, error)
	CreateChatbot(ctx context.Context, bot model.ChatbotItem) error
	// UpdateChatbot writes the patch only when the chatbot belongs to tenantID.
	UpdateChatbot(ctx context.Context, tenantID, chatbotID string, patch Patch) (model.ChatbotItem, error)
	// DeleteChatbot removes the chatbot only when it belongs to tenantID.
	DeleteChatbot(ctx context.Context, tenantID, chatbotID string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
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

	bots, err := database.UnmarshalItems[model.ChatbotItem](items)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bots, func(i, j int) bool {
		return bots[i].CreatedAt < bots[j].CreatedAt
	})
	return bots, nil
}

func (r *DynamoRepository) GetChatbot(ctx context.Context, chatbotID string) (model.ChatbotItem, error) {
	var bot model.ChatbotItem
	err := r.db.Client.GetItem(ctx, r.db.Table(model.ChatbotsTable), database.StringKey("chatbotId", chatbotID), &bot)
	if errors.Is(err, database.ErrItemNotFound) {
		return model.ChatbotItem{}, ErrNotFound
	}
	return bot, err
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

func (r *DynamoRepository) CreateChatbot(ctx context.Context, bot model.ChatbotItem) error {
	return r.db.Client.PutItemIfAbsent(ctx, r.db.Table(model.ChatbotsTable), "chatbotId", bot)
}

func (r *DynamoRepository) UpdateChatbot(ctx context.Context, tenantID, chatbotID string, patch Patch) (model.ChatbotItem, error) {
	expr, values, names, err := patchExpression(patch)
	if err != nil {
		return model.ChatbotItem{}, err
	}
	values[":owner"] = database.String(tenantID)

	var bot model.ChatbotItem
	err = r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.ChatbotsTable),
		database.StringKey("chatbotId", chatbotID),
		expr,
		"attribute_exists(chatbotId) AND tenantId = :owner",
		values,
		names,
		&bot,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return model.ChatbotItem{}, ErrNotFound
	}
	return bot, err
}

func (r *DynamoRepository) DeleteChatbot(ctx context.Context, tenantID, chatbotID string) error {
	err := r.db.Client.ConditionalDeleteItem(
		ctx,
		r.db.Table(model.ChatbotsTable),
		database.StringKey("chatbotId", chatbotID),
		"attribute_exists(chatbotId) AND tenantId = :owner",
		map[string]types.AttributeValue{":owner": database.String(tenantID)},
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}
