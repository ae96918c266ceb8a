package auth

import (
	"context"
	"errors"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound      = errors.New("auth repository: not found")
	ErrAlreadyExists = errors.New("auth repository: already exists")
)

type Repository interface {
	CreateTenant(ctx context.Context, tenant model.TenantItem) error
	CreateChatbot(ctx context.Context, bot model.ChatbotItem) error
	FindTenantByEmail(ctx context.Context, email string) (model.TenantItem, error)
	GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error)
	SetOTP(ctx context.Context, tenantID, otp, expiresAt string) error
	MarkVerified(ctx context.Context, tenantID string) (model.TenantItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateTenant(ctx context.Context, tenant model.TenantItem) error {
	err := r.db.Client.PutItemIfAbsent(ctx, r.db.Table(model.TenantsTable), "tenantId", tenant)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrAlreadyExists
	}
	return err
}

func (r *DynamoRepository) CreateChatbot(ctx context.Context, bot model.ChatbotItem) error {
	return r.db.Client.PutItemIfAbsent(ctx, r.db.Table(model.ChatbotsTable), "chatbotId", bot)
}

func (r *DynamoRepository) FindTenantByEmail(ctx context.Context, email string) (model.TenantItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		r.db.Table(model.TenantsTable),
		aws.String(model.TenantsByEmailIndex),
		"email = :email",
		map[string]types.AttributeValue{":email": database.String(email)},
		nil,
	)
	if err != nil {
		return model.TenantItem{}, err
	}
	if len(items) == 0 {
		return model.TenantItem{}, ErrNotFound
	}

	tenants, err := database.UnmarshalItems[model.TenantItem](items[:1])
	if err != nil {
		return model.TenantItem{}, err
	}
	return tenants[0], nil
}

func (r *DynamoRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	var tenant model.TenantItem
	err := r.db.Client.GetItem(ctx, r.db.Table(model.TenantsTable), database.StringKey("tenantId", tenantID), &tenant)
	if errors.Is(err, database.ErrItemNotFound) {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, err
}

func (r *DynamoRepository) SetOTP(ctx context.Context, tenantID, otp, expiresAt string) error {
	err := r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.TenantsTable),
		database.StringKey("tenantId", tenantID),
		"SET otp = :otp, otpExpiresAt = :exp",
		"attribute_exists(tenantId)",
		map[string]types.AttributeValue{
			":otp": database.String(otp),
			":exp": database.String(expiresAt),
		},
		nil,
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) MarkVerified(ctx context.Context, tenantID string) (model.TenantItem, error) {
	var tenant model.TenantItem
	err := r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.TenantsTable),
		database.StringKey("tenantId", tenantID),
		"SET isVerified = :true REMOVE otp, otpExpiresAt",
		"attribute_exists(tenantId)",
		map[string]types.AttributeValue{":true": database.Bool(true)},
		nil,
		&tenant,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, err
}
