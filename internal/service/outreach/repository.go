package outreach

import (
	"context"
	"errors"
	"sort"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound      = errors.New("outreach repository: not found")
	ErrAlreadyExists = errors.New("outreach repository: already exists")
)

type Repository interface {
	CreateSubmission(ctx context.Context, submission model.SubmissionItem) error
	ListSubmissions(ctx context.Context) ([]model.SubmissionItem, error)
	// ResolveSubmission moves a pending submission to status. Anything not
	// pending is reported as ErrNotFound.
	ResolveSubmission(ctx context.Context, submissionID string, status model.SubmissionStatus) (model.SubmissionItem, error)
	DeleteSubmission(ctx context.Context, submissionID string) error
	AddSubscriber(ctx context.Context, subscriber model.SubscriberItem) error
	ListSubscribers(ctx context.Context) ([]model.SubscriberItem, error)
	ListTenantEmails(ctx context.Context) ([]string, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateSubmission(ctx context.Context, submission model.SubmissionItem) error {
	return r.db.Client.PutItemIfAbsent(ctx, r.db.Table(model.SubmissionsTable), "submissionId", submission)
}

func (r *DynamoRepository) ListSubmissions(ctx context.Context) ([]model.SubmissionItem, error) {
	items, err := r.db.Client.ScanAll(ctx, r.db.Table(model.SubmissionsTable), "", nil, nil)
	if err != nil {
		return nil, err
	}
	submissions, err := database.UnmarshalItems[model.SubmissionItem](items)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(submissions, func(i, j int) bool {
		return submissions[i].CreatedAt > submissions[j].CreatedAt
	})
	return submissions, nil
}

func (r *DynamoRepository) ResolveSubmission(ctx context.Context, submissionID string, status model.SubmissionStatus) (model.SubmissionItem, error) {
	var submission model.SubmissionItem
	err := r.db.Client.ConditionalUpdateItem(
		ctx,
		r.db.Table(model.SubmissionsTable),
		database.StringKey("submissionId", submissionID),
		"SET #status = :status",
		"attribute_exists(submissionId) AND #status = :pending",
		map[string]types.AttributeValue{
			":status":  database.String(string(status)),
			":pending": database.String(string(model.SubmissionPending)),
		},
		map[string]string{"#status": "status"},
		&submission,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return model.SubmissionItem{}, ErrNotFound
	}
	return submission, err
}

func (r *DynamoRepository) DeleteSubmission(ctx context.Context, submissionID string) error {
	err := r.db.Client.DeleteItem(ctx, r.db.Table(model.SubmissionsTable), database.StringKey("submissionId", submissionID))
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) AddSubscriber(ctx context.Context, subscriber model.SubscriberItem) error {
	err := r.db.Client.PutItemIfAbsent(ctx, r.db.Table(model.SubscribersTable), "email", subscriber)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrAlreadyExists
	}
	return err
}

func (r *DynamoRepository) ListSubscribers(ctx context.Context) ([]model.SubscriberItem, error) {
	items, err := r.db.Client.ScanAll(ctx, r.db.Table(model.SubscribersTable), "", nil, nil)
	if err != nil {
		return nil, err
	}
	subscribers, err := database.UnmarshalItems[model.SubscriberItem](items)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(subscribers, func(i, j int) bool {
		return subscribers[i].SubscribedAt > subscribers[j].SubscribedAt
	})
	return subscribers, nil
}

func (r *DynamoRepository) ListTenantEmails(ctx context.Context) ([]string, error) {
	items, err := r.db.Client.ScanAll(ctx, r.db.Table(model.TenantsTable), "", nil, nil)
	if err != nil {
		return nil, err
	}
	tenants, err := database.UnmarshalItems[model.TenantItem](items)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(tenants))
	for _, tenant := range tenants {
		if tenant.Email != "" {
			emails = append(emails, tenant.Email)
		}
	}
	return emails, nil
}
