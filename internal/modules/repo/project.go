package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/keepalive-app/keepalive/internal/modules/model"
	"github.com/keepalive-app/keepalive/internal/pkg/liveness"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *model.Project) error
	FindBySecretToken(ctx context.Context, token string) (*model.Project, error)
	// RecordPing applies one accepted ping as a single conditional update
	// keyed by the secret token. It reports whether the update was applied;
	// a strictly newer last_ping_at already in storage (out-of-order or
	// racing ping) leaves the row untouched and returns false with no error.
	RecordPing(ctx context.Context, secretToken string, status liveness.Status, at time.Time) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Project, error)
	GetByPublicID(ctx context.Context, ownerID uuid.UUID, publicID string) (*model.Project, error)
	DeleteByPublicID(ctx context.Context, ownerID uuid.UUID, publicID string) error
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *projectRepo) FindBySecretToken(ctx context.Context, token string) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).Where(&model.Project{SecretToken: token}).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) RecordPing(ctx context.Context, secretToken string, status liveness.Status, at time.Time) (bool, error) {
	// Keyed by token rather than id so "token valid" and "project still
	// exists" are checked in the same statement, and guarded so last_ping_at
	// is monotonic under concurrent pings.
	res := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("secret_token = ? AND (last_ping_at IS NULL OR last_ping_at <= ?)", secretToken, at).
		Updates(map[string]interface{}{"status": status, "last_ping_at": at})
	return res.RowsAffected > 0, res.Error
}

func (r *projectRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Project, error) {
	var items []model.Project
	err := r.db.WithContext(ctx).
		Where(&model.Project{OwnerID: ownerID}).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *projectRepo) GetByPublicID(ctx context.Context, ownerID uuid.UUID, publicID string) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).Where(&model.Project{OwnerID: ownerID, PublicID: publicID}).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) DeleteByPublicID(ctx context.Context, ownerID uuid.UUID, publicID string) error {
	res := r.db.WithContext(ctx).
		Where(&model.Project{OwnerID: ownerID, PublicID: publicID}).
		Delete(&model.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
