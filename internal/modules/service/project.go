package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/keepalive-app/keepalive/internal/modules/model"
	"github.com/keepalive-app/keepalive/internal/modules/repo"
	"github.com/keepalive-app/keepalive/internal/pkg/utils"
)

type ProjectService interface {
	Create(ctx context.Context, p *model.Project) error
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Project, error)
	GetByPublicID(ctx context.Context, ownerID uuid.UUID, publicID string) (*model.Project, error)
	DeleteByPublicID(ctx context.Context, ownerID uuid.UUID, publicID string) error
}

type projectService struct{ r repo.ProjectRepo }

func NewProjectService(r repo.ProjectRepo) ProjectService {
	return &projectService{r: r}
}

// Create issues the credential pair and persists the project in one step, so
// no project ever exists with only one of the pair set.
func (s *projectService) Create(ctx context.Context, p *model.Project) error {
	if p.OwnerID == uuid.Nil {
		return errors.New("owner id is empty")
	}
	if p.Name == "" {
		return errors.New("project name is empty")
	}

	publicID, err := utils.GeneratePublicID()
	if err != nil {
		return err
	}
	secret, err := utils.GenerateSecretToken()
	if err != nil {
		return err
	}

	p.PublicID = publicID
	p.SecretToken = secret

	return s.r.Create(ctx, p)
}

func (s *projectService) List(ctx context.Context, ownerID uuid.UUID) ([]model.Project, error) {
	return s.r.ListByOwner(ctx, ownerID)
}

func (s *projectService) GetByPublicID(ctx context.Context, ownerID uuid.UUID, publicID string) (*model.Project, error) {
	if publicID == "" {
		return nil, errors.New("public id is empty")
	}
	return s.r.GetByPublicID(ctx, ownerID, publicID)
}

func (s *projectService) DeleteByPublicID(ctx context.Context, ownerID uuid.UUID, publicID string) error {
	if publicID == "" {
		return errors.New("public id is empty")
	}
	return s.r.DeleteByPublicID(ctx, ownerID, publicID)
}
