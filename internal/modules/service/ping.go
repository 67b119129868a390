package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/keepalive-app/keepalive/internal/modules/model"
	"github.com/keepalive-app/keepalive/internal/modules/repo"
	"github.com/keepalive-app/keepalive/internal/pkg/liveness"
)

// ErrInvalidToken covers every authentication failure past header parsing:
// unknown token, revoked token, deleted project. Callers must not be able to
// tell these apart.
var ErrInvalidToken = errors.New("invalid api token")

type PingService interface {
	// Authenticate resolves a presented bearer token to its project.
	// Read-only; recording the ping is a separate step.
	Authenticate(ctx context.Context, token string) (*model.Project, error)
	// Record applies one validated ping. Reports whether storage was
	// actually updated; a stale replay is acknowledged without applying.
	Record(ctx context.Context, p *model.Project, outcome liveness.Outcome, now time.Time) (bool, error)
}

type pingService struct{ r repo.ProjectRepo }

func NewPingService(r repo.ProjectRepo) PingService {
	return &pingService{r: r}
}

func (s *pingService) Authenticate(ctx context.Context, token string) (*model.Project, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	p, err := s.r.FindBySecretToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// The lookup already matched on the full token; re-compare in constant
	// time so no storage collation quirk can weaken the check.
	if subtle.ConstantTimeCompare([]byte(p.SecretToken), []byte(token)) != 1 {
		return nil, ErrInvalidToken
	}

	return p, nil
}

func (s *pingService) Record(ctx context.Context, p *model.Project, outcome liveness.Outcome, now time.Time) (bool, error) {
	status, at := liveness.Apply(outcome, now)
	return s.r.RecordPing(ctx, p.SecretToken, status, at)
}
