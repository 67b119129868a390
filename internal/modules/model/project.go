package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/keepalive-app/keepalive/internal/pkg/liveness"
)

// Project is a monitored unit. PublicID and SecretToken are generated once
// at creation and never change; rotation means issuing a new project.
type Project struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PublicID string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"public_id"`
	// SecretToken is the sole credential for the ping channel. Returned to
	// the owner at creation/detail time only; never logged.
	SecretToken string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"secret_token,omitempty"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name        string    `gorm:"type:varchar(128);not null" json:"name"`

	// Status is a pure function of the ping history and the current time;
	// clients never set it directly.
	Status     liveness.Status `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	LastPingAt *time.Time      `json:"last_ping_at"`

	Configs datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"configs"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// Redacted returns a copy safe for list/display responses: the ping
// credential is stripped.
func (p Project) Redacted() Project {
	p.SecretToken = ""
	return p
}
