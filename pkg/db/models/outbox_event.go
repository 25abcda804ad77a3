package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/skuforge/catalog-engine/pkg/enums"
)

// OutboxEvent is a durable intent to propagate a catalog change to one sales
// channel on one lane, written inside the same transaction as the mutation.
// At most one pending row exists per (entity, channel, lane); later mutations
// merge their payload into it.
type OutboxEvent struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EntityType enums.OutboxEntityType `gorm:"column:entity_type;type:entity_type;not null"`
	EntityID   uuid.UUID              `gorm:"column:entity_id;type:uuid;not null"`
	ModelID    uuid.UUID              `gorm:"column:model_id;type:uuid;not null"`
	ChannelID  uuid.UUID              `gorm:"column:channel_id;type:uuid;not null"`
	Lane       enums.OutboxLane       `gorm:"column:lane;type:outbox_lane;not null"`
	Payload    json.RawMessage        `gorm:"column:payload;type:jsonb;not null;default:'{}'"`
	Status     enums.OutboxStatus     `gorm:"column:status;type:outbox_status;not null;default:'pending'"`
	RetryCount int                    `gorm:"column:retry_count;not null;default:0"`
	LastError  *string                `gorm:"column:last_error"`
	ClaimedAt  *time.Time             `gorm:"column:claimed_at"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
