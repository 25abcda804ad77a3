package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/skuforge/catalog-engine/pkg/enums"
)

// OutboxDLQ holds events whose propagation failed permanently (for example a
// client error from the destination channel). Rows are kept for inspection
// and manual replay.
type OutboxDLQ struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID      uuid.UUID              `gorm:"column:event_id;type:uuid;not null"`
	EntityType   enums.OutboxEntityType `gorm:"column:entity_type;type:entity_type;not null"`
	EntityID     uuid.UUID              `gorm:"column:entity_id;type:uuid;not null"`
	ModelID      uuid.UUID              `gorm:"column:model_id;type:uuid;not null"`
	ChannelID    uuid.UUID              `gorm:"column:channel_id;type:uuid;not null"`
	Lane         enums.OutboxLane       `gorm:"column:lane;type:outbox_lane;not null"`
	Payload      json.RawMessage        `gorm:"column:payload;type:jsonb;not null"`
	ErrorMessage *string                `gorm:"column:error_message"`
	AttemptCount int                    `gorm:"column:attempt_count;not null;default:0"`
	FailedAt     time.Time              `gorm:"column:failed_at;not null"`
}

func (OutboxDLQ) TableName() string { return "outbox_dlq" }
