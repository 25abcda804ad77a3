package enums

import "fmt"

// OutboxLane maps to the outbox_lane enum in Postgres. Lanes let cheap price
// and stock updates bypass full content projection rebuilds.
type OutboxLane string

const (
	LaneContent OutboxLane = "content"
	LanePrice   OutboxLane = "price"
	LaneStock   OutboxLane = "stock"
)

var validLanes = []OutboxLane{LaneContent, LanePrice, LaneStock}

// IsValid reports whether the value matches the canonical outbox_lane enum.
func (l OutboxLane) IsValid() bool {
	for _, candidate := range validLanes {
		if candidate == l {
			return true
		}
	}
	return false
}

func (l OutboxLane) String() string { return string(l) }

// ParseOutboxLane converts raw input into OutboxLane.
func ParseOutboxLane(value string) (OutboxLane, error) {
	for _, candidate := range validLanes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox lane %q", value)
}

// OutboxStatus maps to the outbox_status enum in Postgres.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxSuccess    OutboxStatus = "success"
	OutboxFailed     OutboxStatus = "failed"
)

var validOutboxStatuses = []OutboxStatus{
	OutboxPending,
	OutboxProcessing,
	OutboxSuccess,
	OutboxFailed,
}

// IsValid reports whether the value matches the canonical outbox_status enum.
func (s OutboxStatus) IsValid() bool {
	for _, candidate := range validOutboxStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s OutboxStatus) String() string { return string(s) }

// OutboxEntityType identifies which catalog table an event refers to.
type OutboxEntityType string

const (
	EntityModel   OutboxEntityType = "model"
	EntityVariant OutboxEntityType = "variant"
	EntityOffer   OutboxEntityType = "offer"
)

var validEntityTypes = []OutboxEntityType{EntityModel, EntityVariant, EntityOffer}

// IsValid reports whether the value matches the canonical entity_type enum.
func (e OutboxEntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func (e OutboxEntityType) String() string { return string(e) }
