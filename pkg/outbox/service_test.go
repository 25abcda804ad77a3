package outbox

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

func TestMergePayloadsNewKeysWin(t *testing.T) {
	existing := json.RawMessage(`{"name":"old","price":"100.00"}`)
	next := json.RawMessage(`{"price":"120.00","inStock":true}`)

	merged, err := MergePayloads(existing, next)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(merged, &out))
	require.Equal(t, "old", out["name"])
	require.Equal(t, "120.00", out["price"])
	require.Equal(t, true, out["inStock"])
}

func TestMergePayloadsHandlesEmptySides(t *testing.T) {
	merged, err := MergePayloads(nil, json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(merged))

	merged, err = MergePayloads(json.RawMessage(`{"a":1}`), nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(merged))
}

func TestGroupByModelPreservesOrder(t *testing.T) {
	modelA := uuid.New()
	modelB := uuid.New()
	rows := []models.OutboxEvent{
		{ID: uuid.New(), ModelID: modelA, Lane: enums.LaneContent},
		{ID: uuid.New(), ModelID: modelB, Lane: enums.LanePrice},
		{ID: uuid.New(), ModelID: modelA, Lane: enums.LaneStock},
	}

	batches := GroupByModel(rows)
	require.Len(t, batches, 2)
	require.Equal(t, modelA, batches[0].ModelID)
	require.Len(t, batches[0].Events, 2)
	require.Equal(t, modelB, batches[1].ModelID)
	require.Len(t, batches[1].Events, 1)
}

func TestSortedLanesStable(t *testing.T) {
	events := []models.OutboxEvent{
		{Lane: enums.LaneStock},
		{Lane: enums.LaneContent},
		{Lane: enums.LaneStock},
		{Lane: enums.LanePrice},
	}
	lanes := SortedLanes(events)
	require.Equal(t, []enums.OutboxLane{enums.LaneContent, enums.LanePrice, enums.LaneStock}, lanes)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(t.Context(), nil, Event{
		EntityType: enums.EntityModel,
		EntityID:   uuid.New(),
		ModelID:    uuid.New(),
		Lane:       enums.LaneContent,
	})
	require.Error(t, err)
}
