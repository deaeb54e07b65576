package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/explorer/internal/domain/explore"
	"github.com/matiasleandrokruk/explorer/internal/infra/eventbus"
	"github.com/matiasleandrokruk/explorer/internal/infra/metrics"
)

func TestRecorder_RecordsInvocations(t *testing.T) {
	t.Parallel()
	service := NewAuditService(setupTestDB(t))
	bus := eventbus.New()
	events := bus.Subscribe(eventbus.TopicToolInvoked)

	done := make(chan struct{})
	go func() {
		NewRecorder(service, nil).Run(context.Background(), events)
		close(done)
	}()

	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	bus.Publish(eventbus.TopicToolInvoked, explore.InvocationEvent{
		UserID:   "u1",
		Kind:     explore.KindSearch,
		Tool:     "search",
		Mode:     "live",
		Outcome:  metrics.OutcomeSuccess,
		Duration: 1500 * time.Millisecond,
		At:       at,
	})
	bus.Publish(eventbus.TopicToolInvoked, "not an invocation")
	bus.Publish(eventbus.TopicToolInvoked, explore.InvocationEvent{
		Kind:    explore.KindImage,
		Mode:    "live",
		Outcome: metrics.OutcomeConnection,
		Error:   "connect: refused",
		At:      at.Add(time.Second),
	})
	bus.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not stop after the bus closed")
	}

	got, err := service.ListByActor(context.Background(), SystemActorID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	image, search := got[0], got[1]
	assert.Equal(t, ActorTypeSystem, search.ActorType)
	assert.Equal(t, "tool.search", search.Action)
	assert.Equal(t, OutcomeSuccess, search.Outcome)
	assert.Equal(t, "tool", *search.EntityType)
	assert.Equal(t, "search", *search.EntityID)
	assert.True(t, at.Equal(search.CreatedAt))

	var details struct {
		Metadata map[string]any `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(search.Details, &details))
	assert.Equal(t, "u1", details.Metadata["user_id"])
	assert.Equal(t, float64(1500), details.Metadata["duration_ms"])

	assert.Equal(t, "tool.image", image.Action)
	assert.Equal(t, OutcomeError, image.Outcome)
	assert.Nil(t, image.EntityID, "no tool was selected")
	var imageDetails struct {
		Metadata map[string]any `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(image.Details, &imageDetails))
	assert.Equal(t, "connect: refused", imageDetails.Metadata["error"])
	assert.NotContains(t, imageDetails.Metadata, "user_id")
}

func TestRecorder_StopsOnContextCancel(t *testing.T) {
	t.Parallel()
	service := NewAuditService(setupTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewRecorder(service, nil).Run(ctx, make(chan eventbus.Event))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("recorder ignored context cancellation")
	}
}

func TestOutcomeFromInvocation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OutcomeSuccess, outcomeFromInvocation(metrics.OutcomeSuccess))
	assert.Equal(t, OutcomeSuccess, outcomeFromInvocation(metrics.OutcomeFallback))
	assert.Equal(t, OutcomeError, outcomeFromInvocation(metrics.OutcomeToolMissing))
	assert.Equal(t, OutcomeError, outcomeFromInvocation(metrics.OutcomeInvocation))
}

func TestToJSON_Unencodable(t *testing.T) {
	t.Parallel()

	assert.Nil(t, toJSON(map[string]any{"ch": make(chan int)}))
	assert.JSONEq(t, `{"a":1}`, string(toJSON(map[string]int{"a": 1})))
}
