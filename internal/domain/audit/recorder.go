package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/explorer/internal/domain/explore"
	"github.com/matiasleandrokruk/explorer/internal/infra/eventbus"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
	"github.com/matiasleandrokruk/explorer/internal/infra/metrics"
)

// SystemActorID is the actor recorded for tool invocations.
const SystemActorID = "tool-gateway"

const recordTimeout = 5 * time.Second

// Recorder writes explore.InvocationEvent payloads from the event bus into the audit trail.
type Recorder struct {
	svc    *AuditService
	logger *zap.Logger
}

func NewRecorder(svc *AuditService, logger *zap.Logger) *Recorder {
	return &Recorder{svc: svc, logger: logging.OrNop(logger).Named("audit")}
}

// Run consumes events until the channel is closed or ctx is done.
// Write failures are logged and never stop the loop.
func (r *Recorder) Run(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			inv, ok := evt.Payload.(explore.InvocationEvent)
			if !ok {
				r.logger.Warn("unexpected event payload", zap.String("topic", evt.Topic))
				continue
			}
			if err := r.record(ctx, inv); err != nil {
				r.logger.Error("record tool invocation", zap.Error(err), zap.String("kind", inv.Kind))
			}
		}
	}
}

func (r *Recorder) record(ctx context.Context, inv explore.InvocationEvent) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	meta := map[string]any{
		"mode":        inv.Mode,
		"outcome":     inv.Outcome,
		"duration_ms": inv.Duration.Milliseconds(),
	}
	if inv.UserID != "" {
		meta["user_id"] = inv.UserID
	}
	if inv.Error != "" {
		meta["error"] = inv.Error
	}

	var entityType, entityID *string
	if inv.Tool != "" {
		entityType, entityID = optional("tool"), optional(inv.Tool)
	}

	return r.svc.Log(ctx, &AuditEvent{
		ActorID:    SystemActorID,
		ActorType:  ActorTypeSystem,
		Action:     "tool." + inv.Kind,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    toJSON(EventDetails{Metadata: meta}),
		Outcome:    outcomeFromInvocation(inv.Outcome),
		CreatedAt:  inv.At,
	})
}

func outcomeFromInvocation(outcome string) Outcome {
	switch outcome {
	case metrics.OutcomeSuccess, metrics.OutcomeFallback:
		return OutcomeSuccess
	default:
		return OutcomeError
	}
}
