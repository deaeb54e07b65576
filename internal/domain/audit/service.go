// Package audit keeps the append-only trail of authenticated requests and tool invocations.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/explorer/internal/infra/sqlite"
)

// AuditService provides audit logging capabilities
// All operations are append-only; no updates or deletes are supported
//
//nolint:revive // stable domain name
type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditService creates a new audit service
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db, now: time.Now}
}

const selectColumns = `
	SELECT id, actor_id, actor_type, action, entity_type, entity_id, details,
	       outcome, trace_id, ip_address, user_agent, created_at
	FROM audit_event`

// Log appends event. ID and CreatedAt are filled in when empty.
func (s *AuditService) Log(ctx context.Context, event *AuditEvent) error {
	if event.ID == "" {
		event.ID = generateID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	details := normalizeJSON(event.Details, []byte("{}"))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_event (id, actor_id, actor_type, action, entity_type, entity_id, details,
		                         outcome, trace_id, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID, event.ActorID, string(event.ActorType), event.Action,
		event.EntityType, event.EntityID, string(details), string(event.Outcome),
		event.TraceID, event.IPAddress, event.UserAgent, sqlite.FormatTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// LogWithDetails is a helper for common case with structured details
func (s *AuditService) LogWithDetails(
	ctx context.Context,
	actorID string,
	actorType ActorType,
	action string,
	entityType *string,
	entityID *string,
	details *EventDetails,
	outcome Outcome,
	req *RequestInfo,
) error {
	var detailsJSON json.RawMessage
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}

	event := &AuditEvent{
		ActorID:    actorID,
		ActorType:  actorType,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    detailsJSON,
		Outcome:    outcome,
	}
	if req != nil {
		event.TraceID = optional(req.TraceID)
		event.IPAddress = optional(req.IPAddress)
		event.UserAgent = optional(req.UserAgent)
	}
	return s.Log(ctx, event)
}

// GetByID retrieves a single audit event by ID
func (s *AuditService) GetByID(ctx context.Context, id string) (*AuditEvent, error) {
	return scanEvent(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
}

// ListRecent returns events newest first with the total count.
func (s *AuditService) ListRecent(ctx context.Context, limit, offset int) ([]*AuditEvent, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_event").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}
	events, err := s.list(ctx, selectColumns+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListByActor retrieves audit events for a specific actor
func (s *AuditService) ListByActor(ctx context.Context, actorID string, limit int) ([]*AuditEvent, error) {
	return s.list(ctx, selectColumns+`
		WHERE actor_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, actorID, limit)
}

// ListByOutcome retrieves audit events filtered by outcome
func (s *AuditService) ListByOutcome(ctx context.Context, outcome Outcome, limit, offset int) ([]*AuditEvent, error) {
	return s.list(ctx, selectColumns+`
		WHERE outcome = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, string(outcome), limit, offset)
}

// ListByAction retrieves audit events filtered by action type
func (s *AuditService) ListByAction(ctx context.Context, action string, limit, offset int) ([]*AuditEvent, error) {
	return s.list(ctx, selectColumns+`
		WHERE action = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, action, limit, offset)
}

func (s *AuditService) list(ctx context.Context, query string, args ...any) ([]*AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []*AuditEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*AuditEvent, error) {
	var (
		e                             AuditEvent
		actorType, outcome, createdAt string
		details                       string
		entityType, entityID          sql.NullString
		traceID, ip, ua               sql.NullString
	)
	if err := row.Scan(&e.ID, &e.ActorID, &actorType, &e.Action, &entityType, &entityID,
		&details, &outcome, &traceID, &ip, &ua, &createdAt); err != nil {
		return nil, err
	}
	e.ActorType = ActorType(actorType)
	e.Outcome = Outcome(outcome)
	e.Details = json.RawMessage(details)
	e.EntityType = fromNull(entityType)
	e.EntityID = fromNull(entityID)
	e.TraceID = fromNull(traceID)
	e.IPAddress = fromNull(ip)
	e.UserAgent = fromNull(ua)

	var err error
	if e.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse audit event %s time: %w", e.ID, err)
	}
	return &e, nil
}

// generateID returns a UUIDv7 so ids sort by creation time.
func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func normalizeJSON(raw json.RawMessage, fallback []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(fallback)
	}
	return raw
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// toJSON returns nil when v cannot be encoded, which Log stores as "{}".
func toJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
