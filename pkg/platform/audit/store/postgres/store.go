package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "assent/pkg/platform/audit"
	txcontext "assent/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the outbox
// worker. When the caller holds a transaction in context (the acceptance
// recorder does), the outbox write commits or rolls back with the ledger
// write.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for proper deserialization by downstream consumers.
type outboxPayload struct {
	ID               string `json:"ID"`
	Category         string `json:"Category"`
	Timestamp        string `json:"Timestamp"`
	Action           string `json:"Action"`
	Tenant           string `json:"Tenant,omitempty"`
	Kind             string `json:"Kind,omitempty"`
	Audience         string `json:"Audience,omitempty"`
	Language         string `json:"Language,omitempty"`
	IdentityHash     string `json:"IdentityHash,omitempty"`
	PolicyVersionRef string `json:"PolicyVersionRef,omitempty"`
	ConsentRef       string `json:"ConsentRef,omitempty"`
	Decision         string `json:"Decision,omitempty"`
	Reason           string `json:"Reason,omitempty"`
	RequestID        string `json:"RequestID,omitempty"`
	ActorID          string `json:"ActorID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Category always derives from action: the eventCategories map is the
	// source of truth.
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:               eventID.String(),
		Category:         string(category),
		Timestamp:        event.Timestamp.Format(time.RFC3339Nano),
		Action:           event.Action,
		Tenant:           event.Tenant,
		Kind:             event.Kind,
		Audience:         event.Audience,
		Language:         event.Language,
		IdentityHash:     event.IdentityHash.String(),
		PolicyVersionRef: event.PolicyVersionRef,
		ConsentRef:       event.ConsentRef,
		Decision:         event.Decision,
		Reason:           event.Reason,
		RequestID:        event.RequestID,
		ActorID:          event.ActorID,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	// Partition key: identity hash when present, else the scope, so per-
	// identity ordering survives the relay.
	aggregateID := event.IdentityHash.String()
	if aggregateID == "" {
		aggregateID = fmt.Sprintf("%s/%s/%s/%s", event.Tenant, event.Kind, event.Audience, event.Language)
	}

	query := `
		INSERT INTO outbox (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// OutboxEntry is a pending row awaiting publication.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// PendingEntries returns unpublished outbox rows in insertion order, locked
// against concurrent relays via FOR UPDATE SKIP LOCKED.
func (s *Store) PendingEntries(ctx context.Context, tx *sql.Tx, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		if err := rows.Scan(&entry.ID, &entry.AggregateID, &entry.EventType, &entry.Payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps outbox rows as relayed.
func (s *Store) MarkPublished(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, publishedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`
	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrings = append(idStrings, id.String())
	}
	if _, err := tx.ExecContext(ctx, query, publishedAt, pq.Array(idStrings)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// BeginTx starts a relay transaction on the underlying pool.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}
