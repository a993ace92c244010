package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"assent/internal/ledger"
	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
	"assent/pkg/platform/tx"
)

const pqUniqueViolation = "23505"

// PostgresStore persists consent records in PostgreSQL. Writes join the
// transaction carried in ctx when the acceptance recorder opened one, so the
// ledger row and its outbox event commit or roll back together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const consentColumns = `
	id, consent_ref, identity_hash, identity_last4,
	tenant, kind, audience, language,
	policy_version_id, policy_version, accepted_at,
	ip_address, user_agent, device_summary, content_snapshot
`

func (s *PostgresStore) Create(ctx context.Context, record *ledger.ConsentRecord) error {
	query := `
		INSERT INTO consent_records (` + consentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		record.ConsentRef,
		string(record.IdentityHash),
		record.IdentityLast4,
		string(record.Scope.Tenant),
		string(record.Scope.Kind),
		string(record.Scope.Audience),
		string(record.Scope.Language),
		uuid.UUID(record.PolicyVersionID),
		record.PolicyVersion,
		record.AcceptedAt,
		record.IPAddress,
		record.UserAgent,
		record.DeviceSummary,
		nullString(record.ContentSnapshot),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByIdentityAndVersion(ctx context.Context, identity domain.IdentityHash, versionID domain.PolicyVersionID) (*ledger.ConsentRecord, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+consentColumns+`
		FROM consent_records
		WHERE identity_hash = $1 AND policy_version_id = $2
	`, string(identity), uuid.UUID(versionID))
	record, err := scanConsentRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) LatestByIdentityAndScope(ctx context.Context, identity domain.IdentityHash, scope domain.Scope) (*ledger.ConsentRecord, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+consentColumns+`
		FROM consent_records
		WHERE identity_hash = $1
		  AND tenant = $2 AND kind = $3 AND audience = $4 AND language = $5
		ORDER BY accepted_at DESC, consent_ref DESC
		LIMIT 1
	`, string(identity),
		string(scope.Tenant), string(scope.Kind), string(scope.Audience), string(scope.Language))
	record, err := scanConsentRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find latest consent record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identity domain.IdentityHash) ([]*ledger.ConsentRecord, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+consentColumns+`
		FROM consent_records
		WHERE identity_hash = $1
		ORDER BY accepted_at DESC, consent_ref DESC
	`, string(identity))
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var records []*ledger.ConsentRecord
	for rows.Next() {
		record, err := scanConsentRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) DistinctIdentityScopes(ctx context.Context, limit, offset int) ([]ledger.IdentityScope, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT DISTINCT identity_hash, tenant, kind, audience, language
		FROM consent_records
		ORDER BY identity_hash, tenant, kind, audience, language
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list identity scopes: %w", err)
	}
	defer rows.Close()

	var pairs []ledger.IdentityScope
	for rows.Next() {
		var pair ledger.IdentityScope
		err := rows.Scan(
			(*string)(&pair.IdentityHash),
			(*string)(&pair.Scope.Tenant),
			(*string)(&pair.Scope.Kind),
			(*string)(&pair.Scope.Audience),
			(*string)(&pair.Scope.Language),
		)
		if err != nil {
			return nil, fmt.Errorf("scan identity scope: %w", err)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity scopes: %w", err)
	}
	return pairs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsentRecord(row rowScanner) (*ledger.ConsentRecord, error) {
	var (
		record    ledger.ConsentRecord
		id        uuid.UUID
		versionID uuid.UUID
		snapshot  sql.NullString
	)
	err := row.Scan(
		&id,
		&record.ConsentRef,
		(*string)(&record.IdentityHash),
		&record.IdentityLast4,
		(*string)(&record.Scope.Tenant),
		(*string)(&record.Scope.Kind),
		(*string)(&record.Scope.Audience),
		(*string)(&record.Scope.Language),
		&versionID,
		&record.PolicyVersion,
		&record.AcceptedAt,
		&record.IPAddress,
		&record.UserAgent,
		&record.DeviceSummary,
		&snapshot,
	)
	if err != nil {
		return nil, err
	}
	record.ID = domain.ConsentRecordID(id)
	record.PolicyVersionID = domain.PolicyVersionID(versionID)
	if snapshot.Valid {
		record.ContentSnapshot = &snapshot.String
	}
	return &record, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
