package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assent/internal/targeting"
	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
)

// PostgresStore persists targeting overrides in PostgreSQL. The one-active-
// override-per-identity invariant is closed by the partial unique index on
// (identity_hash) WHERE is_active.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const overrideColumns = `
	id, identity_hash, policy_version_id, start_date, end_date,
	is_active, created_at, created_by, deactivated_at
`

func (s *PostgresStore) CreateReplacingActive(ctx context.Context, override *targeting.Override) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin override transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE targeting_overrides
		SET is_active = false, deactivated_at = $2
		WHERE identity_hash = $1 AND is_active
	`, string(override.IdentityHash), override.CreatedAt)
	if err != nil {
		return fmt.Errorf("deactivate prior overrides: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO targeting_overrides (`+overrideColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(override.ID),
		string(override.IdentityHash),
		uuid.UUID(override.PolicyVersion),
		nullTimeValue(override.StartDate),
		nullTimeValue(override.EndDate),
		override.Active,
		override.CreatedAt,
		override.CreatedBy,
		nullTimeValue(override.DeactivatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert override: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit override transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindActive(ctx context.Context, identity domain.IdentityHash) (*targeting.Override, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+overrideColumns+`
		FROM targeting_overrides
		WHERE identity_hash = $1 AND is_active
	`, string(identity))
	override, err := scanOverride(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active override: %w", err)
	}
	return override, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.OverrideID) (*targeting.Override, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+overrideColumns+`
		FROM targeting_overrides
		WHERE id = $1
	`, uuid.UUID(id))
	override, err := scanOverride(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find override by id: %w", err)
	}
	return override, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, id domain.OverrideID, deactivatedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE targeting_overrides
		SET is_active = false, deactivated_at = $2
		WHERE id = $1 AND is_active
	`, uuid.UUID(id), deactivatedAt)
	if err != nil {
		return fmt.Errorf("deactivate override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate override: %w", err)
	}
	if affected == 0 {
		// Either missing or already inactive; only the former is an error.
		if _, err := s.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identity domain.IdentityHash) ([]*targeting.Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+overrideColumns+`
		FROM targeting_overrides
		WHERE identity_hash = $1
		ORDER BY created_at DESC, id DESC
	`, string(identity))
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*targeting.Override
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return overrides, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOverride(row rowScanner) (*targeting.Override, error) {
	var (
		override      targeting.Override
		id            uuid.UUID
		versionID     uuid.UUID
		startDate     sql.NullTime
		endDate       sql.NullTime
		deactivatedAt sql.NullTime
	)
	err := row.Scan(
		&id,
		(*string)(&override.IdentityHash),
		&versionID,
		&startDate,
		&endDate,
		&override.Active,
		&override.CreatedAt,
		&override.CreatedBy,
		&deactivatedAt,
	)
	if err != nil {
		return nil, err
	}
	override.ID = domain.OverrideID(id)
	override.PolicyVersion = domain.PolicyVersionID(versionID)
	if startDate.Valid {
		override.StartDate = &startDate.Time
	}
	if endDate.Valid {
		override.EndDate = &endDate.Time
	}
	if deactivatedAt.Valid {
		override.DeactivatedAt = &deactivatedAt.Time
	}
	return &override, nil
}

func nullTimeValue(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
