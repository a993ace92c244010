package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"assent/internal/catalog"
	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
)

// Postgres error codes surfaced as conflicts.
const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

// PostgresStore persists policy versions in PostgreSQL. The overlap invariant
// lives in the policy_versions_no_overlap EXCLUDE constraint; this store only
// translates the violation.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const policyVersionColumns = `
	id, tenant, kind, audience, language, version, title, body,
	effective_from, effective_to, is_mandatory, grace_days,
	enforce_mode, reconsent_trigger, is_published, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, version *catalog.PolicyVersion) error {
	query := `
		INSERT INTO policy_versions (` + policyVersionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(version.ID),
		string(version.Scope.Tenant),
		string(version.Scope.Kind),
		string(version.Scope.Audience),
		string(version.Scope.Language),
		version.Version,
		version.Title,
		version.Body,
		version.EffectiveFrom,
		nullTime(version.EffectiveTo),
		version.Mandatory,
		version.GraceDays,
		string(version.EnforceMode),
		string(version.ReconsentTrigger),
		version.Published,
		version.CreatedAt,
		version.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create policy version: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error) {
	query := `SELECT ` + policyVersionColumns + ` FROM policy_versions WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(id))
	version, err := scanPolicyVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find policy version by id: %w", err)
	}
	return version, nil
}

func (s *PostgresStore) FindEffective(ctx context.Context, scope domain.Scope, now time.Time) ([]*catalog.PolicyVersion, error) {
	query := `
		SELECT ` + policyVersionColumns + `
		FROM policy_versions
		WHERE tenant = $1 AND kind = $2 AND audience = $3 AND language = $4
		  AND is_published
		  AND effective_from <= $5
		  AND (effective_to IS NULL OR effective_to > $5)
		ORDER BY effective_from DESC, created_at DESC, id DESC
	`
	return s.queryVersions(ctx, query,
		string(scope.Tenant), string(scope.Kind), string(scope.Audience), string(scope.Language), now)
}

func (s *PostgresStore) ListByScope(ctx context.Context, scope domain.Scope) ([]*catalog.PolicyVersion, error) {
	query := `
		SELECT ` + policyVersionColumns + `
		FROM policy_versions
		WHERE tenant = $1 AND kind = $2 AND audience = $3 AND language = $4
		ORDER BY effective_from DESC, created_at DESC, id DESC
	`
	return s.queryVersions(ctx, query,
		string(scope.Tenant), string(scope.Kind), string(scope.Audience), string(scope.Language))
}

func (s *PostgresStore) SetPublished(ctx context.Context, id domain.PolicyVersionID, published bool, updatedAt time.Time) error {
	query := `
		UPDATE policy_versions
		SET is_published = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(id), published, updatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("set policy version published: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set policy version published: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryVersions(ctx context.Context, query string, args ...any) ([]*catalog.PolicyVersion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query policy versions: %w", err)
	}
	defer rows.Close()

	var versions []*catalog.PolicyVersion
	for rows.Next() {
		version, err := scanPolicyVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan policy version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policy versions: %w", err)
	}
	return versions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicyVersion(row rowScanner) (*catalog.PolicyVersion, error) {
	var (
		version     catalog.PolicyVersion
		id          uuid.UUID
		effectiveTo sql.NullTime
	)
	err := row.Scan(
		&id,
		(*string)(&version.Scope.Tenant),
		(*string)(&version.Scope.Kind),
		(*string)(&version.Scope.Audience),
		(*string)(&version.Scope.Language),
		&version.Version,
		&version.Title,
		&version.Body,
		&version.EffectiveFrom,
		&effectiveTo,
		&version.Mandatory,
		&version.GraceDays,
		(*string)(&version.EnforceMode),
		(*string)(&version.ReconsentTrigger),
		&version.Published,
		&version.CreatedAt,
		&version.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	version.ID = domain.PolicyVersionID(id)
	if effectiveTo.Valid {
		version.EffectiveTo = &effectiveTo.Time
	}
	return &version, nil
}

func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation || pqErr.Code == pqExclusionViolation
	}
	return false
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
