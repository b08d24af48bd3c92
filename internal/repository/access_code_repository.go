package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// AccessCodeRepository handles persistence for invite and weekly codes.
type AccessCodeRepository struct {
	db *sqlx.DB
}

// NewAccessCodeRepository constructs the repository.
func NewAccessCodeRepository(db *sqlx.DB) *AccessCodeRepository {
	return &AccessCodeRepository{db: db}
}

const accessCodeColumns = `id, code, code_type, is_active, expires_at, max_uses, usage_count, created_by, created_at, updated_at`

// FindByCode returns a code by its literal value.
func (r *AccessCodeRepository) FindByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	query := fmt.Sprintf(`SELECT %s FROM access_codes WHERE code = $1 LIMIT 1`, accessCodeColumns)
	var ac models.AccessCode
	if err := r.db.GetContext(ctx, &ac, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find access code: %w", err)
	}
	return &ac, nil
}

// Create inserts a new access code. A unique-violation on the code column is
// reported via IsDuplicateCode so callers can regenerate and retry.
func (r *AccessCodeRepository) Create(ctx context.Context, code *models.AccessCode) error {
	now := time.Now().UTC()
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = now
	}
	code.UpdatedAt = now
	const query = `INSERT INTO access_codes (id, code, code_type, is_active, expires_at, max_uses, usage_count, created_by, created_at, updated_at)
VALUES (:id, :code, :code_type, :is_active, :expires_at, :max_uses, :usage_count, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("create access code: %w", err)
	}
	return nil
}

// IsDuplicateCode reports whether err is a unique-constraint violation on the
// access code value.
func IsDuplicateCode(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "code")
}

// List returns codes filtered by type, newest first.
func (r *AccessCodeRepository) List(ctx context.Context, codeType *models.CodeType, page, pageSize int) ([]models.AccessCode, int, error) {
	where := "1=1"
	args := []interface{}{}
	if codeType != nil && codeType.Valid() {
		where = "code_type = $1"
		args = append(args, *codeType)
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM access_codes WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, accessCodeColumns, where, pageSize, offset)
	var codes []models.AccessCode
	if err := r.db.SelectContext(ctx, &codes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list access codes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM access_codes WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count access codes: %w", err)
	}
	return codes, total, nil
}

// Revoke deactivates a code. Revocation is permanent.
func (r *AccessCodeRepository) Revoke(ctx context.Context, id string) error {
	const query = `UPDATE access_codes SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("revoke access code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke access code: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReleaseUse returns one consumed use to a code. The counter never goes
// below zero.
func (r *AccessCodeRepository) ReleaseUse(ctx context.Context, id string) error {
	const query = `UPDATE access_codes SET usage_count = GREATEST(usage_count - 1, 0), updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("release access code use: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release access code use: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Redeem validates and consumes one use of a code in a single transaction.
// The row is locked for the duration so concurrent redemptions of a code
// with one use left cannot both succeed. The usage counter moves only when
// validation passes.
func (r *AccessCodeRepository) Redeem(ctx context.Context, code string, now time.Time) (*models.AccessCode, models.CodeValidationResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, models.CodeValidationResult{}, fmt.Errorf("begin redeem: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	query := fmt.Sprintf(`SELECT %s FROM access_codes WHERE code = $1 FOR UPDATE`, accessCodeColumns)
	var ac models.AccessCode
	if err := tx.GetContext(ctx, &ac, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.CodeValidationResult{}, err
		}
		return nil, models.CodeValidationResult{}, fmt.Errorf("lock access code: %w", err)
	}

	result := ac.Validate(now)
	if !result.Valid {
		return &ac, result, nil
	}

	const update = `UPDATE access_codes SET usage_count = usage_count + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, ac.ID, now.UTC()); err != nil {
		return nil, models.CodeValidationResult{}, fmt.Errorf("consume access code: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, models.CodeValidationResult{}, fmt.Errorf("commit redeem: %w", err)
	}
	committed = true
	ac.UsageCount++
	return &ac, result, nil
}
