package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectAccount = `SELECT id, email, password_hash, role, first_name, last_name, phone, is_verified,
	failed_login_attempts, lockout_stage, temporary_lock_until,
	mfa_code, mfa_expiry, last_mfa_verified_at,
	active_session_token, active_device, session_created_at,
	reset_token_digest, reset_token_expiry,
	version, created_at, updated_at
	FROM accounts`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = NormalizeEmail(a.Email)

	query :=
		`INSERT INTO accounts (id, email, password_hash, role, first_name, last_name, phone, is_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING version`

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Email, a.PasswordHash, string(a.Role),
		a.Profile.FirstName, a.Profile.LastName, a.Profile.Phone,
		a.IsVerified, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.Version)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE email = $1`, NormalizeEmail(email))
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, digest string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE reset_token_digest = $1`, digest)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`UPDATE accounts SET
			email = $2, password_hash = $3, role = $4, first_name = $5, last_name = $6, phone = $7, is_verified = $8,
			failed_login_attempts = $9, lockout_stage = $10, temporary_lock_until = $11,
			mfa_code = $12, mfa_expiry = $13, last_mfa_verified_at = $14,
			active_session_token = $15, active_device = $16, session_created_at = $17,
			reset_token_digest = $18, reset_token_expiry = $19,
			updated_at = $20, version = version + 1
		 WHERE id = $1 AND version = $21
		 RETURNING version`

	var (
		mfaCode, sessionToken, device, resetDigest *string
		mfaExpiry, sessionCreated, resetExpiry     *time.Time
	)
	if a.MFA != nil {
		mfaCode, mfaExpiry = &a.MFA.Code, &a.MFA.ExpiresAt
	}
	if a.Session != nil {
		sessionToken, device, sessionCreated = &a.Session.Token, &a.Session.Device, &a.Session.CreatedAt
	}
	if a.Reset != nil {
		resetDigest, resetExpiry = &a.Reset.TokenDigest, &a.Reset.ExpiresAt
	}

	var version int64
	err := r.db.QueryRowContext(ctx, query,
		a.ID, NormalizeEmail(a.Email), a.PasswordHash, string(a.Role),
		a.Profile.FirstName, a.Profile.LastName, a.Profile.Phone, a.IsVerified,
		a.Lockout.FailedAttempts, int(a.Lockout.Stage), dbx.NullTime(a.Lockout.TemporaryLockUntil),
		dbx.NullString(mfaCode), dbx.NullTime(mfaExpiry), dbx.NullTime(a.LastMFAVerifiedAt),
		dbx.NullString(sessionToken), dbx.NullString(device), dbx.NullTime(sessionCreated),
		dbx.NullString(resetDigest), dbx.NullTime(resetExpiry),
		a.UpdatedAt, a.Version,
	).Scan(&version)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrVersionConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.Version = version
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a                                          models.Account
		role                                       string
		stage                                      int
		lockUntil, mfaExpiry, lastMFA              sql.NullTime
		sessionCreated, resetExpiry                sql.NullTime
		mfaCode, sessionToken, device, resetDigest sql.NullString
	)

	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &role, &a.Profile.FirstName, &a.Profile.LastName, &a.Profile.Phone, &a.IsVerified,
		&a.Lockout.FailedAttempts, &stage, &lockUntil,
		&mfaCode, &mfaExpiry, &lastMFA,
		&sessionToken, &device, &sessionCreated,
		&resetDigest, &resetExpiry,
		&a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Role = models.Role(role)
	a.Lockout.Stage = models.LockoutStage(stage)
	a.Lockout.TemporaryLockUntil = dbx.TimePtr(lockUntil)
	a.LastMFAVerifiedAt = dbx.TimePtr(lastMFA)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()

	if mfaCode.Valid && mfaExpiry.Valid {
		a.MFA = &models.MFAChallenge{Code: mfaCode.String, ExpiresAt: mfaExpiry.Time.UTC()}
	}
	if sessionToken.Valid && sessionCreated.Valid {
		a.Session = &models.Session{Token: sessionToken.String, Device: device.String, CreatedAt: sessionCreated.Time.UTC()}
	}
	if resetDigest.Valid && resetExpiry.Valid {
		a.Reset = &models.ResetGrant{TokenDigest: resetDigest.String, ExpiresAt: resetExpiry.Time.UTC()}
	}

	return &a, nil
}
