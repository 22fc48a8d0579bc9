package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/goalcoach/internal/model"
)

// PostgresIdentityRepo はPostgreSQLを使用した認証プリンシパルリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// Create はIdentityをパスワードハッシュとともに作成する。
// メールアドレスが既に登録されている場合はErrDuplicateを返す。
func (r *PostgresIdentityRepo) Create(ctx context.Context, identity *model.Identity, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, email_confirmed_at, confirmation_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		identity.ID, identity.Email, passwordHash, identity.EmailConfirmedAt,
		identity.ConfirmationToken, identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("identity %s: %w", identity.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでIdentityとパスワードハッシュを取得する。
// 見つからない場合は (nil, "", nil) を返す。
func (r *PostgresIdentityRepo) FindByEmail(ctx context.Context, email string) (*model.Identity, string, error) {
	identity := &model.Identity{}
	var passwordHash string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, email_confirmed_at, confirmation_token, created_at, updated_at
		 FROM identities WHERE email = $1`,
		email,
	).Scan(&identity.ID, &identity.Email, &passwordHash, &identity.EmailConfirmedAt,
		&identity.ConfirmationToken, &identity.CreatedAt, &identity.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to find identity by email: %w", err)
	}

	return identity, passwordHash, nil
}

// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, email_confirmed_at, confirmation_token, created_at, updated_at
		 FROM identities WHERE id = $1`,
		id,
	).Scan(&identity.ID, &identity.Email, &identity.EmailConfirmedAt,
		&identity.ConfirmationToken, &identity.CreatedAt, &identity.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity by ID: %w", err)
	}

	return identity, nil
}

// ConfirmByToken は確認トークンに一致するIdentityを確認済みにする。
// トークンが無効な場合はnilを返す。
func (r *PostgresIdentityRepo) ConfirmByToken(ctx context.Context, token string, confirmedAt time.Time) (*model.Identity, error) {
	if token == "" {
		return nil, nil
	}

	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE identities
		 SET email_confirmed_at = $2, confirmation_token = '', updated_at = $2
		 WHERE confirmation_token = $1
		 RETURNING id, email, email_confirmed_at, confirmation_token, created_at, updated_at`,
		token, confirmedAt,
	).Scan(&identity.ID, &identity.Email, &identity.EmailConfirmedAt,
		&identity.ConfirmationToken, &identity.CreatedAt, &identity.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm identity by token: %w", err)
	}

	return identity, nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
