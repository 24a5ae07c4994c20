package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/yourusername/videotube/internal/user/migrations"
)

const uniqueViolation = "23505"

const selectColumns = `id, username, email, fullname, avatar, cover_image, password_hash,
		COALESCE(refresh_token, ''), created_at, updated_at`

// gooseUpContext はテストで差し替えるための goose.UpContext です。
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// PostgresStore は users テーブルにユーザーを保存します。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres は pgx ドライバで接続を開き、疎通を確認します。
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// RunMigrations は埋め込みマイグレーションを適用します。
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	username = NormalizeUsername(username)
	if username == "" && email == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + selectColumns + ` FROM users
		 WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		 LIMIT 1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, username, email))
}

func (s *PostgresStore) Create(ctx context.Context, in NewUser) (*User, error) {
	record, err := newRecord(in)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO users (id, username, email, fullname, avatar, cover_image, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.Username, record.Email, record.FullName,
		record.Avatar, record.CoverImage, record.PasswordHash,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) SetRefreshToken(ctx context.Context, id, token string) (*User, error) {
	query := `UPDATE users SET refresh_token = NULLIF($2, ''), updated_at = $3
		 WHERE id = $1
		 RETURNING ` + selectColumns
	return s.scanOne(s.db.QueryRowContext(ctx, query, id, token, now()))
}

func (s *PostgresStore) ClearRefreshToken(ctx context.Context, id string) (*User, error) {
	return s.SetRefreshToken(ctx, id, "")
}

func (s *PostgresStore) scanOne(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Avatar, &u.CoverImage,
		&u.PasswordHash, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}
