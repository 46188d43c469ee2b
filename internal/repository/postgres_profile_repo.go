package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/patientadmin/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindBySubject は指定subjectのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindBySubject(ctx context.Context, subject string) (*model.UserProfile, error) {
	profile := &model.UserProfile{}
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT subject, email, role, created_at, updated_at FROM user_profiles WHERE subject = $1`,
		subject,
	).Scan(&profile.Subject, &profile.Email, &role, &profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by subject: %w", err)
	}

	profile.Role = model.Role(role)
	return profile, nil
}

// CreateIfAbsent はプロフィールを作成する。
// subjectが既に存在する場合は既存行のロールを保持し、falseを返す。
func (r *PostgresProfileRepo) CreateIfAbsent(ctx context.Context, profile *model.UserProfile) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (subject, email, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (subject) DO NOTHING`,
		profile.Subject, profile.Email, string(profile.Role), profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create profile: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
