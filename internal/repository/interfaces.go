// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/patientadmin/internal/model"
)

// ProfileRepository はユーザープロフィール（ロール情報）の永続化インターフェース。
type ProfileRepository interface {
	// FindBySubject は指定subjectのプロフィールを取得する。見つからない場合はnilを返す。
	FindBySubject(ctx context.Context, subject string) (*model.UserProfile, error)

	// CreateIfAbsent はプロフィールを作成する。
	// 同じsubjectの行が既に存在する場合は何も変更せずfalseを返す。
	CreateIfAbsent(ctx context.Context, profile *model.UserProfile) (bool, error)
}

// SessionRepository はブラウザごとの永続ストレージの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// SetValue はセッションのkeyに値を書き込む。既存値は上書きする。
	// セッションが存在しないか期限切れの場合はfalseを返す。
	SetValue(ctx context.Context, id, key, value string) (bool, error)
	// DeleteExpired はbefore時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
