// Package model はドメインモデルを定義する。
package model

import "time"

// Role は管理画面における認可ロールを表す。
type Role string

const (
	// RoleUser は初回ログイン時に付与されるデフォルトのロール。
	RoleUser Role = "user"
	// RoleAdmin は管理画面へのアクセスが許可されたロール。
	RoleAdmin Role = "admin"
)

// UserProfile はIdPのsubjectをキーとするロール情報を表す。
// 初回ログイン時にRoleUserで自動作成される。
type UserProfile struct {
	Subject   string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin はプロフィールが管理者ロールを持つかどうかを返す。
func (p *UserProfile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Credential は外部IdPのサインイン1回分の本人確認結果を表す。
// バックエンドとのトークン交換が終われば破棄される。
type Credential struct {
	Subject        string
	Email          string
	AssertionToken string // IdPが発行したIDトークン
}

// Session はブラウザごとの永続ストレージを表す。
// Dataにはキーごとの値（バックエンドのセッショントークン等）を保持する。
type Session struct {
	ID        string
	Data      map[string]string
	ExpiresAt time.Time
	CreatedAt time.Time
}
