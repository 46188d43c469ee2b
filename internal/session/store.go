// Package session はブラウザごとの永続ストレージを提供する。
// CookieのセッションIDとsessionsテーブルのJSONBで値を保持する。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/hitoshi/patientadmin/internal/model"
)

const (
	// CookieName はセッションIDを保持するCookie名。
	CookieName = "session_id"
	// TokenKey はバックエンドのセッショントークンを保存するキー。
	TokenKey = "token"
)

// Repository はストアが必要とするセッション永続化の操作。
// repository.SessionRepositoryの部分集合として定義する。
type Repository interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	SetValue(ctx context.Context, id, key, value string) (bool, error)
}

// Config はセッションCookieの設定。
type Config struct {
	MaxAge       int // 有効期間（秒）
	CookieSecure bool
	CookieDomain string
}

// Manager はリクエスト単位のStoreを生成する。
type Manager struct {
	repo   Repository
	config Config
	now    func() time.Time
}

// NewManager はManagerを生成する。
func NewManager(repo Repository, config Config) *Manager {
	return &Manager{repo: repo, config: config, now: time.Now}
}

// Lookup はリクエストのCookieからkeyの値を読み取る。
// セッションが無い、期限切れ、またはkeyが無い場合はokがfalseになる。
func (m *Manager) Lookup(ctx context.Context, r *http.Request, key string) (string, bool, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false, nil
	}

	sess, err := m.repo.FindByID(ctx, cookie.Value)
	if err != nil {
		return "", false, fmt.Errorf("failed to find session: %w", err)
	}
	if sess == nil {
		return "", false, nil
	}

	v, ok := sess.Data[key]
	return v, ok, nil
}

// ForRequest はリクエストに紐づくStoreを返す。
func (m *Manager) ForRequest(w http.ResponseWriter, r *http.Request) *Store {
	s := &Store{manager: m, w: w}
	if cookie, err := r.Cookie(CookieName); err == nil {
		s.id = cookie.Value
	}
	return s
}

// Store は1リクエスト分のストレージハンドル。
// 書き込み時にセッションが無ければ作成し、Cookieを発行する。
type Store struct {
	manager *Manager
	w       http.ResponseWriter
	id      string
}

// Set はkeyに値を書き込む。既存値は上書きする。
func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.id != "" {
		ok, err := s.manager.repo.SetValue(ctx, s.id, key, value)
		if err != nil {
			return fmt.Errorf("failed to set session value: %w", err)
		}
		if ok {
			return nil
		}
	}

	id, err := generateSessionID()
	if err != nil {
		return fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.manager.now()
	sess := &model.Session{
		ID:        id,
		Data:      map[string]string{key: value},
		ExpiresAt: now.Add(time.Duration(s.manager.config.MaxAge) * time.Second),
		CreatedAt: now,
	}
	if err := s.manager.repo.Create(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.id = id
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		Domain:   s.manager.config.CookieDomain,
		MaxAge:   s.manager.config.MaxAge,
		HttpOnly: true,
		Secure:   s.manager.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Get はkeyの値を読み取る。
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.id == "" {
		return "", false, nil
	}
	sess, err := s.manager.repo.FindByID(ctx, s.id)
	if err != nil {
		return "", false, fmt.Errorf("failed to find session: %w", err)
	}
	if sess == nil {
		return "", false, nil
	}
	v, ok := sess.Data[key]
	return v, ok, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
