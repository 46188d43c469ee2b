package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/patientadmin/internal/model"
)

// --- モック ---

// memoryRepo はテスト用のインメモリセッションリポジトリ。
type memoryRepo struct {
	sessions   map[string]*model.Session
	createErr  error
	setErr     error
	createCall int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sessions: make(map[string]*model.Session)}
}

func (m *memoryRepo) Create(ctx context.Context, s *model.Session) error {
	m.createCall++
	if m.createErr != nil {
		return m.createErr
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

func (m *memoryRepo) SetValue(ctx context.Context, id, key, value string) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	s.Data[key] = value
	return true, nil
}

var _ Repository = (*memoryRepo)(nil)

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestStore_Set_CreatesSessionAndCookie(t *testing.T) {
	repo := newMemoryRepo()
	m := NewManager(repo, Config{MaxAge: 3600, CookieSecure: true, CookieDomain: "example.com"})
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil)

	if err := m.ForRequest(w, r).Set(context.Background(), TokenKey, "tok-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	c := sessionCookie(t, w)
	if c == nil {
		t.Fatal("session cookie not set")
	}
	if len(c.Value) != 64 {
		t.Errorf("session ID length = %d, want 64", len(c.Value))
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes = %+v", c)
	}
	if c.MaxAge != 3600 || c.Domain != "example.com" || c.Path != "/" {
		t.Errorf("cookie scope = %+v", c)
	}

	sess := repo.sessions[c.Value]
	if sess == nil {
		t.Fatal("session not persisted")
	}
	if sess.Data[TokenKey] != "tok-1" {
		t.Errorf("token = %q, want %q", sess.Data[TokenKey], "tok-1")
	}
	if !sess.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, fixed.Add(time.Hour))
	}
}

func TestStore_Set_OverwritesExistingSession(t *testing.T) {
	repo := newMemoryRepo()
	repo.sessions["existing"] = &model.Session{ID: "existing", Data: map[string]string{TokenKey: "old"}}
	m := NewManager(repo, Config{MaxAge: 3600})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "existing"})

	if err := m.ForRequest(w, r).Set(context.Background(), TokenKey, "new"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if got := repo.sessions["existing"].Data[TokenKey]; got != "new" {
		t.Errorf("token = %q, want %q", got, "new")
	}
	if repo.createCall != 0 {
		t.Errorf("Create called %d times, want 0", repo.createCall)
	}
	if sessionCookie(t, w) != nil {
		t.Error("cookie should not be reissued for an existing session")
	}
}

func TestStore_Set_StaleCookieCreatesNewSession(t *testing.T) {
	repo := newMemoryRepo()
	m := NewManager(repo, Config{MaxAge: 60})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "expired"})

	if err := m.ForRequest(w, r).Set(context.Background(), TokenKey, "tok"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	c := sessionCookie(t, w)
	if c == nil || c.Value == "expired" {
		t.Fatalf("expected a fresh session cookie, got %+v", c)
	}
}

func TestStore_Set_RepositoryErrors(t *testing.T) {
	dbErr := errors.New("db down")

	t.Run("SetValue", func(t *testing.T) {
		repo := newMemoryRepo()
		repo.setErr = dbErr
		m := NewManager(repo, Config{MaxAge: 60})
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "x"})

		err := m.ForRequest(httptest.NewRecorder(), r).Set(context.Background(), TokenKey, "tok")
		if !errors.Is(err, dbErr) {
			t.Errorf("err = %v, want wrapping %v", err, dbErr)
		}
	})

	t.Run("Create", func(t *testing.T) {
		repo := newMemoryRepo()
		repo.createErr = dbErr
		m := NewManager(repo, Config{MaxAge: 60})
		w := httptest.NewRecorder()

		err := m.ForRequest(w, httptest.NewRequest(http.MethodGet, "/", nil)).Set(context.Background(), TokenKey, "tok")
		if !errors.Is(err, dbErr) {
			t.Errorf("err = %v, want wrapping %v", err, dbErr)
		}
		if sessionCookie(t, w) != nil {
			t.Error("cookie must not be issued when the session was not saved")
		}
	})
}

func TestStore_GetAfterSet(t *testing.T) {
	repo := newMemoryRepo()
	m := NewManager(repo, Config{MaxAge: 60})
	s := m.ForRequest(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if _, ok, _ := s.Get(context.Background(), TokenKey); ok {
		t.Fatal("Get() before Set should report missing")
	}
	if err := s.Set(context.Background(), TokenKey, "tok"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := s.Get(context.Background(), TokenKey)
	if err != nil || !ok || v != "tok" {
		t.Errorf("Get() = %q, %v, %v", v, ok, err)
	}
}

func TestManager_Lookup(t *testing.T) {
	repo := newMemoryRepo()
	repo.sessions["s1"] = &model.Session{ID: "s1", Data: map[string]string{TokenKey: "tok"}}
	repo.sessions["s2"] = &model.Session{ID: "s2", Data: map[string]string{}}
	m := NewManager(repo, Config{MaxAge: 60})

	tests := []struct {
		name   string
		cookie string
		want   string
		wantOK bool
	}{
		{"no cookie", "", "", false},
		{"unknown session", "missing", "", false},
		{"session without token", "s2", "", false},
		{"session with token", "s1", "tok", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/patients", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			got, ok, err := m.Lookup(context.Background(), r, TokenKey)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Lookup() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGenerateSessionID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generateSessionID()
		if err != nil {
			t.Fatalf("generateSessionID() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate session ID %q", id)
		}
		seen[id] = true
	}
}
