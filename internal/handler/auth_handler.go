// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/hitoshi/patientadmin/internal/auth"
	"github.com/hitoshi/patientadmin/internal/middleware"
	"github.com/hitoshi/patientadmin/internal/model"
	"github.com/hitoshi/patientadmin/internal/view"
)

const (
	oauthStateCookie = "oauth_state"
	loginPagePath    = "/login"
	googleLoginPath  = "/auth/google/login"
)

// LoginFlow は認証ハンドラーが必要とするログインフローのインターフェース。
type LoginFlow interface {
	GetLoginURL(state string) string
	Login(ctx context.Context, cb auth.Callback, store auth.TokenStore, ui auth.UI) error
}

// TokenStoreFactory はリクエストに紐づくトークンの保存先を返す。
type TokenStoreFactory func(w http.ResponseWriter, r *http.Request) auth.TokenStore

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure bool
}

// AuthHandler はGoogleログイン関連のHTTPハンドラー。
type AuthHandler struct {
	flow   LoginFlow
	stores TokenStoreFactory
	config AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(flow LoginFlow, stores TokenStoreFactory, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		flow:   flow,
		stores: stores,
		config: config,
	}
}

// LoginPage はログイン画面を表示する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, http.StatusOK, view.Page{
		Title: "Login",
		Body:  view.LoginForm(googleLoginPath),
	})
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.flow.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックでログインフローを実行し、結果をログイン画面に表示する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	cb := auth.CallbackFromQuery(r.URL.Query())
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cb.State == "" || stateCookie.Value != cb.State {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", cb.State),
		)
		renderPage(w, r, http.StatusBadRequest, view.Page{
			Title:   "Login",
			Notices: []model.Notice{{Level: model.NoticeError, Message: "Google login failed!"}},
			Body:    view.LoginForm(googleLoginPath),
		})
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. ログインフロー
	ui := &pageUI{}
	status := http.StatusOK
	if err := h.flow.Login(r.Context(), cb, h.stores(w, r), ui); err != nil {
		status = http.StatusInternalServerError
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			status = middleware.StatusCodeFor(apiErr)
		}
	}

	// 3. クライアントが切断済みなら予約した遷移を取り消す
	if r.Context().Err() != nil {
		ui.cancelNavigation()
		return
	}

	renderPage(w, r, status, view.Page{
		Title:      "Login",
		Notices:    ui.notices,
		Navigation: ui.navigation,
		Body:       view.LoginForm(googleLoginPath),
	})
}

// pageUI はログイン結果をレスポンスのHTMLに反映する。
type pageUI struct {
	notices    []model.Notice
	navigation *view.Navigation
	cancel     func()
}

func (u *pageUI) Notify(n model.Notice) {
	u.notices = append(u.notices, n)
}

// NavigateAfter は描画時にmeta refreshとして出力する遷移を予約する。
// 遷移はページの表示中のみ有効で、ページを離れれば実行されない。
func (u *pageUI) NavigateAfter(delay time.Duration, route string) func() {
	nav := &view.Navigation{Route: route, Delay: delay}
	u.navigation = nav
	u.cancel = func() {
		if u.navigation == nav {
			u.navigation = nil
		}
	}
	return u.cancel
}

func (u *pageUI) cancelNavigation() {
	if u.cancel != nil {
		u.cancel()
	}
}

// renderPage はレイアウト付きでページを描画する。
func renderPage(w http.ResponseWriter, r *http.Request, status int, page view.Page) {
	renderComponent(w, r, status, view.Layout(page))
}

// renderComponent はHTMLコンポーネントを描画する。
func renderComponent(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// compile-time interface check
var _ auth.UI = (*pageUI)(nil)
