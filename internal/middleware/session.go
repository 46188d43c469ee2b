// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/patientadmin/internal/model"
	"github.com/hitoshi/patientadmin/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// tokenContextKey はバックエンドのセッショントークンを格納するキー。
	tokenContextKey = contextKey("session_token")
	// requestIDContextKey はリクエストIDを格納するキー。
	requestIDContextKey = contextKey("request_id")
)

// TokenLookup はリクエストに紐づく永続ストレージから値を読み取るインターフェース。
type TokenLookup interface {
	Lookup(ctx context.Context, r *http.Request, key string) (string, bool, error)
}

// NewSessionMiddleware はセッションCookieに紐づくバックエンドトークンを読み取り、
// リクエストコンテキストに注入するミドルウェアを返す。
// トークンが無い場合、/api/配下には401 JSON、htmxリクエストにはHX-Redirect、
// それ以外にはloginPathへのリダイレクトを返す。
func NewSessionMiddleware(lookup TokenLookup, loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok, err := lookup.Lookup(r.Context(), r, session.TokenKey)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
			}
			if err != nil || !ok || token == "" {
				denyUnauthenticated(w, r, loginPath)
				return
			}

			ctx := ContextWithToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func denyUnauthenticated(w http.ResponseWriter, r *http.Request, loginPath string) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/"):
		WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
	case strings.EqualFold(r.Header.Get("HX-Request"), "true"):
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
	default:
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
	}
}

// TokenFromContext はリクエストコンテキストからセッショントークンを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func TokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(tokenContextKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("session token not found in context")
	}
	return token, nil
}

// ContextWithToken はコンテキストにセッショントークンを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}
