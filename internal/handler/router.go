package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/patientadmin/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenLookup       middleware.TokenLookup
	CORSAllowedOrigin string
	HSTS              bool

	// ヘルスチェック・メトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	LoginFlow   LoginFlow
	TokenStores TokenStoreFactory
	AuthConfig  AuthHandlerConfig

	// 患者一覧
	PatientLoader PatientLoader
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → (CORS) → SessionMiddleware
//
// ログイン画面・認証ルート（/login, /auth/*）とヘルスチェックはセッション不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewLoggingMiddleware(logger))

	authHandler := NewAuthHandler(deps.LoginFlow, deps.TokenStores, deps.AuthConfig)
	patientHandler := NewPatientHandler(deps.PatientLoader)
	healthHandler := NewHealthHandler(deps.HealthChecker)
	sessionRequired := middleware.NewSessionMiddleware(deps.TokenLookup, loginPagePath)

	// --- セッション不要のルート ---

	r.Get("/health", healthHandler.Check)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/patients", http.StatusSeeOther)
	})
	r.Get(loginPagePath, authHandler.LoginPage)

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
	})

	// --- セッションが必要なルート ---

	// 画面
	r.Group(func(r chi.Router) {
		r.Use(sessionRequired)

		r.Get("/patients", patientHandler.Page)
		r.Get(patientTablePath, patientHandler.Table)
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(sessionRequired)

		r.Get("/patients", patientHandler.List)
	})

	return r
}
