// Package auth はGoogleログインからロール判定までのログインフローを提供する。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/patientadmin/internal/metrics"
	"github.com/hitoshi/patientadmin/internal/model"
	"github.com/hitoshi/patientadmin/internal/session"
)

// IdentityProvider は外部IdPのインターフェース。
type IdentityProvider interface {
	// GetLoginURL はIdPのサインイン画面のURLを生成する。
	GetLoginURL(state string) string
	// SignIn はコールバックを検証し、本人確認結果を返す。
	SignIn(ctx context.Context, cb Callback) (*model.Credential, error)
}

// CredentialExchanger はIdPのIDトークンをバックエンドのセッショントークンに交換する。
// トークンが含まれないレスポンスは空文字列で返す。
type CredentialExchanger interface {
	ExchangeCredential(ctx context.Context, assertionToken string) (string, error)
}

// RoleResolver はsubjectのプロフィールを取得し、無ければ作成する。
type RoleResolver interface {
	ResolveRole(ctx context.Context, subject, email string) (*model.UserProfile, error)
}

// TokenStore はブラウザの永続ストレージへの書き込み口。
type TokenStore interface {
	Set(ctx context.Context, key, value string) error
}

// UI はログイン結果の表示先。
type UI interface {
	// Notify は一時通知を表示する。
	Notify(notice model.Notice)
	// NavigateAfter はdelay後にrouteへ遷移する。戻り値で遷移を取り消せる。
	NavigateAfter(delay time.Duration, route string) (cancel func())
}

// FlowConfig はログインフローの設定。
type FlowConfig struct {
	LandingRoute    string
	NavigationDelay time.Duration
}

// Flow はログインのビジネスロジックを提供する。
type Flow struct {
	provider  IdentityProvider
	exchanger CredentialExchanger
	roles     RoleResolver
	metrics   metrics.MetricsCollector
	config    FlowConfig
}

// NewFlow はFlowを生成する。mcはnilでもよい。
func NewFlow(
	provider IdentityProvider,
	exchanger CredentialExchanger,
	roles RoleResolver,
	mc metrics.MetricsCollector,
	config FlowConfig,
) *Flow {
	return &Flow{
		provider:  provider,
		exchanger: exchanger,
		roles:     roles,
		metrics:   mc,
		config:    config,
	}
}

// GetLoginURL はIdPのサインインURLを生成する。
func (f *Flow) GetLoginURL(state string) string {
	return f.provider.GetLoginURL(state)
}

// Login はサインインからロール判定までを順に実行する。
// 失敗した場合は通知を表示し、*model.APIErrorを返す。
// セッショントークンはロール判定の前に保存し、判定結果によって取り消さない。
// 管理者の場合のみ遅延遷移を予約する。
func (f *Flow) Login(ctx context.Context, cb Callback, store TokenStore, ui UI) error {
	// 1. IdPでサインイン
	cred, err := f.provider.SignIn(ctx, cb)
	if err != nil {
		return f.fail(ui, asAPIError(err, model.NewProviderError))
	}

	// 2-3. IDトークンをセッショントークンに交換
	token, err := f.exchanger.ExchangeCredential(ctx, cred.AssertionToken)
	if err != nil {
		return f.fail(ui, model.NewExchangeFailedError(err))
	}
	if token == "" {
		return f.fail(ui, model.NewExchangeFailedError(nil))
	}

	// 4. セッショントークンを保存（既存値は上書き）
	if err := store.Set(ctx, session.TokenKey, token); err != nil {
		return f.fail(ui, model.NewSessionStoreFailedError(err))
	}

	// 5. ロールを取得（無ければuserで作成）
	profile, err := f.roles.ResolveRole(ctx, cred.Subject, cred.Email)
	if err != nil {
		return f.fail(ui, model.NewProfileLookupFailedError(err))
	}

	// 6. 管理者以外は遷移しない
	if !profile.IsAdmin() {
		return f.fail(ui, model.NewInsufficientRoleError())
	}

	// 7. 成功通知と遅延遷移
	slog.Info("admin logged in",
		slog.String("subject", cred.Subject),
	)
	f.record(metrics.LoginSuccess)
	ui.Notify(model.Notice{Level: model.NoticeSuccess, Message: "Google login successful!"})
	ui.NavigateAfter(f.config.NavigationDelay, f.config.LandingRoute)
	return nil
}

// fail はエラーを記録し、対応する通知を表示する。
func (f *Flow) fail(ui UI, apiErr *model.APIError) error {
	level := model.NoticeError
	outcome := metrics.LoginError
	switch apiErr.Code {
	case model.ErrCodeInsufficientRole:
		level = model.NoticeWarning
		outcome = metrics.LoginInsufficientRole
	case model.ErrCodeProviderCancelled:
		outcome = metrics.LoginCancelled
	case model.ErrCodeProviderError:
		outcome = metrics.LoginProviderError
	case model.ErrCodeExchangeFailed:
		outcome = metrics.LoginExchangeFailed
	}

	attrs := []any{slog.String("code", apiErr.Code)}
	if apiErr.Err != nil {
		attrs = append(attrs, slog.String("error", apiErr.Err.Error()))
	}
	if level == model.NoticeWarning {
		slog.Warn("login denied", attrs...)
	} else {
		slog.Error("login failed", attrs...)
	}

	f.record(outcome)
	ui.Notify(model.Notice{Level: level, Message: apiErr.Message})
	return apiErr
}

func (f *Flow) record(outcome string) {
	if f.metrics != nil {
		f.metrics.RecordLoginOutcome(outcome)
	}
}

// asAPIError はerrが*model.APIErrorならそれを返し、そうでなければwrapで包む。
func asAPIError(err error, wrap func(error) *model.APIError) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return wrap(err)
}
