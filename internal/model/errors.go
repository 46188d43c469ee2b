// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, patient, system
	Action   string // ユーザー向け対処方法
	Err      error  // 原因となったエラー（ログ用、レスポンスには含めない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因となったエラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeProviderCancelled   = "PROVIDER_CANCELLED"
	ErrCodeProviderError       = "PROVIDER_ERROR"
	ErrCodeExchangeFailed      = "EXCHANGE_FAILED"
	ErrCodeInsufficientRole    = "INSUFFICIENT_ROLE"
	ErrCodeFetchFailed         = "FETCH_FAILED"
	ErrCodeProfileLookupFailed = "PROFILE_LOOKUP_FAILED"
	ErrCodeSessionStoreFailed  = "SESSION_STORE_FAILED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewProviderCancelledError はIdPでのサインインがキャンセルされた場合のエラーを生成する。
func NewProviderCancelledError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderCancelled,
		Message:  "Google login failed!",
		Category: "auth",
		Action:   "Sign in again to continue.",
	}
}

// NewProviderError はIdPとの通信やレスポンスに問題があった場合のエラーを生成する。
func NewProviderError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeProviderError,
		Message:  "Google login failed!",
		Category: "auth",
		Action:   "Wait a moment and try again.",
		Err:      err,
	}
}

// NewExchangeFailedError はバックエンドからセッショントークンを受け取れなかった場合のエラーを生成する。
// errがnilの場合はレスポンスにトークンが無かったことを表す。
func NewExchangeFailedError(err error) *APIError {
	msg := "Login failed: No token received!"
	if err != nil {
		msg = "Google login failed!"
	}
	return &APIError{
		Code:     ErrCodeExchangeFailed,
		Message:  msg,
		Category: "auth",
		Action:   "Wait a moment and try again.",
		Err:      err,
	}
}

// NewInsufficientRoleError は認証済みだが管理者ロールを持たない場合のエラーを生成する。
func NewInsufficientRoleError() *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientRole,
		Message:  "You do not have Admin rights!",
		Category: "auth",
		Action:   "Ask an administrator to grant you the admin role.",
	}
}

// NewProfileLookupFailedError はプロフィールストアの読み書きに失敗した場合のエラーを生成する。
func NewProfileLookupFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeProfileLookupFailed,
		Message:  "Google login failed!",
		Category: "auth",
		Action:   "Wait a moment and try again.",
		Err:      err,
	}
}

// NewSessionStoreFailedError はセッショントークンの保存に失敗した場合のエラーを生成する。
func NewSessionStoreFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeSessionStoreFailed,
		Message:  "Google login failed!",
		Category: "system",
		Action:   "Wait a moment and try again.",
		Err:      err,
	}
}

// NewFetchFailedError は患者一覧の取得に失敗した場合のエラーを生成する。
func NewFetchFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  "Failed to load patients.",
		Category: "patient",
		Action:   "Reload the page. If the problem persists, sign in again.",
		Err:      err,
	}
}

// NewUnauthorizedError は有効なセッショントークンが無い場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required.",
		Category: "auth",
		Action:   "Sign in with Google.",
	}
}
