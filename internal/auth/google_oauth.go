package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/patientadmin/internal/model"
)

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

	// errorAccessDenied はユーザーが同意画面でキャンセルした場合のエラーコード。
	errorAccessDenied = "access_denied"
)

// Callback はIdPからリダイレクトで戻ってきたクエリパラメータ。
type Callback struct {
	Code  string
	State string
	Error string
}

// CallbackFromQuery はコールバックURLのクエリからCallbackを組み立てる。
func CallbackFromQuery(q url.Values) Callback {
	return Callback{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	}
}

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleOAuthProvider はGoogle OAuth 2.0による認証を提供する。
type GoogleOAuthProvider struct {
	config     GoogleOAuthConfig
	httpClient *http.Client
	parser     *jwt.Parser
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultGoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultGoogleUserInfoURL
	}
	return &GoogleOAuthProvider{
		config:     config,
		httpClient: http.DefaultClient,
		parser:     jwt.NewParser(),
	}
}

// GetLoginURL はGoogle OAuthの認証URLを生成する。
// スコープにはopenid, email, profileを含む。
func (p *GoogleOAuthProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
		"prompt":        {"select_account"},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// googleTokenResponse はGoogleのトークンエンドポイントのレスポンス。
type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

// googleIDTokenClaims はIDトークンから読み取るクレーム。
type googleIDTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// googleUserInfo はGoogleのユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

// SignIn はコールバックを検証し、認可コードを交換してCredentialを返す。
// ユーザーがキャンセルした場合やコードが無い場合はProviderCancelledを返す。
func (p *GoogleOAuthProvider) SignIn(ctx context.Context, cb Callback) (*model.Credential, error) {
	switch {
	case cb.Error == errorAccessDenied:
		return nil, model.NewProviderCancelledError()
	case cb.Error != "":
		return nil, model.NewProviderError(fmt.Errorf("provider returned error: %s", cb.Error))
	case cb.Code == "":
		return nil, model.NewProviderCancelledError()
	}

	// 1. 認可コードをトークンに交換
	tokenResp, err := p.exchangeToken(ctx, cb.Code)
	if err != nil {
		return nil, model.NewProviderError(fmt.Errorf("failed to exchange token: %w", err))
	}

	// 2. IDトークンからsubject・emailを取得
	claims, err := p.readIDToken(tokenResp.IDToken)
	if err != nil {
		return nil, model.NewProviderError(fmt.Errorf("failed to read id token: %w", err))
	}

	cred := &model.Credential{
		Subject:        claims.Subject,
		Email:          claims.Email,
		AssertionToken: tokenResp.IDToken,
	}

	// 3. emailクレームが無い場合はユーザー情報エンドポイントで補う
	if cred.Email == "" && tokenResp.AccessToken != "" {
		userInfo, err := p.fetchUserInfo(ctx, tokenResp.AccessToken)
		if err != nil {
			return nil, model.NewProviderError(fmt.Errorf("failed to fetch user info: %w", err))
		}
		if userInfo.Sub != cred.Subject {
			return nil, model.NewProviderError(fmt.Errorf("user info subject mismatch"))
		}
		cred.Email = userInfo.Email
	}

	return cred, nil
}

// readIDToken はIDトークンのクレームを読み取る。
// トークンはトークンエンドポイントからTLSで直接受け取ったものなので署名は検証しない。
// 署名の検証はトークンを受け取るバックエンドが行う。
func (p *GoogleOAuthProvider) readIDToken(idToken string) (*googleIDTokenClaims, error) {
	if idToken == "" {
		return nil, fmt.Errorf("empty id_token in response")
	}

	claims := &googleIDTokenClaims{}
	if _, _, err := p.parser.ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("empty sub in id token")
	}
	if !slices.Contains([]string(claims.Audience), p.config.ClientID) {
		return nil, fmt.Errorf("id token audience does not match client id")
	}
	return claims, nil
}

// exchangeToken は認可コードをトークンに交換する。
func (p *GoogleOAuthProvider) exchangeToken(ctx context.Context, code string) (*googleTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	return &tokenResp, nil
}

// fetchUserInfo はアクセストークンでGoogleのユーザー情報を取得する。
func (p *GoogleOAuthProvider) fetchUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo googleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	return &userInfo, nil
}

// compile-time interface check
var _ IdentityProvider = (*GoogleOAuthProvider)(nil)
