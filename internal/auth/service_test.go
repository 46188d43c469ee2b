package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/patientadmin/internal/metrics"
	"github.com/hitoshi/patientadmin/internal/model"
)

// --- モック定義 ---

type mockProvider struct {
	signInFn func(ctx context.Context, cb Callback) (*model.Credential, error)
}

func (m *mockProvider) GetLoginURL(state string) string {
	return "https://idp.example.com/auth?state=" + state
}

func (m *mockProvider) SignIn(ctx context.Context, cb Callback) (*model.Credential, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, cb)
	}
	return &model.Credential{Subject: "sub-1", Email: "user@example.com", AssertionToken: "id-token"}, nil
}

type mockExchanger struct {
	exchangeFn func(ctx context.Context, assertion string) (string, error)
	calls      int
}

func (m *mockExchanger) ExchangeCredential(ctx context.Context, assertion string) (string, error) {
	m.calls++
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, assertion)
	}
	return "session-token", nil
}

type mockRoles struct {
	resolveFn func(ctx context.Context, subject, email string) (*model.UserProfile, error)
	calls     int
}

func (m *mockRoles) ResolveRole(ctx context.Context, subject, email string) (*model.UserProfile, error) {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, subject, email)
	}
	return &model.UserProfile{Subject: subject, Email: email, Role: model.RoleUser}, nil
}

type mockStore struct {
	setFn  func(ctx context.Context, key, value string) error
	values map[string]string
}

func (m *mockStore) Set(ctx context.Context, key, value string) error {
	if m.setFn != nil {
		if err := m.setFn(ctx, key, value); err != nil {
			return err
		}
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

type navigation struct {
	delay time.Duration
	route string
}

type mockUI struct {
	notices     []model.Notice
	navigations []navigation
}

func (m *mockUI) Notify(n model.Notice) {
	m.notices = append(m.notices, n)
}

func (m *mockUI) NavigateAfter(delay time.Duration, route string) func() {
	m.navigations = append(m.navigations, navigation{delay: delay, route: route})
	return func() {}
}

type mockMetrics struct {
	metrics.MetricsCollector
	outcomes []string
}

func (m *mockMetrics) RecordLoginOutcome(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

var testFlowConfig = FlowConfig{LandingRoute: "/", NavigationDelay: 1500 * time.Millisecond}

func assertSingleNotice(t *testing.T, ui *mockUI, level model.NoticeLevel, msg string) {
	t.Helper()
	if len(ui.notices) != 1 {
		t.Fatalf("notices = %+v, want exactly 1", ui.notices)
	}
	if ui.notices[0].Level != level || ui.notices[0].Message != msg {
		t.Errorf("notice = %+v, want {%s %q}", ui.notices[0], level, msg)
	}
}

// --- テスト ---

// 管理者ロールなら成功通知と遅延遷移が行われる。
func TestFlow_Login_AdminNavigatesAfterDelay(t *testing.T) {
	roles := &mockRoles{
		resolveFn: func(ctx context.Context, subject, email string) (*model.UserProfile, error) {
			return &model.UserProfile{Subject: subject, Role: model.RoleAdmin}, nil
		},
	}
	mm := &mockMetrics{}
	flow := NewFlow(&mockProvider{}, &mockExchanger{}, roles, mm, testFlowConfig)
	store := &mockStore{}
	ui := &mockUI{}

	if err := flow.Login(context.Background(), Callback{Code: "c"}, store, ui); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if store.values["token"] != "session-token" {
		t.Errorf("stored token = %q, want %q", store.values["token"], "session-token")
	}
	assertSingleNotice(t, ui, model.NoticeSuccess, "Google login successful!")
	if len(ui.navigations) != 1 {
		t.Fatalf("navigations = %+v, want 1", ui.navigations)
	}
	if ui.navigations[0] != (navigation{delay: 1500 * time.Millisecond, route: "/"}) {
		t.Errorf("navigation = %+v", ui.navigations[0])
	}
	if len(mm.outcomes) != 1 || mm.outcomes[0] != metrics.LoginSuccess {
		t.Errorf("outcomes = %v, want [success]", mm.outcomes)
	}
}

// トークンが返らない場合は保存も遷移もしない。
func TestFlow_Login_NoTokenReportsExchangeFailed(t *testing.T) {
	exchanger := &mockExchanger{
		exchangeFn: func(ctx context.Context, assertion string) (string, error) {
			return "", nil
		},
	}
	roles := &mockRoles{}
	flow := NewFlow(&mockProvider{}, exchanger, roles, nil, testFlowConfig)
	store := &mockStore{}
	ui := &mockUI{}

	err := flow.Login(context.Background(), Callback{Code: "c"}, store, ui)
	assertAPIErrorCode(t, err, model.ErrCodeExchangeFailed)

	if len(store.values) != 0 {
		t.Errorf("store must not be written, got %v", store.values)
	}
	if roles.calls != 0 {
		t.Error("role lookup must not run after a failed exchange")
	}
	if len(ui.navigations) != 0 {
		t.Error("must not navigate")
	}
	assertSingleNotice(t, ui, model.NoticeError, "Login failed: No token received!")
}

// 交換APIの呼び出し自体が失敗した場合もExchangeFailedになる。
func TestFlow_Login_ExchangeCallFailure(t *testing.T) {
	exchanger := &mockExchanger{
		exchangeFn: func(ctx context.Context, assertion string) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	flow := NewFlow(&mockProvider{}, exchanger, &mockRoles{}, nil, testFlowConfig)
	store := &mockStore{}
	ui := &mockUI{}

	err := flow.Login(context.Background(), Callback{Code: "c"}, store, ui)
	assertAPIErrorCode(t, err, model.ErrCodeExchangeFailed)
	if len(store.values) != 0 {
		t.Errorf("store must not be written, got %v", store.values)
	}
	assertSingleNotice(t, ui, model.NoticeError, "Google login failed!")
}

// プロフィールが無い場合はuserで作成され、遷移しない。
func TestFlow_Login_NewProfileDeniedAsUser(t *testing.T) {
	created := map[string]*model.UserProfile{}
	roles := &mockRoles{
		resolveFn: func(ctx context.Context, subject, email string) (*model.UserProfile, error) {
			p, ok := created[subject]
			if !ok {
				p = &model.UserProfile{Subject: subject, Email: email, Role: model.RoleUser}
				created[subject] = p
			}
			return p, nil
		},
	}
	mm := &mockMetrics{}
	flow := NewFlow(&mockProvider{}, &mockExchanger{}, roles, mm, testFlowConfig)
	store := &mockStore{}
	ui := &mockUI{}

	err := flow.Login(context.Background(), Callback{Code: "c"}, store, ui)
	assertAPIErrorCode(t, err, model.ErrCodeInsufficientRole)

	if p := created["sub-1"]; p == nil || p.Role != model.RoleUser {
		t.Errorf("profile = %+v, want role user", p)
	}
	if len(ui.navigations) != 0 {
		t.Error("must not navigate for a non-admin")
	}
	assertSingleNotice(t, ui, model.NoticeWarning, "You do not have Admin rights!")
	if len(mm.outcomes) != 1 || mm.outcomes[0] != metrics.LoginInsufficientRole {
		t.Errorf("outcomes = %v, want [insufficient_role]", mm.outcomes)
	}
}

// 管理者以外のロールはトークン保存の成否にかかわらず遷移しない。
func TestFlow_Login_NonAdminNeverNavigates(t *testing.T) {
	roles := []model.Role{model.RoleUser, model.Role("editor"), model.Role("")}
	storeErrs := []error{nil, errors.New("db down")}

	for _, role := range roles {
		for _, storeErr := range storeErrs {
			name := string(role) + "/store_ok"
			if storeErr != nil {
				name = string(role) + "/store_failed"
			}
			t.Run(name, func(t *testing.T) {
				rr := &mockRoles{
					resolveFn: func(ctx context.Context, subject, email string) (*model.UserProfile, error) {
						return &model.UserProfile{Subject: subject, Role: role}, nil
					},
				}
				store := &mockStore{
					setFn: func(ctx context.Context, key, value string) error { return storeErr },
				}
				ui := &mockUI{}
				flow := NewFlow(&mockProvider{}, &mockExchanger{}, rr, nil, testFlowConfig)

				if err := flow.Login(context.Background(), Callback{Code: "c"}, store, ui); err == nil {
					t.Fatal("expected an error for a non-admin login")
				}
				if len(ui.navigations) != 0 {
					t.Errorf("navigations = %+v, want none", ui.navigations)
				}
			})
		}
	}
}

// ロール判定で拒否されても保存済みトークンは取り消さない。
func TestFlow_Login_TokenKeptAfterRoleDenial(t *testing.T) {
	flow := NewFlow(&mockProvider{}, &mockExchanger{}, &mockRoles{}, nil, testFlowConfig)
	store := &mockStore{}

	_ = flow.Login(context.Background(), Callback{Code: "c"}, store, &mockUI{})

	if store.values["token"] != "session-token" {
		t.Errorf("token = %q, want it to remain stored", store.values["token"])
	}
}

// 2回ログインした場合は後の書き込みが残る。
func TestFlow_Login_LastWriteWins(t *testing.T) {
	tokens := []string{"first", "second"}
	i := 0
	exchanger := &mockExchanger{
		exchangeFn: func(ctx context.Context, assertion string) (string, error) {
			tok := tokens[i]
			i++
			return tok, nil
		},
	}
	flow := NewFlow(&mockProvider{}, exchanger, &mockRoles{}, nil, testFlowConfig)
	store := &mockStore{}

	_ = flow.Login(context.Background(), Callback{Code: "c"}, store, &mockUI{})
	_ = flow.Login(context.Background(), Callback{Code: "c"}, store, &mockUI{})

	if store.values["token"] != "second" {
		t.Errorf("token = %q, want %q", store.values["token"], "second")
	}
}

func TestFlow_Login_ProviderFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		outcome string
	}{
		{"cancelled", model.NewProviderCancelledError(), model.ErrCodeProviderCancelled, metrics.LoginCancelled},
		{"provider error", model.NewProviderError(errors.New("boom")), model.ErrCodeProviderError, metrics.LoginProviderError},
		{"plain error", errors.New("unexpected"), model.ErrCodeProviderError, metrics.LoginProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{
				signInFn: func(ctx context.Context, cb Callback) (*model.Credential, error) {
					return nil, tt.err
				},
			}
			exchanger := &mockExchanger{}
			mm := &mockMetrics{}
			ui := &mockUI{}
			flow := NewFlow(provider, exchanger, &mockRoles{}, mm, testFlowConfig)

			err := flow.Login(context.Background(), Callback{}, &mockStore{}, ui)
			assertAPIErrorCode(t, err, tt.code)

			if exchanger.calls != 0 {
				t.Error("exchange must not run after a provider failure")
			}
			assertSingleNotice(t, ui, model.NoticeError, "Google login failed!")
			if len(mm.outcomes) != 1 || mm.outcomes[0] != tt.outcome {
				t.Errorf("outcomes = %v, want [%s]", mm.outcomes, tt.outcome)
			}
		})
	}
}

func TestFlow_Login_StoreFailure(t *testing.T) {
	store := &mockStore{
		setFn: func(ctx context.Context, key, value string) error { return errors.New("db down") },
	}
	roles := &mockRoles{}
	ui := &mockUI{}
	flow := NewFlow(&mockProvider{}, &mockExchanger{}, roles, nil, testFlowConfig)

	err := flow.Login(context.Background(), Callback{Code: "c"}, store, ui)
	assertAPIErrorCode(t, err, model.ErrCodeSessionStoreFailed)
	if roles.calls != 0 {
		t.Error("role lookup must not run after a failed store write")
	}
	assertSingleNotice(t, ui, model.NoticeError, "Google login failed!")
}

func TestFlow_Login_ProfileLookupFailure(t *testing.T) {
	roles := &mockRoles{
		resolveFn: func(ctx context.Context, subject, email string) (*model.UserProfile, error) {
			return nil, errors.New("db down")
		},
	}
	ui := &mockUI{}
	flow := NewFlow(&mockProvider{}, &mockExchanger{}, roles, nil, testFlowConfig)

	err := flow.Login(context.Background(), Callback{Code: "c"}, &mockStore{}, ui)
	assertAPIErrorCode(t, err, model.ErrCodeProfileLookupFailed)
	if len(ui.navigations) != 0 {
		t.Error("must not navigate")
	}
	assertSingleNotice(t, ui, model.NoticeError, "Google login failed!")
}

func TestFlow_GetLoginURL_DelegatesToProvider(t *testing.T) {
	flow := NewFlow(&mockProvider{}, &mockExchanger{}, &mockRoles{}, nil, testFlowConfig)
	if got := flow.GetLoginURL("st"); got != "https://idp.example.com/auth?state=st" {
		t.Errorf("GetLoginURL() = %q", got)
	}
}
