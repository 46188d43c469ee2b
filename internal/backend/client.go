// Package backend はバックエンドAPI（認証・患者一覧）のクライアントを提供する。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/patientadmin/internal/model"
)

const (
	googleLoginPath = "/api/auth/google-login"
	patientsPath    = "/api/patients"
	userAgent       = "PatientAdmin/1.0"
)

// Client はバックエンドAPIのクライアント。
// 呼び出しごとのタイムアウトは設けず、リクエストのコンテキストに従う。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type googleLoginResponse struct {
	Token string `json:"token"`
}

// ExchangeCredential はIdPのIDトークンをバックエンドのセッショントークンに交換する。
// レスポンスにtokenが含まれない場合は空文字列を返す（エラーにはしない）。
func (c *Client) ExchangeCredential(ctx context.Context, assertionToken string) (string, error) {
	payload, err := json.Marshal(googleLoginRequest{IDToken: assertionToken})
	if err != nil {
		return "", fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+googleLoginPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var resp googleLoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("認証APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return resp.Token, nil
}

// ListPatients はセッショントークンを使って患者一覧を取得する。
// 入れ子のレスポンスが想定の形でない場合は空のスライスを返す。
func (c *Client) ListPatients(ctx context.Context, token string) ([]model.PatientRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+patientsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return decodePatientList(body), nil
}

// do はリクエストを実行し、200以外のステータスをエラーとして返す。
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("path", req.URL.Path),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("バックエンドAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("path", req.URL.Path),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Path: req.URL.Path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	return body, nil
}

// StatusError はバックエンドが200以外を返したことを表す。
type StatusError struct {
	StatusCode int
	Path       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("バックエンドAPI %s がステータス %d を返しました", e.Path, e.StatusCode)
}
