package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/patientadmin/internal/middleware"
	"github.com/hitoshi/patientadmin/internal/model"
	"github.com/hitoshi/patientadmin/internal/patient"
	"github.com/hitoshi/patientadmin/internal/view"
)

const patientTablePath = "/patients/table"

// PatientLoader は患者ハンドラーが必要とするサービスインターフェース。
type PatientLoader interface {
	Load(ctx context.Context, token string) ([]model.PatientRecord, error)
}

// PatientHandler は患者一覧関連のHTTPハンドラー。
type PatientHandler struct {
	loader PatientLoader
}

// NewPatientHandler はPatientHandlerを生成する。
func NewPatientHandler(loader PatientLoader) *PatientHandler {
	return &PatientHandler{loader: loader}
}

// patientResponse は患者一覧APIのレスポンス要素。
type patientResponse struct {
	ID          string  `json:"id"`
	FullName    string  `json:"full_name"`
	Email       string  `json:"email"`
	Gender      string  `json:"gender"`
	DateOfBirth *string `json:"date_of_birth"`
}

// patientListResponse は患者一覧APIのレスポンス。
type patientListResponse struct {
	Items []patientResponse `json:"items"`
	Count int               `json:"count"`
}

// Page は患者一覧画面の枠を表示する。一覧本体はTableで読み込む。
// GET /patients
func (h *PatientHandler) Page(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, http.StatusOK, view.Page{
		Title: "Patients",
		Body:  view.PatientsPanel(patientTablePath, queryFromRequest(r)),
	})
}

// Table は絞り込み済みの患者一覧テーブルを返す。
// 取得に失敗した場合も200で空の一覧とエラー通知を返す。
// GET /patients/table?q=xxx&gender=yyy
func (h *PatientHandler) Table(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.TokenFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	records, err := h.loader.Load(r.Context(), token)
	var notices []model.Notice
	if err != nil {
		notices = append(notices, model.Notice{Level: model.NoticeError, Message: apiErrorMessage(err)})
	}

	renderComponent(w, r, http.StatusOK, view.PatientTable(patient.Filter(records, queryFromRequest(r)), notices))
}

// List は絞り込み済みの患者一覧をJSONで返す。
// GET /api/patients?q=xxx&gender=yyy
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.TokenFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	records, err := h.loader.Load(r.Context(), token)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			middleware.WriteErrorResponse(w, middleware.StatusCodeFor(apiErr), apiErr)
			return
		}
		slog.Error("failed to load patients", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	items := make([]patientResponse, 0, len(records))
	for rec := range patient.Filter(records, queryFromRequest(r)) {
		items = append(items, toPatientResponse(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patientListResponse{Items: items, Count: len(items)})
}

func toPatientResponse(rec model.PatientRecord) patientResponse {
	resp := patientResponse{
		ID:       rec.ID,
		FullName: rec.FullName,
		Email:    rec.Email,
		Gender:   string(rec.Gender()),
	}
	if dob := rec.DateOfBirth(); dob != nil {
		s := dob.Format("2006-01-02")
		resp.DateOfBirth = &s
	}
	return resp
}

// queryFromRequest はクエリパラメータから絞り込み条件を組み立てる。
func queryFromRequest(r *http.Request) patient.Query {
	q := r.URL.Query()
	return patient.Query{
		Search: q.Get("q"),
		Gender: model.Gender(q.Get("gender")),
	}
}

// apiErrorMessage はユーザーに表示するエラーメッセージを返す。
func apiErrorMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "An internal error occurred."
}
