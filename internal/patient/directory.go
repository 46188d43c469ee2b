package patient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/patientadmin/internal/backend"
	"github.com/hitoshi/patientadmin/internal/metrics"
	"github.com/hitoshi/patientadmin/internal/model"
)

// Lister はバックエンドから患者一覧を取得するインターフェース。
type Lister interface {
	ListPatients(ctx context.Context, token string) ([]model.PatientRecord, error)
}

// Directory は患者一覧の取得を担うサービス層。
type Directory struct {
	lister  Lister
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewDirectory はDirectoryを生成する。mcはnilでもよい。
func NewDirectory(lister Lister, mc metrics.MetricsCollector) *Directory {
	return &Directory{lister: lister, metrics: mc, now: time.Now}
}

// Load は患者一覧を取得する。
// 取得に失敗した場合はエラーをログに記録し、空のスライスとFetchFailedを返す。
func (d *Directory) Load(ctx context.Context, token string) ([]model.PatientRecord, error) {
	start := d.now()
	records, err := d.lister.ListPatients(ctx, token)
	elapsed := d.now().Sub(start)

	if err != nil {
		reason := "network"
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			reason = "http_status"
			d.recordStatus(statusErr.StatusCode)
		}
		slog.Error("患者一覧の取得に失敗しました",
			slog.String("error", err.Error()),
			slog.String("reason", reason),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		)
		if d.metrics != nil {
			d.metrics.RecordPatientFetchFailure(reason)
		}
		return []model.PatientRecord{}, model.NewFetchFailedError(err)
	}

	if records == nil {
		records = []model.PatientRecord{}
	}

	d.recordStatus(200)
	if d.metrics != nil {
		d.metrics.RecordPatientFetchSuccess(len(records))
		d.metrics.RecordPatientFetchLatency(elapsed)
	}
	return records, nil
}

func (d *Directory) recordStatus(code int) {
	if d.metrics != nil {
		d.metrics.RecordBackendStatus(code)
	}
}
