package backend

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/patientadmin/internal/model"
)

// patientListPath は患者一覧レスポンス内のコレクションの位置。
// "$"はgjsonのパス構文ではないためそのまま使える。
const patientListPath = "data.items.$values"

// dateLayouts は生年月日として受け付ける書式。
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// decodePatientList は入れ子の患者一覧レスポンスを読み取る。
// どの階層が欠けていても、配列でなくても空のスライスを返す。
func decodePatientList(body []byte) []model.PatientRecord {
	list := gjson.GetBytes(body, patientListPath)
	if !list.IsArray() {
		return []model.PatientRecord{}
	}

	items := list.Array()
	records := make([]model.PatientRecord, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		records = append(records, decodePatient(item))
	}
	return records
}

func decodePatient(item gjson.Result) model.PatientRecord {
	rec := model.PatientRecord{
		ID:       item.Get("id").String(),
		FullName: item.Get("fullName").String(),
		Email:    item.Get("email").String(),
		Role:     item.Get("role").String(),
	}

	info := item.Get("patientInfo")
	if info.IsObject() {
		rec.PatientInfo = &model.PatientInfo{
			Gender:      model.Gender(info.Get("gender").String()),
			DateOfBirth: parseDate(info.Get("dateOfBirth").String()),
		}
	}
	return rec
}

// parseDate は生年月日を暦日として解釈する。解釈できない場合はnilを返す。
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
