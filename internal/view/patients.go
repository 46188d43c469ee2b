package view

import (
	"context"
	"io"
	"iter"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/hitoshi/patientadmin/internal/model"
	"github.com/hitoshi/patientadmin/internal/patient"
)

const (
	notAvailable   = "N/A"
	dobLayout      = "02-01-2006"
	tableColumns   = "5"
	emptyTableText = "No patients found"
)

// PatientsPanel は検索フォームと、読み込み中表示を持つ一覧の枠を描画する。
// 一覧本体はtablePathからhtmxで取得する。
func PatientsPanel(tablePath string, q patient.Query) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<main class="patients">`)
		hw.raw(`<form id="patient-filters" class="filters"`)
		hw.attr("hx-get", tablePath)
		hw.attr("hx-target", "#patient-table")
		hw.attr("hx-trigger", "input changed delay:300ms from:#search, change from:#gender")
		hw.raw(`>`)
		hw.raw(`<input id="search" type="text" name="q" placeholder="Search &#34;Patients&#34;"`)
		hw.attr("value", q.Search)
		hw.raw(`>`)
		hw.raw(`<select id="gender" name="gender">`)
		genderOption(hw, "", "Gender...", q.Gender)
		genderOption(hw, model.GenderMale, "Male", q.Gender)
		genderOption(hw, model.GenderFemale, "Female", q.Gender)
		hw.raw(`</select></form>`)

		hw.raw(`<div id="patient-table" class="table-panel"`)
		hw.attr("hx-get", tablePath)
		hw.attr("hx-trigger", "load")
		hw.attr("hx-include", "#patient-filters")
		hw.raw(`><div class="loading">Loading...</div></div></main>`)
		return hw.err
	})
}

func genderOption(hw *htmlWriter, value model.Gender, label string, selected model.Gender) {
	hw.raw(`<option`)
	hw.attr("value", string(value))
	if value == selected {
		hw.raw(` selected`)
	}
	hw.raw(`>`)
	hw.text(label)
	hw.raw(`</option>`)
}

// PatientTable は絞り込み済みの患者一覧を描画する。
// 1件も無い場合は"No patients found"の行を1行だけ描画する。
func PatientTable(records iter.Seq[model.PatientRecord], notices []model.Notice) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := Notices(notices).Render(ctx, w); err != nil {
			return err
		}

		hw := &htmlWriter{w: w}
		hw.raw(`<table class="patient-table"><thead><tr>`)
		hw.raw(`<th>#</th><th>Patient</th><th>Email</th><th>Gender</th><th>Date of Birth</th>`)
		hw.raw(`</tr></thead><tbody>`)

		n := 0
		for rec := range records {
			n++
			patientRow(hw, n, rec)
		}
		if n == 0 {
			hw.raw(`<tr class="empty"><td`)
			hw.attr("colspan", tableColumns)
			hw.raw(`>`)
			hw.text(emptyTableText)
			hw.raw(`</td></tr>`)
		}

		hw.raw(`</tbody></table>`)
		return hw.err
	})
}

func patientRow(hw *htmlWriter, index int, rec model.PatientRecord) {
	gender := rec.Gender()
	hw.raw(`<tr`)
	if rec.ID != "" {
		hw.attr("data-id", rec.ID)
	}
	hw.raw(`><td>`)
	hw.text(strconv.Itoa(index))
	hw.raw(`</td><td class="name">`)
	hw.text(orNA(rec.FullName))
	hw.raw(`</td><td>`)
	hw.text(orNA(rec.Email))
	hw.raw(`</td><td><span`)
	hw.attr("class", GenderBadgeClass(gender))
	hw.raw(`>`)
	hw.text(orNA(string(gender)))
	hw.raw(`</span></td><td>`)
	hw.text(FormatDateOfBirth(rec.DateOfBirth()))
	hw.raw(`</td></tr>`)
}

// GenderBadgeClass は性別バッジのCSSクラスを返す。
func GenderBadgeClass(g model.Gender) string {
	switch g {
	case model.GenderMale:
		return "badge badge-male"
	case model.GenderFemale:
		return "badge badge-female"
	default:
		return "badge badge-other"
	}
}

// FormatDateOfBirth は生年月日をDD-MM-YYYY形式で返す。nilの場合は"N/A"。
func FormatDateOfBirth(t *time.Time) string {
	if t == nil {
		return notAvailable
	}
	return t.Format(dobLayout)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
