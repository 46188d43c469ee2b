// Package patient は患者一覧の取得と絞り込みを提供する。
package patient

import (
	"iter"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hitoshi/patientadmin/internal/model"
)

// Query は患者一覧の絞り込み条件。ゼロ値はすべての患者に一致する。
type Query struct {
	Search string       // 氏名の部分一致（大文字小文字を区別しない）
	Gender model.Gender // 空の場合は性別で絞り込まない
}

// Filter はqに一致する患者を入力順に返すシーケンスを返す。
// 評価は遅延で、シーケンスは何度でも、複数のgoroutineから同時にでも走査できる。
// 対象はロールが"Patient"のレコードのみ。
func Filter(records []model.PatientRecord, q Query) iter.Seq[model.PatientRecord] {
	return func(yield func(model.PatientRecord) bool) {
		// Caserは状態を持つため走査ごとに生成する
		fold := cases.Fold()
		needle := fold.String(q.Search)
		for _, rec := range records {
			if !matches(rec, needle, q.Gender, fold) {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func matches(rec model.PatientRecord, needle string, gender model.Gender, fold cases.Caser) bool {
	if rec.Role != model.PatientRoleTag {
		return false
	}
	if gender != "" && rec.Gender() != gender {
		return false
	}
	return strings.Contains(fold.String(rec.FullName), needle)
}
