// Package view は管理画面のHTMLコンポーネントを提供する。
package view

import (
	"io"

	"github.com/a-h/templ"
)

// htmlWriter は最初のエラーを保持し、以降の書き込みを無視する。
type htmlWriter struct {
	w   io.Writer
	err error
}

// raw はエスケープせずに書き込む。
func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

// text はHTMLエスケープして書き込む。
func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

// attr は属性値をエスケープして name="value" を書き込む。
func (hw *htmlWriter) attr(name, value string) {
	hw.raw(" " + name + `="`)
	hw.text(value)
	hw.raw(`"`)
}
