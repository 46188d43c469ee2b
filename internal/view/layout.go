package view

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/hitoshi/patientadmin/internal/model"
)

const htmxScriptURL = "https://unpkg.com/htmx.org@2.0.4"

// Navigation は描画後に予約された画面遷移。
type Navigation struct {
	Route string
	Delay time.Duration
}

// refreshSeconds はmeta refreshに指定する秒数を返す。端数は切り上げる。
func (n Navigation) refreshSeconds() int {
	if n.Delay <= 0 {
		return 0
	}
	return int((n.Delay + time.Second - 1) / time.Second)
}

// Page はページ全体の描画に必要な情報。
type Page struct {
	Title      string
	Notices    []model.Notice
	Navigation *Navigation
	Body       templ.Component
}

// Layout はHTMLドキュメント全体を描画する。
func Layout(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		// CSPでインラインstyleを禁止しているため、htmxの既定スタイル注入を止める
		hw.raw(`<meta name="htmx-config" content='{"includeIndicatorStyles":false}'>`)
		if p.Navigation != nil {
			hw.raw(`<meta http-equiv="refresh"`)
			hw.attr("content", strconv.Itoa(p.Navigation.refreshSeconds())+";url="+p.Navigation.Route)
			hw.raw(`>`)
		}
		hw.raw(`<title>`)
		hw.text(p.Title)
		hw.raw(`</title>`)
		hw.raw(`<script`)
		hw.attr("src", htmxScriptURL)
		hw.raw(`></script></head><body>`)
		if hw.err != nil {
			return hw.err
		}

		if err := Notices(p.Notices).Render(ctx, w); err != nil {
			return err
		}
		if p.Body != nil {
			if err := p.Body.Render(ctx, w); err != nil {
				return err
			}
		}

		hw.raw(`</body></html>`)
		return hw.err
	})
}

// Notices は一時通知の一覧を描画する。通知が無い場合は何も出力しない。
func Notices(notices []model.Notice) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(notices) == 0 {
			return nil
		}
		hw := &htmlWriter{w: w}
		hw.raw(`<div class="notices" role="status">`)
		for _, n := range notices {
			hw.raw(`<div`)
			hw.attr("class", "notice notice-"+string(n.Level))
			hw.raw(`>`)
			hw.text(n.Message)
			hw.raw(`</div>`)
		}
		hw.raw(`</div>`)
		return hw.err
	})
}
