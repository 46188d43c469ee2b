package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// LoginForm はGoogleログインの入口を描画する。
func LoginForm(loginPath string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<main class="login"><h2>Welcome Back</h2>`)
		hw.raw(`<p>Login to continue using the service</p>`)
		hw.raw(`<a class="button button-google"`)
		hw.attr("href", loginPath)
		hw.raw(`>Login with Google</a></main>`)
		return hw.err
	})
}
