// Package templates holds the HTML fragments returned to HTMX clients.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert renders a dismissible error banner with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b htmlBuilder
		b.wrap(`<div class="alert alert-error" role="alert" data-code="`, code, `">`)
		b.wrap(`<p class="alert-message">`, message, `</p>`)
		if action != "" {
			b.wrap(`<p class="alert-action">`, action, `</p>`)
		}
		b.wrap(`<p class="alert-code">Code: `, code, `</p>`)
		b.raw(`<button type="button" class="alert-dismiss" onclick="this.parentElement.remove()">Dismiss</button>`)
		b.raw(`</div>`)
		return b.flush(w)
	})
}

// SuccessAlert renders a confirmation banner.
func SuccessAlert(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b htmlBuilder
		b.wrap(`<div class="alert alert-success" role="status"><p class="alert-message">`, message, `</p></div>`)
		return b.flush(w)
	})
}
