// Package templates renders the respondent-facing HTML pages as templ
// components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const styles = `body{font-family:system-ui,sans-serif;max-width:42rem;margin:2rem auto;padding:0 1rem;color:#1f2933}
.question{margin:1.5rem 0}.help{color:#616e7c;font-size:.9rem}.required{color:#c62828}
.errors{background:#fdecea;border:1px solid #f5c2c0;padding:.75rem 1rem;border-radius:4px}
.progress{background:#e4e7eb;height:.5rem;border-radius:4px}.progress>div{background:#3e7bfa;height:100%;border-radius:4px}
.preview{background:#fff8e1;padding:.5rem 1rem;border-radius:4px}
.actions{display:flex;gap:1rem;margin-top:2rem}`

// Layout wraps body in the page shell
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title><style>%s</style></head><body>`,
			templ.EscapeString(title), styles); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// ErrorPage renders a full page with a single message
func ErrorPage(title, message string) templ.Component {
	return Layout(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<main><h1>%s</h1><p>%s</p></main>`,
			templ.EscapeString(title), templ.EscapeString(message))
		return err
	}))
}
