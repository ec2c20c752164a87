package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// layout wraps body in the shared document shell.
func layout(p Page, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<meta name="csrf-token" content="`)
		h.text(p.CSRFToken)
		h.raw(`"><title>`)
		if p.Title != "" {
			h.text(p.Title)
			h.raw(" · ")
		}
		h.raw(`Blog Image Editor</title><link rel="stylesheet" href="/public/editor.css"></head><body>`)

		h.raw(`<header class="topbar"><a class="brand" href="/">Blog Image Editor</a>`)
		if p.SiteURL != "" {
			h.raw(`<nav><span class="site">`)
			h.text(p.SiteURL)
			h.raw(`</span><a href="/posts/">Posts</a><a href="/disconnect/">Disconnect</a></nav>`)
		}
		h.raw(`</header><main>`)

		if len(p.Flashes) > 0 {
			h.raw(`<div class="flashes">`)
			for _, f := range p.Flashes {
				h.raw(`<div class="flash flash-`)
				h.text(f.Kind)
				h.raw(`" role="alert">`)
				h.text(f.Message)
				h.raw(`</div>`)
			}
			h.raw(`</div>`)
		}

		h.component(ctx, body)
		h.raw(`</main><div id="toast-container"></div><script src="/public/editor.js" defer></script></body></html>`)
		return h.err
	})
}
