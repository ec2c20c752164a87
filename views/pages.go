package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Index is the connect form.
func Index(p Page) templ.Component {
	p.Title = "Connect"
	return layout(p, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="card narrow"><h1>Connect to WordPress</h1>`)
		h.raw(`<p>Use an application password from your WordPress profile.</p>`)
		h.raw(`<form method="post" action="/connect/">`)
		h.raw(`<input type="hidden" name="_csrf" value="`)
		h.text(p.CSRFToken)
		h.raw(`">`)
		h.raw(`<label>Site URL<input type="url" name="site_url" placeholder="https://example.com" required></label>`)
		h.raw(`<label>Username<input type="text" name="username" autocomplete="username" required></label>`)
		h.raw(`<label>Application password<input type="password" name="app_password" autocomplete="current-password" required></label>`)
		h.raw(`<button type="submit">Connect</button></form></section>`)
		return h.err
	}))
}

// Posts lists posts with a status filter and pagination.
func Posts(p PostsPage) templ.Component {
	p.Title = "Posts"
	return layout(p.Page, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="card"><h1>Posts</h1><div class="filters">`)
		for _, s := range []struct{ value, label string }{{"all", "All"}, {"publish", "Published"}, {"draft", "Drafts"}} {
			class := "filter"
			if s.value == p.Status || (s.value == "all" && p.Status == "") {
				class += " active"
			}
			h.rawf(`<a class="%s" href="`, class)
			h.text(PostsURL(s.value, 1))
			h.raw(`">`)
			h.text(s.label)
			h.raw(`</a>`)
		}
		h.raw(`</div>`)

		if len(p.Posts) == 0 {
			h.raw(`<p class="empty">No posts found.</p>`)
		} else {
			h.raw(`<table class="posts"><thead><tr><th>Title</th><th>Status</th><th>Date</th><th></th></tr></thead><tbody>`)
			for _, post := range p.Posts {
				h.raw(`<tr><td><strong>`)
				h.text(post.Title)
				h.raw(`</strong>`)
				if post.Excerpt != "" {
					h.raw(`<div class="excerpt">`)
					h.text(post.Excerpt)
					h.raw(`</div>`)
				}
				h.raw(`</td><td><span class="`)
				h.text(StatusClass(post.Status))
				h.raw(`">`)
				h.text(post.Status)
				h.raw(`</span></td><td>`)
				h.text(post.Date)
				h.raw(`</td><td><a class="button" href="`)
				h.text(EditURL(post.ID))
				h.raw(`">Edit images</a></td></tr>`)
			}
			h.raw(`</tbody></table>`)
		}

		if p.TotalPages > 1 {
			h.raw(`<nav class="pagination">`)
			if p.CurrentPage > 1 {
				h.raw(`<a href="`)
				h.text(PostsURL(p.Status, p.CurrentPage-1))
				h.raw(`">&laquo; Prev</a>`)
			}
			for _, n := range PageWindow(p.CurrentPage, p.TotalPages, 2) {
				if n == p.CurrentPage {
					h.rawf(`<span class="current">%d</span>`, n)
					continue
				}
				h.raw(`<a href="`)
				h.text(PostsURL(p.Status, n))
				h.rawf(`">%d</a>`, n)
			}
			if p.CurrentPage < p.TotalPages {
				h.raw(`<a href="`)
				h.text(PostsURL(p.Status, p.CurrentPage+1))
				h.raw(`">Next &raquo;</a>`)
			}
			h.raw(`</nav>`)
		}
		h.raw(`</section>`)
		return h.err
	}))
}

// Edit is the editor: post content, one suggestion panel per heading and a
// featured image panel.
func Edit(p EditPage) templ.Component {
	p.Title = p.PostTitle
	return layout(p.Page, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		id := strconv.FormatInt(p.PostID, 10)
		h.rawf(`<section class="card editor" id="editor" data-post-id="%s" data-featured-media="%d" data-max-bytes="%d">`, id, p.FeaturedMedia, p.MaxBytes)
		h.raw(`<div class="editor-head"><h1>`)
		h.text(p.PostTitle)
		h.raw(`</h1><span class="`)
		h.text(StatusClass(p.Status))
		h.raw(`">`)
		h.text(p.Status)
		h.raw(`</span><button id="savePostBtn" type="button">Save as draft</button></div>`)
		h.raw(`<p class="hint">Saving always stores the post as a draft.</p>`)

		h.raw(`<div class="panel" data-heading="featured"><h2>Featured image</h2>`)
		h.raw(`<button type="button" class="suggest">Suggest images</button><div class="results"></div></div>`)

		if len(p.Sections) == 0 {
			h.raw(`<p class="empty">This post has no H2 or H3 headings.</p>`)
		}
		for _, s := range p.Sections {
			h.rawf(`<div class="panel" data-heading="%d"><h3><span class="kind">`, s.Index)
			h.text(s.Kind)
			h.raw(`</span> `)
			h.text(s.Text)
			h.raw(`</h3>`)
			if s.Images > 0 {
				h.rawf(`<p class="images">%d image(s) already in this section</p>`, s.Images)
			}
			if s.Excerpt != "" {
				h.raw(`<p class="excerpt">`)
				h.text(s.Excerpt)
				h.raw(`</p>`)
			}
			h.raw(`<button type="button" class="suggest">Suggest images</button><div class="results"></div></div>`)
		}

		h.raw(`<label class="content">Content<textarea id="postContent" rows="24">`)
		h.text(p.Content)
		h.raw(`</textarea></label></section>`)
		return h.err
	}))
}

// NotFound is the 404 page.
func NotFound() templ.Component {
	return layout(Page{Title: "Not found"}, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="card narrow"><h1>Page not found</h1><p><a href="/">Back to start</a></p></section>`)
		return h.err
	}))
}

// ServerError is the 5xx page.
func ServerError() templ.Component {
	return layout(Page{Title: "Error"}, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="card narrow"><h1>Something went wrong</h1><p>Please try again.</p></section>`)
		return h.err
	}))
}
