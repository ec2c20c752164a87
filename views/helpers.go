package views

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

// htmlWriter writes escaped and literal HTML, keeping the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// PostsURL builds a listing URL for a status filter and page.
func PostsURL(status string, page int) string {
	q := url.Values{}
	if status != "" && status != "all" {
		q.Set("status", status)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return "/posts/"
	}
	return "/posts/?" + q.Encode()
}

// EditURL returns the editor URL for a post.
func EditURL(id int64) string {
	return "/edit/" + strconv.FormatInt(id, 10) + "/"
}

// StatusClass returns the badge class for a post status.
func StatusClass(status string) string {
	switch status {
	case "publish":
		return "badge badge-publish"
	case "draft":
		return "badge badge-draft"
	default:
		return "badge"
	}
}

// PageWindow returns the page numbers to link around current.
func PageWindow(current, total, radius int) []int {
	if total < 1 {
		return nil
	}
	lo, hi := current-radius, current+radius
	if lo < 1 {
		lo = 1
	}
	if hi > total {
		hi = total
	}
	pages := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		pages = append(pages, p)
	}
	return pages
}
