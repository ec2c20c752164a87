package blogimageeditor

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
	"github.com/Hamzashehzad1/blogimageeditor/segment"
	"github.com/Hamzashehzad1/blogimageeditor/views"
)

// excerptRunes bounds listing excerpts.
const excerptRunes = 160

// Attribution is the credit line stored with every uploaded photo.
func Attribution(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		author = "Unknown"
	}
	return fmt.Sprintf("Image by %s from Pexels", author)
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, apperr.ErrNotFound) {
		return http.StatusNotFound
	}
	switch apperr.KindOf(err) {
	case apperr.KindCompression:
		return http.StatusUnprocessableEntity
	case apperr.KindConnection, apperr.KindGeneration, apperr.KindSearch, apperr.KindDownload, apperr.KindPublish:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func kindName(err error) string {
	k := apperr.KindOf(err)
	if k == apperr.KindUnknown {
		return ""
	}
	return k.String()
}

// parsePage reads a 1-based page number, falling back to 1.
func parsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// parseID reads a positive integer path parameter.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// httpURL checks that s is an absolute http or https URL.
func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http or https URL")
	}
	return nil
}

// plain renders WordPress HTML (titles, excerpts) as display text.
func plain(fragment string) string {
	return segment.PlainText(fragment)
}

func sectionViews(sections []segment.Section) []views.Section {
	out := make([]views.Section, 0, len(sections))
	for i, s := range sections {
		out = append(out, views.Section{
			Index:   i,
			Kind:    string(s.Kind),
			Text:    s.HeadingText,
			Excerpt: segment.Excerpt(s.BodyExcerpt, excerptRunes),
			Images:  s.Images,
		})
	}
	return out
}
