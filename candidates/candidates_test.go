package candidates

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
	"github.com/Hamzashehzad1/blogimageeditor/pexels"
)

func photosJSON(ids ...int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf(`{"id":%d,"width":1600,"height":900,"photographer":"P%d","photographer_url":"https://pexels.com/@p%d","alt":"alt %d","src":{"large":"https://img/%d/l","medium":"https://img/%d/m","small":"https://img/%d/s"}}`, id, id, id, id, id, id, id))
	}
	return `{"photos":[` + strings.Join(parts, ",") + `]}`
}

func newFetcher(t *testing.T, h http.HandlerFunc) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Fetcher{Provider: &pexels.Client{APIKey: "k", BaseURL: srv.URL}}
}

func TestSearchPreservesProviderOrder(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))
		_, _ = w.Write([]byte(photosJSON(30, 10, 20)))
	})

	page, err := f.Search(context.Background(), "forest path", 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Candidates, 3)

	var ids []int64
	for _, c := range page.Candidates {
		ids = append(ids, c.ProviderID)
	}
	assert.Equal(t, []int64{30, 10, 20}, ids)

	first := page.Candidates[0]
	assert.Equal(t, Candidate{
		ProviderID:      30,
		FullURL:         "https://img/30/l",
		MediumURL:       "https://img/30/m",
		SmallURL:        "https://img/30/s",
		AttributionName: "P30",
		AttributionURL:  "https://pexels.com/@p30",
		AltText:         "alt 30",
		Width:           1600,
		Height:          900,
	}, first)
	assert.False(t, page.HasMore)
	assert.Equal(t, "forest path", page.Query)
}

func TestSearchHasMoreWhenPageIsFull(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(photosJSON(1, 2)))
	})
	page, err := f.Search(context.Background(), "q", 3, 2)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Equal(t, 3, page.CurrentPage)
}

func TestSearchEmptyIsNotAnError(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"photos":[]}`))
	})
	page, err := f.Search(context.Background(), "nothing matches", 1, 20)
	require.NoError(t, err)
	assert.NotNil(t, page.Candidates)
	assert.Empty(t, page.Candidates)
	assert.False(t, page.HasMore)
}

func TestSearchRateLimitedIsSearchFailure(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := f.Search(context.Background(), "q", 1, 20)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindSearch))
}

func TestSearchNormalizesPaging(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`{"photos":[]}`))
	})
	page, err := f.Search(context.Background(), "q", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
}

func TestGet(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/photos/5" {
			_, _ = w.Write([]byte(`{"id":5,"photographer":"Kim","src":{"large":"https://img/5/l"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	c, err := f.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Kim", c.AttributionName)
	assert.Equal(t, "https://img/5/l", c.FullURL)

	_, err = f.Get(context.Background(), 6)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
