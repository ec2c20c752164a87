// Package pexels is a small client for the Pexels photo search API.
package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Pexels v1 API.
const DefaultBaseURL = "https://api.pexels.com/v1"

// MaxPerPage is the largest page size Pexels accepts.
const MaxPerPage = 80

// ErrNotFound is returned by Photo for unknown ids.
var ErrNotFound = errors.New("pexels: photo not found")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pexels status: %d %s", e.Code, e.Body)
}

// Photo mirrors the provider's photo record.
type Photo struct {
	ID              int64  `json:"id"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	URL             string `json:"url"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographer_url"`
	AvgColor        string `json:"avg_color"`
	Alt             string `json:"alt"`
	Src             Source `json:"src"`
}

// Source holds the size variants Pexels renders for a photo.
type Source struct {
	Original  string `json:"original"`
	Large2x   string `json:"large2x"`
	Large     string `json:"large"`
	Medium    string `json:"medium"`
	Small     string `json:"small"`
	Portrait  string `json:"portrait"`
	Landscape string `json:"landscape"`
	Tiny      string `json:"tiny"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	TotalResults int     `json:"total_results"`
	NextPage     string  `json:"next_page"`
	Photos       []Photo `json:"photos"`
}

// SearchParams controls a search request.
type SearchParams struct {
	Query       string
	Page        int
	PerPage     int
	Orientation string // landscape, portrait or square
	Size        string // large, medium or small
}

// Client calls the Pexels API.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// New returns a Client with a request timeout.
func New(apiKey string, timeout time.Duration) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Search runs one paginated photo search.
func (c *Client) Search(ctx context.Context, p SearchParams) (SearchResponse, error) {
	q := url.Values{}
	q.Set("query", p.Query)
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Orientation != "" {
		q.Set("orientation", p.Orientation)
	}
	if p.Size != "" {
		q.Set("size", p.Size)
	}
	var out SearchResponse
	if err := c.get(ctx, "/search", q, &out); err != nil {
		return SearchResponse{}, err
	}
	return out, nil
}

// Photo fetches a single photo by id.
func (c *Client) Photo(ctx context.Context, id int64) (Photo, error) {
	var out Photo
	err := c.get(ctx, "/photos/"+strconv.FormatInt(id, 10), nil, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return Photo{}, ErrNotFound
	}
	if err != nil {
		return Photo{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u := strings.TrimRight(base, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.APIKey)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode pexels response: %w", err)
	}
	return nil
}
