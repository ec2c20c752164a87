// Package wordpress talks to the WordPress REST API with application
// password authentication.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
)

const (
	apiPath = "/wp-json/wp/v2"

	DefaultTimeout       = 15 * time.Second
	DefaultUploadTimeout = 30 * time.Second

	// StatusAll lists published posts and drafts together.
	StatusAll = "all"
	// StatusDraft is written on every content update.
	StatusDraft = "draft"
)

// Post is a blog post as the editor sees it. Title, Excerpt and Content hold
// WordPress' rendered HTML.
type Post struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Excerpt       string `json:"excerpt,omitempty"`
	Content       string `json:"content,omitempty"`
	Status        string `json:"status"`
	Date          string `json:"date"`
	Modified      string `json:"modified"`
	Link          string `json:"link,omitempty"`
	FeaturedMedia int64  `json:"featured_media"`
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts       []Post `json:"posts"`
	CurrentPage int    `json:"current_page"`
	TotalPages  int    `json:"total_pages"`
}

// MediaUpload is a file to add to the media library.
type MediaUpload struct {
	Filename string
	MIME     string
	Data     []byte
	AltText  string
	Caption  string
}

// Media is an uploaded attachment.
type Media struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
}

// StatusError reports an unexpected response status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wordpress status: %d %s", e.Code, e.Body)
}

type rendered struct {
	Rendered string `json:"rendered"`
}

type wirePost struct {
	ID            int64    `json:"id"`
	Title         rendered `json:"title"`
	Excerpt       rendered `json:"excerpt"`
	Content       rendered `json:"content"`
	Status        string   `json:"status"`
	Date          string   `json:"date"`
	Modified      string   `json:"modified"`
	Link          string   `json:"link"`
	FeaturedMedia int64    `json:"featured_media"`
}

func (w wirePost) post() Post {
	return Post{
		ID:            w.ID,
		Title:         w.Title.Rendered,
		Excerpt:       w.Excerpt.Rendered,
		Content:       w.Content.Rendered,
		Status:        w.Status,
		Date:          w.Date,
		Modified:      w.Modified,
		Link:          w.Link,
		FeaturedMedia: w.FeaturedMedia,
	}
}

// Client calls one WordPress site.
type Client struct {
	SiteURL       string
	Username      string
	AppPassword   string
	HTTPClient    *http.Client
	UploadTimeout time.Duration
}

// New returns a Client for siteURL. A zero timeout means DefaultTimeout.
func New(siteURL, username, appPassword string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		SiteURL:       strings.TrimRight(siteURL, "/"),
		Username:      username,
		AppPassword:   appPassword,
		HTTPClient:    &http.Client{Timeout: timeout},
		UploadTimeout: DefaultUploadTimeout,
	}
}

// TestConnection checks that the credentials can list posts.
func (c *Client) TestConnection(ctx context.Context) error {
	q := url.Values{"per_page": {"1"}}
	resp, err := c.do(ctx, http.MethodGet, "/posts?"+q.Encode(), nil, "", 0)
	if err != nil {
		log.Error().Err(err).Str("site", c.SiteURL).Msg("wordpress connection test failed")
		return apperr.New(apperr.KindConnection, "wordpress.test", err)
	}
	resp.Body.Close()
	return nil
}

// ListPosts returns a page of posts ordered by date, newest first. Status
// StatusAll (or empty) lists published posts and drafts.
func (c *Client) ListPosts(ctx context.Context, status string, page, perPage int) (PostPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if status == "" || status == StatusAll {
		status = "publish,draft"
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("orderby", "date")
	q.Set("order", "desc")
	q.Set("status", status)

	resp, err := c.do(ctx, http.MethodGet, "/posts?"+q.Encode(), nil, "", 0)
	if err != nil {
		log.Error().Err(err).Str("site", c.SiteURL).Int("page", page).Msg("list posts failed")
		return PostPage{}, apperr.New(apperr.KindConnection, "wordpress.list_posts", err)
	}
	defer resp.Body.Close()

	var wire []wirePost
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return PostPage{}, apperr.New(apperr.KindConnection, "wordpress.list_posts", fmt.Errorf("decode posts: %w", err))
	}
	totalPages, err := strconv.Atoi(resp.Header.Get("X-WP-TotalPages"))
	if err != nil || totalPages < 1 {
		totalPages = 1
	}
	posts := make([]Post, 0, len(wire))
	for _, w := range wire {
		p := w.post()
		p.Content = ""
		posts = append(posts, p)
	}
	return PostPage{Posts: posts, CurrentPage: page, TotalPages: totalPages}, nil
}

// GetPost fetches one post with its rendered content. Unknown ids return
// apperr.ErrNotFound.
func (c *Client) GetPost(ctx context.Context, id int64) (Post, error) {
	resp, err := c.do(ctx, http.MethodGet, "/posts/"+strconv.FormatInt(id, 10), nil, "", 0)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return Post{}, apperr.ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Int64("post_id", id).Msg("get post failed")
		return Post{}, apperr.New(apperr.KindConnection, "wordpress.get_post", err)
	}
	defer resp.Body.Close()
	var w wirePost
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return Post{}, apperr.New(apperr.KindConnection, "wordpress.get_post", fmt.Errorf("decode post: %w", err))
	}
	return w.post(), nil
}

// UpdatePost replaces a post's content and sets its status to draft.
// featured_media is sent only when featuredMediaID is positive.
func (c *Client) UpdatePost(ctx context.Context, id int64, content string, featuredMediaID int64) error {
	body := map[string]any{
		"content": content,
		"status":  StatusDraft,
	}
	if featuredMediaID > 0 {
		body["featured_media"] = featuredMediaID
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.New(apperr.KindPublish, "wordpress.update_post", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/posts/"+strconv.FormatInt(id, 10), bytes.NewReader(payload), "application/json", 0)
	if err != nil {
		return apperr.New(apperr.KindPublish, "wordpress.update_post", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindPublish, "wordpress.update_post", &StatusError{Code: resp.StatusCode})
	}
	return nil
}

// UploadMedia adds a file to the media library. WordPress answers 201 with
// the attachment's source_url.
func (c *Client) UploadMedia(ctx context.Context, m MediaUpload) (Media, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeMediaForm(mw, m); err != nil {
		return Media{}, apperr.New(apperr.KindPublish, "wordpress.upload_media", err)
	}

	timeout := c.UploadTimeout
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	resp, err := c.do(ctx, http.MethodPost, "/media", &buf, mw.FormDataContentType(), timeout)
	if err != nil {
		log.Error().Err(err).Str("file", m.Filename).Msg("media upload failed")
		return Media{}, apperr.New(apperr.KindPublish, "wordpress.upload_media", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		err := &StatusError{Code: resp.StatusCode}
		log.Error().Err(err).Str("file", m.Filename).Msg("media upload rejected")
		return Media{}, apperr.New(apperr.KindPublish, "wordpress.upload_media", err)
	}
	var media Media
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return Media{}, apperr.New(apperr.KindPublish, "wordpress.upload_media", fmt.Errorf("decode media: %w", err))
	}
	if media.ID == 0 || media.SourceURL == "" {
		return Media{}, apperr.New(apperr.KindPublish, "wordpress.upload_media", errors.New("response missing id or source_url"))
	}
	return media, nil
}

func writeMediaForm(mw *multipart.Writer, m MediaUpload) error {
	mime := m.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(m.Filename)))
	h.Set("Content-Type", mime)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(m.Data); err != nil {
		return err
	}
	if m.AltText != "" {
		if err := mw.WriteField("alt_text", m.AltText); err != nil {
			return err
		}
	}
	if m.Caption != "" {
		if err := mw.WriteField("caption", m.Caption); err != nil {
			return err
		}
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

// do sends an authenticated request. GET requests with a non-2xx response
// are turned into a *StatusError; other methods leave status checks to the
// caller.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, timeout time.Duration) (*http.Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		resp, err := c.send(ctx, method, path, body, contentType)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return c.send(ctx, method, path, body, contentType)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.SiteURL, "/")+apiPath+path, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.Username, c.AppPassword)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
