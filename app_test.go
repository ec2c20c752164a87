package blogimageeditor

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hamzashehzad1/blogimageeditor/pexels"
)

const (
	wpUser     = "editor"
	wpPassword = "abcd efgh ijkl"
	postHTML   = `<p>Intro</p><h2>Mountain lakes</h2><p>Cold water and pine trees.</p><h3>Gear</h3><p>Boots.</p>`
)

// fakeWordPress serves the REST endpoints the editor calls for a single post.
type fakeWordPress struct {
	mu         sync.Mutex
	updates    []map[string]any
	captions   []string
	failUpload bool
}

func (f *fakeWordPress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != wpUser || pass != wpPassword {
		http.Error(w, `{"code":"rest_not_logged_in"}`, http.StatusUnauthorized)
		return
	}
	post := map[string]any{
		"id":             42,
		"title":          map[string]string{"rendered": "Lakes &amp; Hills"},
		"excerpt":        map[string]string{"rendered": "<p>Intro</p>"},
		"content":        map[string]string{"rendered": postHTML},
		"status":         "publish",
		"date":           "2024-05-01T10:00:00",
		"featured_media": 0,
	}
	path := strings.TrimPrefix(r.URL.Path, "/wp-json/wp/v2")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && path == "/posts":
		w.Header().Set("X-WP-TotalPages", "1")
		_ = json.NewEncoder(w).Encode([]any{post})
	case r.Method == http.MethodGet && path == "/posts/42":
		_ = json.NewEncoder(w).Encode(post)
	case r.Method == http.MethodPost && path == "/posts/42":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.updates = append(f.updates, body)
		f.mu.Unlock()
		post["status"] = body["status"]
		_ = json.NewEncoder(w).Encode(post)
	case r.Method == http.MethodPost && path == "/media":
		if f.failUpload {
			http.Error(w, `{"code":"rest_upload_error"}`, http.StatusInternalServerError)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.captions = append(f.captions, r.FormValue("caption"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":7,"source_url":"https://wp.example/wp-content/uploads/lake.jpg"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"rest_post_invalid_id"}`)
	}
}

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(context.Context, string) (string, error) { return s.reply, nil }

type stubProvider struct{ imageURL string }

func (p stubProvider) Search(_ context.Context, params pexels.SearchParams) (pexels.SearchResponse, error) {
	return pexels.SearchResponse{Page: params.Page, Photos: []pexels.Photo{p.photo()}}, nil
}

func (p stubProvider) Photo(_ context.Context, id int64) (pexels.Photo, error) {
	if id != 1001 {
		return pexels.Photo{}, pexels.ErrNotFound
	}
	return p.photo(), nil
}

func (p stubProvider) photo() pexels.Photo {
	return pexels.Photo{
		ID:           1001,
		Width:        400,
		Height:       300,
		Photographer: "Ana Lind",
		Alt:          "lake at dawn",
		Src:          pexels.Source{Large: p.imageURL, Medium: p.imageURL, Small: p.imageURL},
	}
}

type testEnv struct {
	app     *App
	srv     *httptest.Server
	wp      *fakeWordPress
	wpURL   string
	client  *http.Client
	uploads string
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 120, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	wp := &fakeWordPress{}
	wpSrv := httptest.NewServer(wp)
	t.Cleanup(wpSrv.Close)

	photo := pngBytes(t)
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(photo)
	}))
	t.Cleanup(imgSrv.Close)

	cfg := Config{
		SessionSecret: "test-secret-0123456789",
		DatabasePath:  filepath.Join(dir, "editor.db"),
		StaticDir:     dir,
		UploadsDir:    filepath.Join(dir, "uploads"),
	}
	app := New(cfg,
		WithCompleter(stubCompleter{reply: `"alpine lake"`}),
		WithImageProvider(stubProvider{imageURL: imgSrv.URL + "/photo.png"}),
	)
	require.NoError(t, app.Init())
	srv := httptest.NewServer(app.Echo)
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{
		app:     app,
		srv:     srv,
		wp:      wp,
		wpURL:   wpSrv.URL,
		client:  &http.Client{Jar: jar},
		uploads: cfg.UploadsDir,
	}
}

// csrf loads a page so the jar holds the CSRF cookie, then returns it.
func (e *testEnv) csrf(t *testing.T) string {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	u, _ := url.Parse(e.srv.URL)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == "_csrf" {
			return c.Value
		}
	}
	t.Fatal("no _csrf cookie set")
	return ""
}

func (e *testEnv) connect(t *testing.T, password string) string {
	t.Helper()
	resp, err := e.client.PostForm(e.srv.URL+"/connect/", url.Values{
		"_csrf":        {e.csrf(t)},
		"site_url":     {e.wpURL},
		"username":     {wpUser},
		"app_password": {password},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfHeader, e.csrf(t))
	return e.do(t, req)
}

func (e *testEnv) getJSON(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	return e.do(t, req)
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestConnectListsPosts(t *testing.T) {
	env := newTestEnv(t)
	body := env.connect(t, wpPassword)

	assert.Contains(t, body, "Successfully connected to WordPress!")
	assert.Contains(t, body, "Lakes &amp; Hills")
	assert.Contains(t, body, `href="/edit/42/"`)
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	body := env.connect(t, "wrong")

	assert.Contains(t, body, "Failed to connect to WordPress. Please check your credentials.")
	resp, _ := env.getJSON(t, "/api/processed-images")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectValidatesForm(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.client.PostForm(env.srv.URL+"/connect/", url.Values{
		"_csrf":    {env.csrf(t)},
		"site_url": {"not a url"},
		"username": {wpUser},
	})
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Please enter a valid URL")

	resp, err = env.client.PostForm(env.srv.URL+"/connect/", url.Values{
		"_csrf":    {env.csrf(t)},
		"site_url": {env.wpURL},
	})
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "All fields are required")
}

func TestEditPageShowsSections(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)

	resp, err := env.client.Get(env.srv.URL + "/edit/42/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	page := string(body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, `data-heading="featured"`)
	assert.Contains(t, page, `data-heading="0"`)
	assert.Contains(t, page, `data-heading="1"`)
	assert.Contains(t, page, "Mountain lakes")
	assert.NotContains(t, page, `data-heading="2"`)

	snap, err := env.app.Store.GetPostSnapshot(1, 42)
	require.NoError(t, err)
	assert.Equal(t, postHTML, snap.Content)
}

func TestEditMissingPostRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)

	resp, err := env.client.Get(env.srv.URL + "/edit/99/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "/posts/", resp.Request.URL.Path)
	assert.Contains(t, string(body), "Post not found")
}

func TestSuggestImages(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)

	resp, out := env.getJSON(t, "/api/suggest-images/42/0")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alpine lake", out["search_query"])
	assert.Equal(t, float64(1), out["current_page"])
	images, _ := out["images"].([]any)
	require.Len(t, images, 1)
	first := images[0].(map[string]any)
	assert.Equal(t, "Ana Lind", first["photographer"])

	resp, out = env.getJSON(t, "/api/suggest-images/42/featured?page=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), out["current_page"])
}

func TestSuggestImagesErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, out := env.getJSON(t, "/api/suggest-images/42/0")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not connected to WordPress", out["error"])

	env.connect(t, wpPassword)
	resp, out = env.getJSON(t, "/api/suggest-images/42/5")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Heading not found", out["error"])

	resp, out = env.getJSON(t, "/api/suggest-images/99/0")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Post not found", out["error"])

	resp, _ = env.getJSON(t, "/api/suggest-images/abc/0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessImagePublishesAndLogs(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)

	resp, out := env.postJSON(t, "/api/process-image", map[string]any{
		"image_url": env.app.provider.(stubProvider).imageURL,
		"author":    "Ana Lind",
		"context":   "Mountain lakes",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, "https://wp.example/wp-content/uploads/lake.jpg", out["processed_url"])
	assert.Equal(t, float64(7), out["media_id"])
	assert.Equal(t, "Image by Ana Lind from Pexels", out["attribution"])
	assert.Equal(t, "alpine lake", out["alt_text"])
	assert.LessOrEqual(t, out["file_size"].(float64), float64(env.app.Config.Images.MaxBytes))
	assert.Equal(t, []string{"Image by Ana Lind from Pexels"}, env.wp.captions)

	files, err := os.ReadDir(env.uploads)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	resp, out = env.getJSON(t, "/api/processed-images")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logged, _ := out["images"].([]any)
	require.Len(t, logged, 1)
	entry := logged[0].(map[string]any)
	assert.Equal(t, float64(7), entry["media_id"])

	req, err := http.NewRequest(http.MethodDelete, env.srv.URL+"/api/processed-images/"+jsonNumber(entry["id"]), nil)
	require.NoError(t, err)
	req.Header.Set(csrfHeader, env.csrf(t))
	resp, _ = env.do(t, req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	files, err = os.ReadDir(env.uploads)
	require.NoError(t, err)
	assert.Empty(t, files)
}

// asSecondUser returns an env sharing the server but with its own cookie jar.
func (e *testEnv) asSecondUser(t *testing.T) *testEnv {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	other := *e
	other.client = &http.Client{Jar: jar}
	return &other
}

func TestProcessedImagesScopedToSessionConnection(t *testing.T) {
	owner := newTestEnv(t)
	owner.connect(t, wpPassword)
	resp, out := owner.postJSON(t, "/api/process-image", map[string]any{
		"image_url": owner.app.provider.(stubProvider).imageURL,
		"author":    "Ana Lind",
		"alt_text":  "lake",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	resp, out = owner.getJSON(t, "/api/processed-images")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	owned, _ := out["images"].([]any)
	require.Len(t, owned, 1)
	id := jsonNumber(owned[0].(map[string]any)["id"])

	other := owner.asSecondUser(t)
	other.connect(t, wpPassword)

	resp, out = other.getJSON(t, "/api/processed-images")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	seen, _ := out["images"].([]any)
	assert.Empty(t, seen)

	req, err := http.NewRequest(http.MethodDelete, other.srv.URL+"/api/processed-images/"+id, nil)
	require.NoError(t, err)
	req.Header.Set(csrfHeader, other.csrf(t))
	resp, _ = other.do(t, req)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	files, err := os.ReadDir(owner.uploads)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	resp, out = owner.getJSON(t, "/api/processed-images")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	owned, _ = out["images"].([]any)
	assert.Len(t, owned, 1)
}

func TestProcessImageUploadFailureCleansUp(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)
	env.wp.failUpload = true

	resp, out := env.postJSON(t, "/api/process-image", map[string]any{
		"image_url": env.app.provider.(stubProvider).imageURL,
		"author":    "Ana Lind",
		"alt_text":  "lake",
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "publish", out["kind"])

	files, _ := os.ReadDir(env.uploads)
	assert.Empty(t, files)
	images, err := env.app.Store.ListProcessedImages(1, 0)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestProcessImageValidation(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)

	resp, out := env.postJSON(t, "/api/process-image", map[string]any{"author": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Image URL is required", out["error"])

	resp, _ = env.postJSON(t, "/api/process-image", map[string]any{"image_url": "ftp://example.com/a.png"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSavePostForcesDraft(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)

	resp, out := env.postJSON(t, "/api/save-post", map[string]any{
		"post_id":           42,
		"content":           "<p>edited</p>",
		"featured_image_id": 7,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post saved successfully", out["message"])
	assert.Equal(t, "draft", out["status"])

	require.Len(t, env.wp.updates, 1)
	assert.Equal(t, "draft", env.wp.updates[0]["status"])
	assert.Equal(t, float64(7), env.wp.updates[0]["featured_media"])

	resp, out = env.postJSON(t, "/api/save-post", map[string]any{"post_id": 42})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Post ID and content are required", out["error"])
}

func TestAPIRequiresCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/save-post", strings.NewReader(`{"post_id":42,"content":"x"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, out := env.do(t, req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "invalid CSRF token", out["error"])
	assert.Empty(t, env.wp.updates)
}

func TestDisconnectForgetsConnection(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)

	resp, err := env.client.Get(env.srv.URL + "/disconnect/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Disconnected from WordPress")

	resp, _ = env.getJSON(t, "/api/processed-images")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_, err = env.app.Store.GetConnection(1)
	assert.Error(t, err)
}

func TestCandidateLookup(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)

	resp, out := env.getJSON(t, "/api/images/1001")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ana Lind", out["photographer"])

	resp, _ = env.getJSON(t, "/api/images/5")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSegmentEditorContent(t *testing.T) {
	env := newTestEnv(t)
	content := `<p>café</p><h2 class="x">Intro</h2><figure><img src="a.jpg"></figure><h3>Next</h3><p>b</p>`

	resp, _ := env.postJSON(t, "/api/segment", map[string]any{"content": content})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	env.connect(t, wpPassword)
	resp, out := env.postJSON(t, "/api/segment", map[string]any{"content": content})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sections := out["sections"].([]any)
	require.Len(t, sections, 2)
	first := sections[0].(map[string]any)
	assert.Equal(t, "Intro", first["text"])
	assert.EqualValues(t, strings.Index(content, "</h2>")+len("</h2>"), first["body_start"])
	assert.EqualValues(t, 1, first["images"])
	second := sections[1].(map[string]any)
	assert.Equal(t, "h3", second["type"])
	assert.EqualValues(t, strings.Index(content, "<h3>"), second["start"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, wpPassword)
	env.getJSON(t, "/api/suggest-images/42/0")

	resp, err := env.client.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "blogimageeditor_stage_duration_seconds")
	assert.Contains(t, string(body), `blogimageeditor_stage_duration_seconds_count{stage="load_post"} 1`)
	assert.NotContains(t, string(body), `stage_failures_total{kind="wordpress",stage="load_post"}`)
}

func TestEmbeddedAssetsServed(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []string{"/public/editor.js", "/public/editor.css"} {
		resp, err := env.client.Get(env.srv.URL + p)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}
}

func TestEditorScriptPlacesImagesByServerOffsets(t *testing.T) {
	raw, err := EmbeddedAssets.ReadFile("embedded/editor.js")
	require.NoError(t, err)
	js := string(raw)

	assert.Contains(t, js, `'"': "&quot;"`)
	assert.Contains(t, js, `"'": "&#39;"`)
	assert.NotContains(t, js, "innerHTML = '<img")
	assert.Contains(t, js, `"/api/segment"`)
	assert.Contains(t, js, "section.body_start")
	assert.NotContains(t, js, `<h([23])`)
}

func jsonNumber(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
