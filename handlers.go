package blogimageeditor

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
	"github.com/Hamzashehzad1/blogimageeditor/segment"
	"github.com/Hamzashehzad1/blogimageeditor/views"
	"github.com/Hamzashehzad1/blogimageeditor/wordpress"
)

type connectForm struct {
	SiteURL     string
	Username    string
	AppPassword string
}

func (f connectForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.SiteURL, validation.Required, is.URL, validation.By(httpURL)),
		validation.Field(&f.Username, validation.Required),
		validation.Field(&f.AppPassword, validation.Required),
	)
}

func (a *App) page(c echo.Context, conn *Connection) views.Page {
	p := views.Page{CSRFToken: CsrfToken(c), Flashes: popFlashes(c)}
	if conn != nil {
		p.SiteURL = conn.SiteURL
	}
	return p
}

// currentConnection loads the session's connection. A stale session id is
// cleared.
func (a *App) currentConnection(c echo.Context) (Connection, bool) {
	id, ok := sessionConnectionID(c)
	if !ok {
		return Connection{}, false
	}
	conn, err := a.Store.GetConnection(id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			log.Error().Err(err).Int64("connection_id", id).Msg("load connection")
		}
		_ = clearSessionConnection(c)
		return Connection{}, false
	}
	return conn, true
}

func (a *App) redirectToConnect(c echo.Context) error {
	addFlash(c, "error", "Please connect to WordPress first")
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleIndex(c echo.Context) error {
	if conn, ok := a.currentConnection(c); ok {
		return Render(c, views.Index(a.page(c, &conn)))
	}
	return Render(c, views.Index(a.page(c, nil)))
}

func (a *App) handleConnect(c echo.Context) error {
	if !a.connectLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many connection attempts. Try again later.")
	}
	form := connectForm{
		SiteURL:     strings.TrimSpace(c.FormValue("site_url")),
		Username:    strings.TrimSpace(c.FormValue("username")),
		AppPassword: strings.TrimSpace(c.FormValue("app_password")),
	}
	if err := form.Validate(); err != nil {
		msg := "All fields are required"
		var errs validation.Errors
		if errors.As(err, &errs) {
			if _, bad := errs["SiteURL"]; bad && form.SiteURL != "" {
				msg = "Please enter a valid URL"
			}
		}
		addFlash(c, "error", msg)
		return c.Redirect(http.StatusSeeOther, "/")
	}

	conn := Connection{SiteURL: strings.TrimRight(form.SiteURL, "/"), Username: form.Username, AppPassword: form.AppPassword}
	if err := a.wordpressFor(conn).TestConnection(c.Request().Context()); err != nil {
		addFlash(c, "error", "Failed to connect to WordPress. Please check your credentials.")
		return c.Redirect(http.StatusSeeOther, "/")
	}

	saved, err := a.Store.SaveConnection(conn)
	if err != nil {
		return err
	}
	if err := setSessionConnection(c, saved.ID); err != nil {
		return err
	}
	log.Info().Int64("connection_id", saved.ID).Str("site", saved.SiteURL).Msg("wordpress connected")
	addFlash(c, "success", "Successfully connected to WordPress!")
	return c.Redirect(http.StatusSeeOther, "/posts/")
}

func (a *App) handleDisconnect(c echo.Context) error {
	if id, ok := sessionConnectionID(c); ok {
		a.Cache.InvalidateConnection(id)
		if err := a.Store.DeleteConnection(id); err != nil {
			log.Error().Err(err).Int64("connection_id", id).Msg("delete connection")
		}
	}
	if err := clearSessionConnection(c); err != nil {
		return err
	}
	addFlash(c, "info", "Disconnected from WordPress")
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handlePosts(c echo.Context) error {
	conn, ok := a.currentConnection(c)
	if !ok {
		return a.redirectToConnect(c)
	}
	status := c.QueryParam("status")
	if status != "publish" && status != wordpress.StatusDraft {
		status = wordpress.StatusAll
	}
	pageNum := parsePage(c.QueryParam("page"))

	listing, err := a.wordpressFor(conn).ListPosts(c.Request().Context(), status, pageNum, a.Config.WordPress.PostsPerPage)
	if err != nil {
		addFlash(c, "error", "Failed to fetch posts from WordPress")
		listing = wordpress.PostPage{CurrentPage: 1}
	}

	rows := make([]views.PostRow, 0, len(listing.Posts))
	for _, p := range listing.Posts {
		rows = append(rows, views.PostRow{
			ID:      p.ID,
			Title:   plain(p.Title),
			Status:  p.Status,
			Date:    strings.SplitN(p.Date, "T", 2)[0],
			Excerpt: segment.Excerpt(plain(p.Excerpt), excerptRunes),
		})
	}
	return Render(c, views.Posts(views.PostsPage{
		Page:        a.page(c, &conn),
		Posts:       rows,
		Status:      status,
		CurrentPage: listing.CurrentPage,
		TotalPages:  listing.TotalPages,
	}))
}

func (a *App) handleEdit(c echo.Context) error {
	conn, ok := a.currentConnection(c)
	if !ok {
		return a.redirectToConnect(c)
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		return echo.ErrNotFound
	}

	post, err := a.wordpressFor(conn).GetPost(c.Request().Context(), id)
	if errors.Is(err, apperr.ErrNotFound) {
		addFlash(c, "error", "Post not found")
		return c.Redirect(http.StatusSeeOther, "/posts/")
	}
	if err != nil {
		addFlash(c, "error", "An error occurred while loading the post")
		return c.Redirect(http.StatusSeeOther, "/posts/")
	}
	a.Cache.Put(conn.ID, post)

	if err := a.Store.SavePostSnapshot(PostSnapshot{
		ConnectionID: conn.ID,
		WPID:         post.ID,
		Title:        post.Title,
		Content:      post.Content,
		Status:       post.Status,
	}); err != nil {
		log.Warn().Err(err).Int64("post_id", post.ID).Msg("save post snapshot")
	}

	return Render(c, views.Edit(views.EditPage{
		Page:          a.page(c, &conn),
		PostID:        post.ID,
		PostTitle:     plain(post.Title),
		Content:       post.Content,
		Status:        post.Status,
		FeaturedMedia: post.FeaturedMedia,
		Sections:      sectionViews(segment.Segment(post.Content)),
		MaxBytes:      a.Config.Images.MaxBytes,
	}))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if isAPI(c) {
		msg := http.StatusText(code)
		if ok && code < 500 {
			if m, isStr := he.Message.(string); isStr {
				msg = m
			}
		}
		if code >= 500 {
			log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("server error")
			msg = "Internal server error"
		}
		_ = c.JSON(code, errorBody{Error: msg})
		return
	}
	if code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound())
		return
	}
	if code >= 500 {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("server error")
		_ = RenderStatus(c, code, views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
