package blogimageeditor

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
	"github.com/Hamzashehzad1/blogimageeditor/segment"
	"github.com/Hamzashehzad1/blogimageeditor/wordpress"
)

const featuredHeading = "featured"

type processImageRequest struct {
	ImageURL string `json:"image_url"`
	Author   string `json:"author"`
	AltText  string `json:"alt_text"`
	// Context describes where the image goes; used to write alt text when
	// none is given.
	Context string `json:"context"`
}

func (r processImageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ImageURL, validation.Required, validation.By(httpURL)),
		validation.Field(&r.AltText, validation.Length(0, 500)),
	)
}

type processImageResponse struct {
	ProcessedURL string `json:"processed_url"`
	MediaID      int64  `json:"media_id"`
	FileSize     int    `json:"file_size"`
	Quality      int    `json:"quality"`
	Attribution  string `json:"attribution"`
	AltText      string `json:"alt_text"`
}

type savePostRequest struct {
	PostID          int64  `json:"post_id"`
	Content         string `json:"content"`
	FeaturedImageID int64  `json:"featured_image_id"`
}

// apiConnection loads the session's connection or writes a 401.
func (a *App) apiConnection(c echo.Context) (Connection, bool, error) {
	conn, ok := a.currentConnection(c)
	if !ok {
		return Connection{}, false, c.JSON(http.StatusUnauthorized, errorBody{Error: "Not connected to WordPress"})
	}
	return conn, true, nil
}

// handleSuggestImages segments the post, builds a query and searches for one
// heading or the featured slot.
func (a *App) handleSuggestImages(c echo.Context) error {
	conn, ok, err := a.apiConnection(c)
	if !ok {
		return err
	}
	postID, ok := parseID(c.Param("post"))
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid post ID", nil)
	}
	ctx := c.Request().Context()
	started := time.Now()

	wp := a.wordpressFor(conn)
	post, err := a.Cache.Get(ctx, conn.ID, postID, wp.GetPost)
	a.Metrics.Observe("load_post", started, err)
	if errors.Is(err, apperr.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "Post not found", nil)
	}
	if err != nil {
		return jsonError(c, statusFor(err), "Failed to load post", err)
	}

	title := plain(post.Title)
	queryStarted := time.Now()
	var phrase string
	heading := c.Param("heading")
	if heading == featuredHeading {
		phrase, err = a.Queries.SynthesizeFeatured(ctx, title)
	} else {
		idx, convErr := strconv.Atoi(heading)
		sections := segment.Segment(post.Content)
		if convErr != nil || idx < 0 || idx >= len(sections) {
			return jsonError(c, http.StatusNotFound, "Heading not found", nil)
		}
		s := sections[idx]
		phrase, err = a.Queries.Synthesize(ctx, title, s.HeadingText, s.BodyExcerpt)
	}
	a.Metrics.Observe("generate_query", queryStarted, err)
	if err != nil {
		return jsonError(c, statusFor(err), "Failed to generate search query", err)
	}

	searchStarted := time.Now()
	page, err := a.Images.Search(ctx, phrase, parsePage(c.QueryParam("page")), a.Config.Images.PerPage)
	a.Metrics.Observe("search", searchStarted, err)
	if err != nil {
		return jsonError(c, statusFor(err), "Image search failed", err)
	}
	return c.JSON(http.StatusOK, page)
}

// handleProcessImage reduces the chosen photo, uploads it with attribution
// and logs it.
func (a *App) handleProcessImage(c echo.Context) error {
	conn, ok, err := a.apiConnection(c)
	if !ok {
		return err
	}
	var req processImageRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if err := req.Validate(); err != nil {
		return jsonError(c, http.StatusBadRequest, validationMessage(err), nil)
	}
	ctx := c.Request().Context()

	started := time.Now()
	asset, err := a.Reducer.Reduce(ctx, req.ImageURL, a.Config.Images.MaxBytes)
	a.Metrics.Observe("reduce", started, err)
	if err != nil {
		return jsonError(c, statusFor(err), "Failed to process image", err)
	}
	a.Metrics.ObserveAsset(asset.ByteSize, asset.Quality)

	alt := strings.TrimSpace(req.AltText)
	if alt == "" && strings.TrimSpace(req.Context) != "" {
		generated, err := a.Queries.AltText(ctx, req.Context)
		if err != nil {
			log.Warn().Err(err).Str("image", req.ImageURL).Msg("alt text generation failed; uploading without alt text")
		} else {
			alt = generated
		}
	}
	attribution := Attribution(req.Author)

	committer := &wordpress.Committer{Backend: a.wordpressFor(conn)}
	uploadStarted := time.Now()
	media, err := committer.Publish(ctx, wordpress.MediaUpload{
		Filename: asset.Filename,
		MIME:     asset.MIME,
		Data:     asset.Data,
		AltText:  alt,
		Caption:  attribution,
	})
	a.Metrics.Observe("upload", uploadStarted, err)
	if err != nil {
		if rmErr := a.Uploads.Remove(asset.Filename); rmErr != nil {
			log.Warn().Err(rmErr).Str("file", asset.Filename).Msg("remove unpublished asset")
		}
		return jsonError(c, statusFor(err), "Failed to upload image to WordPress", err)
	}

	if _, err := a.Store.SaveProcessedImage(ProcessedImage{
		ConnectionID: conn.ID,
		OriginalURL:  req.ImageURL,
		ProcessedURL: media.SourceURL,
		MediaID:      media.ID,
		Filename:     asset.Filename,
		Author:       req.Author,
		AltText:      alt,
		FileSize:     asset.ByteSize,
		Quality:      asset.Quality,
	}); err != nil {
		log.Warn().Err(err).Int64("media_id", media.ID).Msg("record processed image")
	}

	return c.JSON(http.StatusOK, processImageResponse{
		ProcessedURL: media.SourceURL,
		MediaID:      media.ID,
		FileSize:     asset.ByteSize,
		Quality:      asset.Quality,
		Attribution:  attribution,
		AltText:      alt,
	})
}

// handleSavePost writes edited content back. WordPress stores it as a draft.
func (a *App) handleSavePost(c echo.Context) error {
	conn, ok, err := a.apiConnection(c)
	if !ok {
		return err
	}
	var req savePostRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if req.PostID <= 0 || strings.TrimSpace(req.Content) == "" {
		return jsonError(c, http.StatusBadRequest, "Post ID and content are required", nil)
	}

	committer := &wordpress.Committer{Backend: a.wordpressFor(conn)}
	started := time.Now()
	if !committer.Commit(c.Request().Context(), req.PostID, req.Content, req.FeaturedImageID) {
		a.Metrics.Observe("commit", started, apperr.New(apperr.KindPublish, "commit", errors.New("rejected")))
		return c.JSON(http.StatusBadGateway, errorBody{Error: "Failed to save post", Kind: apperr.KindPublish.String()})
	}
	a.Metrics.Observe("commit", started, nil)
	a.Cache.Invalidate(conn.ID, req.PostID)

	snap, err := a.Store.GetPostSnapshot(conn.ID, req.PostID)
	if err == nil {
		snap.Content = req.Content
		snap.Status = wordpress.StatusDraft
		snap.LastSynced = time.Time{}
		if err := a.Store.SavePostSnapshot(snap); err != nil {
			log.Warn().Err(err).Int64("post_id", req.PostID).Msg("update post snapshot")
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Post saved successfully",
		"status":  wordpress.StatusDraft,
	})
}

type segmentRequest struct {
	Content string `json:"content"`
}

// handleSegment returns the sections of unsaved editor content, with byte
// offsets into exactly the string that was sent.
func (a *App) handleSegment(c echo.Context) error {
	if _, ok, err := a.apiConnection(c); !ok {
		return err
	}
	var req segmentRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"sections": segment.Segment(req.Content)})
}

// validationMessage picks the first field error for display. Keys follow the
// json tags.
func validationMessage(err error) string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	if e, ok := errs["image_url"]; ok {
		var ve validation.Error
		if errors.As(e, &ve) && ve.Code() == validation.ErrRequired.Code() {
			return "Image URL is required"
		}
		return "Image URL " + e.Error()
	}
	if _, ok := errs["alt_text"]; ok {
		return "Alt text is too long"
	}
	return err.Error()
}
