package blogimageeditor

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
)

const maxProcessedListing = 200

// handleProcessedImages lists the session connection's processing log,
// newest first.
func (a *App) handleProcessedImages(c echo.Context) error {
	conn, ok, err := a.apiConnection(c)
	if !ok {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit > maxProcessedListing {
		limit = maxProcessedListing
	}
	images, err := a.Store.ListProcessedImages(conn.ID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"images": images})
}

// handleDeleteProcessedImage drops a log entry and the local copy of its
// file. The WordPress media item is left alone.
func (a *App) handleDeleteProcessedImage(c echo.Context) error {
	conn, ok, err := a.apiConnection(c)
	if !ok {
		return err
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid image ID", nil)
	}

	img, err := a.Store.DeleteProcessedImage(conn.ID, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "Image not found", nil)
	}
	if err != nil {
		return err
	}
	if img.Filename != "" {
		if err := a.Uploads.Remove(img.Filename); err != nil {
			log.Warn().Err(err).Str("file", img.Filename).Msg("remove processed image file")
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// handleCandidate looks up a single provider photo by id.
func (a *App) handleCandidate(c echo.Context) error {
	if _, ok, err := a.apiConnection(c); !ok {
		return err
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid image ID", nil)
	}
	cand, err := a.Images.Get(c.Request().Context(), id)
	if errors.Is(err, apperr.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "Image not found", nil)
	}
	if err != nil {
		return jsonError(c, statusFor(err), "Image lookup failed", err)
	}
	return c.JSON(http.StatusOK, cand)
}
