// Package candidates turns an image-search phrase into a page of normalized
// photo candidates.
package candidates

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
	"github.com/Hamzashehzad1/blogimageeditor/pexels"
)

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 20

// Orientation requested from the provider for every search.
const Orientation = "landscape"

// Candidate is a provider image not yet committed to storage.
type Candidate struct {
	ProviderID      int64  `json:"id"`
	FullURL         string `json:"url"`
	MediumURL       string `json:"medium_url"`
	SmallURL        string `json:"small_url"`
	AttributionName string `json:"photographer"`
	AttributionURL  string `json:"photographer_url"`
	AltText         string `json:"alt"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
}

// Page is one page of candidates in provider order.
//
// HasMore is true when the provider filled the whole page. It is a guess, not
// a count: a query with exactly PageSize results reports HasMore and the next
// page comes back empty.
type Page struct {
	Query       string      `json:"search_query"`
	Candidates  []Candidate `json:"images"`
	CurrentPage int         `json:"current_page"`
	HasMore     bool        `json:"has_more"`
}

// Provider is the image-search capability.
type Provider interface {
	Search(ctx context.Context, p pexels.SearchParams) (pexels.SearchResponse, error)
	Photo(ctx context.Context, id int64) (pexels.Photo, error)
}

// Fetcher queries a Provider and normalizes its records.
type Fetcher struct {
	Provider Provider
}

// Search returns one page of landscape candidates for query. A search with
// no hits returns an empty page and a nil error; transport and status
// failures carry apperr.KindSearch.
func (f *Fetcher) Search(ctx context.Context, query string, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > pexels.MaxPerPage {
		pageSize = pexels.MaxPerPage
	}
	resp, err := f.Provider.Search(ctx, pexels.SearchParams{
		Query:       query,
		Page:        page,
		PerPage:     pageSize,
		Orientation: Orientation,
		Size:        "medium",
	})
	if err != nil {
		log.Error().Err(err).Str("query", query).Int("page", page).Msg("image search failed")
		return Page{}, apperr.New(apperr.KindSearch, "candidates.search", err)
	}
	out := make([]Candidate, 0, len(resp.Photos))
	for _, p := range resp.Photos {
		out = append(out, fromPhoto(p))
	}
	log.Info().Str("query", query).Int("page", page).Int("count", len(out)).Msg("image search")
	return Page{
		Query:       query,
		Candidates:  out,
		CurrentPage: page,
		HasMore:     len(out) == pageSize,
	}, nil
}

// Get returns a single candidate by provider id.
func (f *Fetcher) Get(ctx context.Context, id int64) (Candidate, error) {
	p, err := f.Provider.Photo(ctx, id)
	if errors.Is(err, pexels.ErrNotFound) {
		return Candidate{}, apperr.ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Int64("photo_id", id).Msg("photo lookup failed")
		return Candidate{}, apperr.New(apperr.KindSearch, "candidates.get", err)
	}
	return fromPhoto(p), nil
}

func fromPhoto(p pexels.Photo) Candidate {
	return Candidate{
		ProviderID:      p.ID,
		FullURL:         p.Src.Large,
		MediumURL:       p.Src.Medium,
		SmallURL:        p.Src.Small,
		AttributionName: p.Photographer,
		AttributionURL:  p.PhotographerURL,
		AltText:         p.Alt,
		Width:           p.Width,
		Height:          p.Height,
	}
}
