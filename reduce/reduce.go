// Package reduce downloads a source image and stores a copy that fits a
// byte ceiling.
package reduce

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
)

const (
	// StartQuality is the first quality tried.
	StartQuality = 85
	// QualityStep is subtracted after each oversized attempt.
	QualityStep = 10
	// MinQuality is exclusive: the search stops once quality drops to it.
	MinQuality = 10
	// DefaultMaxWidth bounds the stored image width in pixels.
	DefaultMaxWidth = 1200
)

// Asset is a stored, size-bounded copy of a source image.
type Asset struct {
	URL             string `json:"url"`
	Filename        string `json:"filename"`
	ByteSize        int    `json:"file_size"`
	Quality         int    `json:"quality"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	MIME            string `json:"mime"`
	SourceURL       string `json:"source_url"`
	AttributionName string `json:"attribution_name,omitempty"`
	AltText         string `json:"alt_text,omitempty"`
	Data            []byte `json:"-"`
}

// Reducer turns source URLs into stored assets.
type Reducer struct {
	Downloader *Downloader
	Store      AssetStore
	Encoder    Encoder
	MaxWidth   int
	Now        func() time.Time
}

// Reduce downloads sourceURL, flattens and resizes it, and stores the first
// encoding at or under ceiling bytes. Exactly one file is stored on success
// and none on any failure.
func (r *Reducer) Reduce(ctx context.Context, sourceURL string, ceiling int) (Asset, error) {
	if ceiling <= 0 {
		return Asset{}, apperr.New(apperr.KindCompression, "reduce", fmt.Errorf("ceiling must be positive, got %d", ceiling))
	}
	dl := r.Downloader
	if dl == nil {
		dl = &Downloader{}
	}
	raw, err := dl.Get(ctx, sourceURL)
	if err != nil {
		log.Error().Err(err).Str("url", sourceURL).Msg("image download failed")
		return Asset{}, apperr.New(apperr.KindDownload, "reduce.download", err)
	}

	img, format, err := Decode(raw)
	if err != nil {
		return Asset{}, apperr.New(apperr.KindCompression, "reduce.decode", err)
	}
	img = Flatten(img)
	maxWidth := r.MaxWidth
	if maxWidth == 0 {
		maxWidth = DefaultMaxWidth
	}
	img = ResizeToWidth(img, maxWidth)

	enc := r.encoder()
	data, quality, err := Compress(img, enc, ceiling)
	if err != nil {
		log.Warn().Err(err).Str("url", sourceURL).Int("ceiling", ceiling).Int("source_bytes", len(raw)).Msg("image does not fit ceiling")
		return Asset{}, err
	}

	name := Filename(sourceURL, r.now(), enc.Ext())
	url, stored, err := r.Store.Put(name, data)
	if err != nil {
		return Asset{}, apperr.New(apperr.KindCompression, "reduce.store", err)
	}
	b := img.Bounds()
	log.Info().
		Str("file", stored).
		Str("source_format", format).
		Int("source_bytes", len(raw)).
		Int("bytes", len(data)).
		Int("quality", quality).
		Msg("image reduced")
	return Asset{
		URL:       url,
		Filename:  stored,
		ByteSize:  len(data),
		Quality:   quality,
		Width:     b.Dx(),
		Height:    b.Dy(),
		MIME:      enc.MIME(),
		SourceURL: sourceURL,
		Data:      data,
	}, nil
}

// Compress encodes img at StartQuality and steps down by QualityStep until
// the output fits ceiling. It fails with apperr.KindCompression when no
// quality above MinQuality fits.
func Compress(img image.Image, enc Encoder, ceiling int) ([]byte, int, error) {
	var buf bytes.Buffer
	smallest := -1
	for q := StartQuality; q > MinQuality; q -= QualityStep {
		buf.Reset()
		if err := enc.Encode(&buf, img, q); err != nil {
			return nil, 0, apperr.New(apperr.KindCompression, "reduce.encode", err)
		}
		if buf.Len() <= ceiling {
			return bytes.Clone(buf.Bytes()), q, nil
		}
		smallest = buf.Len()
	}
	return nil, 0, apperr.New(apperr.KindCompression, "reduce.compress",
		fmt.Errorf("smallest encoding is %d bytes, ceiling is %d", smallest, ceiling))
}

// Filename derives a stored name from the capture time and source URL:
// img_<YYYYMMDD_HHMMSS>_<first 8 hex of sha256(url)><ext>.
func Filename(sourceURL string, now time.Time, ext string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return fmt.Sprintf("img_%s_%s%s", now.Format("20060102_150405"), hex.EncodeToString(sum[:])[:8], ext)
}

func (r *Reducer) encoder() Encoder {
	if r.Encoder == nil {
		return JPEGEncoder{}
	}
	return r.Encoder
}

func (r *Reducer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
