// Package query derives stock-photo search phrases and alt text from post
// sections with a generative text model.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
	"github.com/Hamzashehzad1/blogimageeditor/llm"
	"github.com/Hamzashehzad1/blogimageeditor/segment"
)

// FeaturedPlaceholder stands in for the section body when the whole post is
// targeted instead of one heading.
const FeaturedPlaceholder = "featured image for blog post"

// MaxAltTextRunes caps generated alt text.
const MaxAltTextRunes = 125

const searchPromptTemplate = `Based on the following blog post information, generate a concise and effective search query for finding relevant stock photos:

Blog Title: %s
Section Heading: %s
Section Content (first 500 chars): %s

Requirements:
- Capture the essence of this section in 2 to 7 keywords
- Use concrete visual nouns: objects, places, people, scenes
- Avoid brand names, product names, and technical jargon
- The query must find horizontal/landscape editorial photos suitable for web articles

Return only the search query, nothing else.`

const altTextPromptTemplate = `Generate a descriptive alt text for a stock photo that will be used in a blog post.

Context: %s

Requirements:
- Keep it concise (under 125 characters)
- Focus on what is visually in the image that is relevant to the context
- Do not mention that it is a stock photo

Return only the alt text, nothing else.`

// Synthesizer turns section context into short search phrases.
type Synthesizer struct {
	Model llm.Completer
	// ModelName scopes cache keys; leave empty when no cache is set.
	ModelName string
	// Cache is optional; a hit skips the model call.
	Cache *expirable.LRU[string, string]
}

// NewCache returns an LRU of generated phrases whose entries expire after ttl.
func NewCache(size int, ttl time.Duration) *expirable.LRU[string, string] {
	return expirable.NewLRU[string, string](size, nil, ttl)
}

// Synthesize returns a search phrase for one section. Failures carry
// apperr.KindGeneration.
func (s *Synthesizer) Synthesize(ctx context.Context, title, heading, excerpt string) (string, error) {
	excerpt = segment.Excerpt(excerpt, segment.MaxExcerptRunes)
	prompt := fmt.Sprintf(searchPromptTemplate, title, heading, excerpt)
	phrase, err := s.complete(ctx, "query.synthesize", prompt)
	if err != nil {
		return "", err
	}
	log.Info().Str("title", title).Str("heading", heading).Str("query", phrase).Msg("generated search query")
	return phrase, nil
}

// SynthesizeFeatured returns a search phrase for the post as a whole.
func (s *Synthesizer) SynthesizeFeatured(ctx context.Context, title string) (string, error) {
	return s.Synthesize(ctx, title, title, FeaturedPlaceholder)
}

// AltText returns a short visual description for an image used in context.
func (s *Synthesizer) AltText(ctx context.Context, subject string) (string, error) {
	text, err := s.complete(ctx, "query.alt_text", fmt.Sprintf(altTextPromptTemplate, subject))
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(text) > MaxAltTextRunes {
		text = strings.TrimSpace(string([]rune(text)[:MaxAltTextRunes]))
	}
	return text, nil
}

func (s *Synthesizer) complete(ctx context.Context, op, prompt string) (string, error) {
	if s == nil || s.Model == nil {
		return "", apperr.New(apperr.KindGeneration, op, errors.New("text model not configured"))
	}
	key := cacheKey(s.ModelName, prompt)
	if s.Cache != nil {
		if v, ok := s.Cache.Get(key); ok {
			return v, nil
		}
	}
	raw, err := s.Model.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("op", op).Msg("text generation failed")
		return "", apperr.New(apperr.KindGeneration, op, err)
	}
	out := Clean(raw)
	if out == "" {
		log.Error().Str("op", op).Msg("empty response from text model")
		return "", apperr.New(apperr.KindGeneration, op, errors.New("empty response"))
	}
	if s.Cache != nil {
		s.Cache.Add(key, out)
	}
	return out, nil
}

// Clean trims a model reply and removes quote characters.
func Clean(raw string) string {
	raw = strings.NewReplacer(`"`, "", "'", "").Replace(raw)
	return strings.Join(strings.Fields(raw), " ")
}

func cacheKey(model, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n\n" + prompt))
	return hex.EncodeToString(h[:])
}
