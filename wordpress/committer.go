package wordpress

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Backend is the subset of the WordPress API the Committer writes through.
type Backend interface {
	UpdatePost(ctx context.Context, id int64, content string, featuredMediaID int64) error
	UploadMedia(ctx context.Context, m MediaUpload) (Media, error)
}

// Committer pushes edited posts and reduced images back to WordPress.
type Committer struct {
	Backend Backend
}

// Commit saves content to the post and, when featuredMediaID is positive,
// sets its featured image. The post is left in draft status. Failures are
// logged and reported as false.
func (c *Committer) Commit(ctx context.Context, postID int64, content string, featuredMediaID int64) bool {
	if err := c.Backend.UpdatePost(ctx, postID, content, featuredMediaID); err != nil {
		log.Error().Err(err).Int64("post_id", postID).Int64("featured_media", featuredMediaID).Msg("commit post failed")
		return false
	}
	log.Info().Int64("post_id", postID).Int64("featured_media", featuredMediaID).Int("bytes", len(content)).Msg("post committed as draft")
	return true
}

// Publish uploads a reduced asset to the media library.
func (c *Committer) Publish(ctx context.Context, m MediaUpload) (Media, error) {
	media, err := c.Backend.UploadMedia(ctx, m)
	if err != nil {
		return Media{}, err
	}
	log.Info().Int64("media_id", media.ID).Str("file", m.Filename).Int("bytes", len(m.Data)).Msg("media uploaded")
	return media, nil
}
