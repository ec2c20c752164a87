package blogimageeditor

import "time"

// Connection is a saved WordPress site with application-password
// credentials.
type Connection struct {
	ID          int64
	SiteURL     string
	Username    string
	AppPassword string
	CreatedAt   time.Time
}

// PostSnapshot is the last copy of a WordPress post the editor loaded.
type PostSnapshot struct {
	ID               int64
	ConnectionID     int64
	WPID             int64
	Title            string
	Content          string
	Status           string
	FeaturedImageURL string
	LastSynced       time.Time
}

// ProcessedImage records one reduced image uploaded to WordPress.
type ProcessedImage struct {
	ID           int64     `json:"id"`
	ConnectionID int64     `json:"connection_id"`
	OriginalURL  string    `json:"original_url"`
	ProcessedURL string    `json:"processed_url"`
	MediaID      int64     `json:"media_id"`
	Filename     string    `json:"filename"`
	Author       string    `json:"author"`
	AltText      string    `json:"alt_text"`
	FileSize     int       `json:"file_size"`
	Quality      int       `json:"quality"`
	CreatedAt    time.Time `json:"created_at"`
}
