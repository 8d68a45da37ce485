package models

import "time"

type Link struct {
	ID          string    `json:"id" db:"id"`
	ShortCode   string    `json:"shortcode" db:"short_code"`
	OriginalURL string    `json:"originalUrl" db:"original_url"`
	ShortLink   string    `json:"shortLink" db:"short_link"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt   time.Time `json:"expiry" db:"expires_at"`
	Clicks      int64     `json:"clicks" db:"clicks"`
}

// ExpiredAt reports whether the link is no longer resolvable at t.
func (l *Link) ExpiredAt(t time.Time) bool {
	return !t.Before(l.ExpiresAt)
}

type ShortenRequest struct {
	URL       string `json:"url"`
	Validity  *int   `json:"validity,omitempty"`
	ShortCode string `json:"shortcode,omitempty"`
}

type LinkResponse struct {
	ID          string    `json:"id"`
	ShortCode   string    `json:"shortcode"`
	OriginalURL string    `json:"originalUrl"`
	ShortLink   string    `json:"shortLink"`
	CreatedAt   time.Time `json:"createdAt"`
	Expiry      time.Time `json:"expiry"`
	Clicks      int64     `json:"clicks"`
	Expired     bool      `json:"expired"`
}

// NewLinkResponse builds the API view of l as seen at now.
func NewLinkResponse(l Link, now time.Time) LinkResponse {
	return LinkResponse{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		ShortLink:   l.ShortLink,
		CreatedAt:   l.CreatedAt,
		Expiry:      l.ExpiresAt,
		Clicks:      l.Clicks,
		Expired:     l.ExpiredAt(now),
	}
}
