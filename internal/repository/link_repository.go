package repository

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Siddarth2230/shortlink/internal/models"
)

var (
	ErrTaken    = errors.New("short code is held by a live link")
	ErrNotFound = errors.New("no link for short code")
	ErrExpired  = errors.New("link expired")
)

// LinkRepository is the in-memory keyed store behind the registry. A single
// RWMutex serializes every mutation; readers get copies, never the stored
// pointers.
type LinkRepository struct {
	mu     sync.RWMutex
	links  map[string]*entry
	seq    uint64
	logger *slog.Logger
}

// entry is a stored link plus its insertion sequence, which orders List.
type entry struct {
	link models.Link
	seq  uint64
}

func NewLinkRepository(logger *slog.Logger) *LinkRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkRepository{
		links:  make(map[string]*entry),
		logger: logger.With("package", "repository"),
	}
}

// Save stores link under link.ShortCode. An existing record that is still
// live at now makes Save fail with ErrTaken; an expired one is replaced.
func (r *LinkRepository) Save(ctx context.Context, link *models.Link, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.links[link.ShortCode]; ok {
		if !existing.link.ExpiredAt(now) {
			return ErrTaken
		}
		r.logger.Debug("replacing expired link",
			"short_code", existing.link.ShortCode,
			"expired_at", existing.link.ExpiresAt,
			"clicks", existing.link.Clicks,
		)
	}

	r.seq++
	r.links[link.ShortCode] = &entry{link: *link, seq: r.seq}
	return nil
}

// Resolve returns the original URL of a live link and counts the click in the
// same critical section.
func (r *LinkRepository) Resolve(ctx context.Context, shortCode string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.links[shortCode]
	if !ok {
		return "", ErrNotFound
	}
	if e.link.ExpiredAt(now) {
		return "", ErrExpired
	}
	e.link.Clicks++
	return e.link.OriginalURL, nil
}

// FindByShortCode returns a copy of the record, live or expired.
func (r *LinkRepository) FindByShortCode(ctx context.Context, shortCode string) (models.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.links[shortCode]
	if !ok {
		return models.Link{}, ErrNotFound
	}
	return e.link, nil
}

// List returns a snapshot of every record in insertion order.
func (r *LinkRepository) List(ctx context.Context) []models.Link {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.links))
	for _, e := range r.links {
		entries = append(entries, *e)
	}
	r.mu.RUnlock()

	return sortedLinks(entries)
}

// DeleteExpired removes every record whose expiry is at or before cutoff and
// returns the removed records in insertion order.
func (r *LinkRepository) DeleteExpired(ctx context.Context, cutoff time.Time) []models.Link {
	r.mu.Lock()
	var removed []entry
	for code, e := range r.links {
		if e.link.ExpiredAt(cutoff) {
			removed = append(removed, *e)
			delete(r.links, code)
		}
	}
	r.mu.Unlock()

	if len(removed) == 0 {
		return nil
	}
	return sortedLinks(removed)
}

func (r *LinkRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links)
}

func sortedLinks(entries []entry) []models.Link {
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]models.Link, len(entries))
	for i, e := range entries {
		out[i] = e.link
	}
	return out
}
