package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Siddarth2230/shortlink/internal/models"
	"github.com/Siddarth2230/shortlink/internal/repository"
	"github.com/Siddarth2230/shortlink/pkg/idgen"
	"github.com/Siddarth2230/shortlink/pkg/metrics"
)

var (
	ErrInvalidURL       = errors.New("url must be an absolute http or https URL")
	ErrInvalidValidity  = errors.New("validity must be a positive whole number of minutes")
	ErrInvalidShortcode = errors.New("shortcode may only contain letters, digits, '_' and '-'")
	ErrShortcodeTaken   = errors.New("shortcode already in use")
	ErrNotFound         = errors.New("short code not found")
	ErrExpired          = errors.New("short URL expired")
	ErrGenExhausted     = errors.New("failed to generate unique short code after retries")
)

const (
	DefaultValidity    = 30 * time.Minute
	MaxShortCodeLength = 64

	// largest minute count that still fits in a time.Duration
	MaxValidityMinutes = math.MaxInt64 / int64(time.Minute)

	maxGenerateAttempts = 5
)

var shortCodeRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reserved codes shadow fixed routes of the HTTP surface
var reservedCodes = []string{"all", "shorten", "stats", "url", "api", "metrics", "healthz"}

// LinkService is the shortcode registry: it owns every link record and is the
// only place links are created, resolved and read.
type LinkService struct {
	repo      *repository.LinkRepository
	generator idgen.Generator
	logger    *slog.Logger

	DefaultValidity time.Duration
	Now             func() time.Time
}

func NewLinkService(repo *repository.LinkRepository, gen idgen.Generator, logger *slog.Logger) *LinkService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkService{
		repo:            repo,
		generator:       gen,
		logger:          logger.With("package", "service"),
		DefaultValidity: DefaultValidity,
		Now:             time.Now,
	}
}

// Create validates req and stores a new link. baseURL prefixes the returned
// ShortLink; an empty baseURL yields the bare code.
func (s *LinkService) Create(ctx context.Context, req models.ShortenRequest, baseURL string) (*models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateURL(req.URL); err != nil {
		return nil, err
	}
	validity, err := s.validity(req.Validity)
	if err != nil {
		return nil, err
	}

	if req.ShortCode != "" {
		if err := validateShortCode(req.ShortCode); err != nil {
			return nil, err
		}
		link, err := s.save(ctx, req.URL, req.ShortCode, validity, baseURL)
		if errors.Is(err, repository.ErrTaken) {
			return nil, ErrShortcodeTaken
		}
		if err != nil {
			return nil, err
		}
		metrics.LinksCreated.WithLabelValues("custom").Inc()
		return link, nil
	}

	for i := 0; i < maxGenerateAttempts; i++ {
		code, err := s.generator.Generate(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate short code: %w", err)
		}
		if code == "" {
			return nil, errors.New("generator returned empty code")
		}
		if isReserved(code) {
			s.logger.Debug("generated short code is reserved, regenerating", "short_code", code)
			continue
		}

		link, err := s.save(ctx, req.URL, code, validity, baseURL)
		if errors.Is(err, repository.ErrTaken) {
			metrics.CodeCollisions.Inc()
			s.logger.Warn("generated short code collided with a live link",
				"short_code", code, "attempt", i+1, "max_attempts", maxGenerateAttempts)
			continue
		}
		if err != nil {
			return nil, err
		}
		metrics.LinksCreated.WithLabelValues("generated").Inc()
		return link, nil
	}
	return nil, ErrGenExhausted
}

func (s *LinkService) save(ctx context.Context, longURL, code string, validity time.Duration, baseURL string) (*models.Link, error) {
	now := s.Now()
	link := &models.Link{
		ID:          uuid.NewString(),
		ShortCode:   code,
		OriginalURL: longURL,
		ShortLink:   shortLink(baseURL, code),
		CreatedAt:   now,
		ExpiresAt:   now.Add(validity),
	}
	if err := s.repo.Save(ctx, link, now); err != nil {
		return nil, err
	}
	metrics.LinksStored.Set(float64(s.repo.Len()))

	s.logger.Info("short link created",
		"short_code", link.ShortCode,
		"original_url", link.OriginalURL,
		"expires_at", link.ExpiresAt,
	)
	return link, nil
}

// Resolve returns the original URL for a live short code and counts the click.
func (s *LinkService) Resolve(ctx context.Context, shortCode string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	longURL, err := s.repo.Resolve(ctx, shortCode, s.Now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.Redirects.WithLabelValues("not_found").Inc()
		return "", ErrNotFound
	case errors.Is(err, repository.ErrExpired):
		metrics.Redirects.WithLabelValues("expired").Inc()
		return "", ErrExpired
	case err != nil:
		return "", err
	}

	metrics.Redirects.WithLabelValues("ok").Inc()
	s.logger.Debug("short code resolved", "short_code", shortCode)
	return longURL, nil
}

// GetStats returns the stored record, expired or not.
func (s *LinkService) GetStats(ctx context.Context, shortCode string) (*models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	link, err := s.repo.FindByShortCode(ctx, shortCode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListAll returns a snapshot of every held record in insertion order.
func (s *LinkService) ListAll(ctx context.Context) ([]models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx), nil
}

// SweepExpired drops records that expired at least retention ago and returns them.
func (s *LinkService) SweepExpired(ctx context.Context, retention time.Duration) []models.Link {
	removed := s.repo.DeleteExpired(ctx, s.Now().Add(-retention))
	metrics.LinksStored.Set(float64(s.repo.Len()))
	return removed
}

// Count is the number of held records.
func (s *LinkService) Count() int {
	return s.repo.Len()
}

func (s *LinkService) validity(minutes *int) (time.Duration, error) {
	if minutes == nil {
		if s.DefaultValidity > 0 {
			return s.DefaultValidity, nil
		}
		return DefaultValidity, nil
	}
	if *minutes < 1 || int64(*minutes) > MaxValidityMinutes {
		return 0, ErrInvalidValidity
	}
	return time.Duration(*minutes) * time.Minute, nil
}

// validateURL checks that the URL is syntactically valid and uses http/https.
func validateURL(raw string) error {
	if raw == "" {
		return ErrInvalidURL
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return ErrInvalidURL
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURL
	}
	if parsed.Host == "" || parsed.Hostname() == "" {
		return ErrInvalidURL
	}
	return nil
}

func validateShortCode(code string) error {
	if len(code) > MaxShortCodeLength || !shortCodeRE.MatchString(code) {
		return ErrInvalidShortcode
	}
	if isReserved(code) {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidShortcode, code)
	}
	return nil
}

// isReserved matches case-sensitively, as the router does.
func isReserved(code string) bool {
	return lo.Contains(reservedCodes, code)
}

func shortLink(baseURL, code string) string {
	if baseURL == "" {
		return code
	}
	return strings.TrimRight(baseURL, "/") + "/" + code
}
