// Package archive keeps an audit trail of links evicted by the sweeper.
package archive

import (
	"context"

	"github.com/Siddarth2230/shortlink/internal/models"
)

type Archiver interface {
	Archive(ctx context.Context, links []models.Link) error
}

// Nop discards everything. It is used when no database is configured.
type Nop struct{}

func (Nop) Archive(context.Context, []models.Link) error { return nil }
