package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Siddarth2230/shortlink/internal/models"
)

const table = "expired_links"

var columns = []string{"id", "short_code", "original_url", "short_link", "created_at", "expires_at", "clicks"}

const schema = `
	CREATE TABLE IF NOT EXISTS expired_links (
		id           TEXT PRIMARY KEY,
		short_code   TEXT        NOT NULL,
		original_url TEXT        NOT NULL,
		short_link   TEXT        NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		expires_at   TIMESTAMPTZ NOT NULL,
		clicks       BIGINT      NOT NULL DEFAULT 0,
		archived_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS expired_links_short_code_idx ON expired_links (short_code);
`

type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger.With("package", "db")}
}

// EnsureSchema creates the archive table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	return nil
}

// Archive bulk-copies links into the archive table in one transaction.
func (p *Postgres) Archive(ctx context.Context, links []models.Link) (err error) {
	if len(links) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for _, l := range links {
		if _, err = stmt.ExecContext(ctx, l.ID, l.ShortCode, l.OriginalURL, l.ShortLink, l.CreatedAt, l.ExpiresAt, l.Clicks); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy link %s: %w", l.ShortCode, err)
		}
	}
	// an argument-less Exec flushes the buffered rows
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}

	p.logger.Info("archived expired links", "count", len(links))
	return nil
}
