// Package cmd provides common initialization for the command-line binaries:
// persistence, event bus and metrics backends selected from environment
// configuration.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dripflow/dripflow/pkg/persistence"
	"github.com/dripflow/dripflow/pkg/persistence/file"
	"github.com/dripflow/dripflow/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence backend from the database URL scheme.
// postgres:// and postgresql:// URLs get PostgreSQL; anything else falls back
// to file-based persistence rooted at the URL path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
