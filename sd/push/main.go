package push

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radio-astro/casa-sub011/catalog"
	"github.com/radio-astro/casa-sub011/sd/base"
)

type Config struct {
	base.Config
	Reindex bool `help:"Drop catalog indices before insertion. Might improve performance"`
}

func (Config) Description() string {
	return `Publish the rows of a DataTable to the catalog.
Requires the "CATALOG_CONN_STRING" environment variable.`
}

func (config *Config) Execute() error {
	dt, err := config.Load()
	if err != nil {
		return err
	}
	defer dt.Close()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, os.Getenv(catalog.CATALOG_ENV_VAR))
	if err != nil {
		slog.Error(fmt.Sprint("Could not connect to the catalog:", err))
		return err
	}
	defer pool.Close()

	if err := catalog.CreateSchema(ctx, pool); err != nil {
		return err
	}

	if config.Reindex {
		if err := catalog.DropIndices(ctx, pool); err != nil {
			return err
		}
		// Recreate indices even if the publication fails
		defer catalog.CreateIndices(ctx, pool)
	}

	_, err = catalog.Publish(ctx, pool, dt)
	return err
}
