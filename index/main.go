package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/radio-astro/casa-sub011/catalog"
)

type Config struct {
	Action string `arg:"positional,required" help:"Valid choices: [\"drop\", \"create\"]"`
}

func (Config) Description() string {
	return `Drop or create the indices of the catalog.
Requires the "CATALOG_CONN_STRING" environment variable.`
}

func (config *Config) Execute() error {
	var run func(context.Context, catalog.Execer) error
	switch config.Action {
	case "drop":
		run = catalog.DropIndices
	case "create":
		run = catalog.CreateIndices
	default:
		return fmt.Errorf("Invalid argument '%s'", config.Action)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, os.Getenv(catalog.CATALOG_ENV_VAR))
	if err != nil {
		slog.Error(fmt.Sprint("Could not connect to the catalog:", err))
		return err
	}
	defer conn.Close(ctx)

	return run(ctx, conn)
}
