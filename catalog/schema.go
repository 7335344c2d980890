package catalog

import (
	"context"
	_ "embed"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	//go:embed sql/schema.sql
	schemaSQL string
	//go:embed sql/create_indices.sql
	createIndicesSQL string
	//go:embed sql/drop_indices.sql
	dropIndicesSQL string
)

// Execer is satisfied by pgx.Conn, pgx.Tx and pgxpool.Pool
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func CreateSchema(ctx context.Context, conn Execer) error {
	return run(ctx, conn, "Creating catalog schema", schemaSQL)
}

// DropIndices speeds up bulk publication of large tables
func DropIndices(ctx context.Context, conn Execer) error {
	return run(ctx, conn, "Dropping table indices", dropIndicesSQL)
}

func CreateIndices(ctx context.Context, conn Execer) error {
	return run(ctx, conn, "Creating table indices", createIndicesSQL)
}

func run(ctx context.Context, conn Execer, msg, sql string) error {
	slog.Info(msg + "...")
	if _, err := conn.Exec(ctx, sql); err != nil {
		slog.Error(err.Error())
		return err
	}
	slog.Info(msg + ": done")
	return nil
}
