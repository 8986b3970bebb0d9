package storage

import (
	"context"
	"fmt"
)

// Open returns the store selected by driver. Postgres is migrated to the
// latest schema before use.
func Open(ctx context.Context, driver, databaseURL string) (Storage, error) {
	switch driver {
	case "memory":
		return NewMemory(), nil
	case "postgres":
		if err := RunMigrations(databaseURL); err != nil {
			return nil, err
		}
		return OpenPostgres(ctx, databaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
