// Package migrations embeds the SQL schema files and applies them in
// lexical order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"sort"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// Executor runs one SQL statement. Both pgx pools and clickhouse
// connections satisfy it through small adapters.
type Executor func(ctx context.Context, sql string) error

// Run applies every migration under dir (postgres or clickhouse) in file
// name order.
func Run(ctx context.Context, dir string, exec Executor) error {
	entries, err := files.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := files.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
