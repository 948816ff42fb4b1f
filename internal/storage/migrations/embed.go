package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// PostgresFS embeds the airdrop_projects schema.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the score_history schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// migration is one SQL file read from an embedded directory.
type migration struct {
	Name string
	SQL  string
}

// loadMigrations reads the non-empty .sql files under dir in lexical order.
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	result := make([]migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		result = append(result, migration{Name: name, SQL: string(data)})
	}
	return result, nil
}

// Files lists the embedded migration file names per backend, in apply order.
func Files() (postgresFiles, clickhouseFiles []string, err error) {
	pg, err := loadMigrations(PostgresFS, "postgres")
	if err != nil {
		return nil, nil, err
	}
	ch, err := loadMigrations(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, nil, err
	}
	for _, m := range pg {
		postgresFiles = append(postgresFiles, m.Name)
	}
	for _, m := range ch {
		clickhouseFiles = append(clickhouseFiles, m.Name)
	}
	return postgresFiles, clickhouseFiles, nil
}
