package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const migrationUpTemplate = `-- {{.Name}}
-- {{.Description}}
-- Created: {{.Timestamp}}

`

const migrationDownTemplate = `-- Rollback for {{.Name}}

`

// versionWidth matches the zero padded prefix of the shipped migrations (000001_...)
const versionWidth = 6

// MigrationFile represents a migration file pair
type MigrationFile struct {
	Version     uint
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// MigrationInfo describes one migration found in a source
type MigrationInfo struct {
	Version uint
	Name    string
	HasDown bool
}

// CreateMigration writes a new up/down pair numbered after the highest existing version
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}

	existing, err := ListMigrations(os.DirFS(migrationsDir))
	if err != nil {
		return nil, err
	}
	var version uint = 1
	if len(existing) > 0 {
		version = existing[len(existing)-1].Version + 1
	}

	baseName := fmt.Sprintf("%0*d_%s", versionWidth, version, slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
		UpPath:      filepath.Join(migrationsDir, baseName+".up.sql"),
		DownPath:    filepath.Join(migrationsDir, baseName+".down.sql"),
	}

	if err := createMigrationFile(mf.UpPath, migrationUpTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := createMigrationFile(mf.DownPath, migrationDownTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}

	return mf, nil
}

func createMigrationFile(path, tmplContent string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// sanitizeName converts a migration name to a safe file name format
func sanitizeName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ListMigrations returns the migrations in fsys ordered by version.
// Files that do not follow <version>_<name>.(up|down).sql are ignored.
func ListMigrations(fsys fs.FS) ([]MigrationInfo, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if os.IsNotExist(err) {
			return []MigrationInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[uint]*MigrationInfo)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, direction, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}
		info, found := byVersion[version]
		if !found {
			info = &MigrationInfo{Version: version, Name: name}
			byVersion[version] = info
		}
		if direction == "down" {
			info.HasDown = true
		}
	}

	migrations := make([]MigrationInfo, 0, len(byVersion))
	for _, info := range byVersion {
		migrations = append(migrations, *info)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func parseFileName(file string) (version uint, name, direction string, ok bool) {
	base, found := strings.CutSuffix(file, ".sql")
	if !found {
		return 0, "", "", false
	}
	switch {
	case strings.HasSuffix(base, ".up"):
		direction = "up"
	case strings.HasSuffix(base, ".down"):
		direction = "down"
	default:
		return 0, "", "", false
	}
	base = strings.TrimSuffix(base, "."+direction)

	prefix, name, found := strings.Cut(base, "_")
	if !found {
		return 0, "", "", false
	}
	v, err := strconv.ParseUint(prefix, 10, 32)
	if err != nil {
		return 0, "", "", false
	}
	return uint(v), name, direction, true
}
