// Package history is the sqlite-backed history provider: it records
// executed commands and serves them back as ranked suggestions. Ranking is
// purely recency-derived; anything smarter belongs to the host.
package history

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/glintshell/glint/internal/spec"
	"gorm.io/gorm"
)

const schemaVersion = 1

// basePriority puts history suggestions above ordinary spec suggestions
// but below exact prefix-tier matches.
const basePriority = 60

// CommandRecord is one executed command.
type CommandRecord struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`

	Command   string `gorm:"index"`
	Directory string
	ExitCode  sql.NullInt32
}

// Manager stores and queries command records. It implements
// spec.HistoryProvider.
type Manager struct {
	db          *gorm.DB
	versionPath string
}

// NewManager opens (creating if needed) the history database at dbFilePath.
func NewManager(dbFilePath string) (*Manager, error) {
	dbFileExists := true
	if _, err := os.Stat(dbFilePath); errors.Is(err, os.ErrNotExist) {
		dbFileExists = false
	} else if err != nil {
		return nil, fmt.Errorf("check history db: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	m := &Manager{
		db:          db,
		versionPath: dbFilePath + ".version",
	}

	if m.needsMigration(dbFileExists) {
		if err := db.AutoMigrate(&CommandRecord{}); err != nil {
			return nil, fmt.Errorf("migrate history schema: %w", err)
		}
		if err := m.writeSchemaVersion(); err != nil {
			return nil, fmt.Errorf("write history schema version: %w", err)
		}
	}

	return m, nil
}

func (m *Manager) needsMigration(dbFileExists bool) bool {
	if !dbFileExists {
		return true
	}
	if !m.schemaVersionMatches() {
		return true
	}
	// A present version marker with a missing table means the db was
	// corrupted or hand-edited; re-run migrations.
	return !m.db.Migrator().HasTable(&CommandRecord{})
}

func (m *Manager) writeSchemaVersion() error {
	return os.WriteFile(m.versionPath, []byte(strconv.Itoa(schemaVersion)), 0644)
}

func (m *Manager) schemaVersionMatches() bool {
	data, err := os.ReadFile(m.versionPath)
	if err != nil {
		return false
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	return version == schemaVersion
}

// RecordCommand stores one executed command.
func (m *Manager) RecordCommand(command string, directory string, exitCode int) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}
	record := CommandRecord{
		Command:   command,
		Directory: directory,
		ExitCode:  sql.NullInt32{Int32: int32(exitCode), Valid: true},
	}
	if result := m.db.Create(&record); result.Error != nil {
		return result.Error
	}
	return nil
}

// HistorySuggestions returns commands starting with term, most recent
// first, as suggestions with recency-derived priorities. Duplicate command
// lines collapse to their most recent occurrence.
func (m *Manager) HistorySuggestions(ctx context.Context, term string, cwd string, limit int) ([]spec.Suggestion, error) {
	var records []CommandRecord
	result := m.db.WithContext(ctx).
		Where("command LIKE ? ESCAPE '\\'", likePrefix(term)).
		Order("created_at desc").
		Limit(limit * 2).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	seen := make(map[string]bool, len(records))
	var suggestions []spec.Suggestion
	for _, record := range records {
		if seen[record.Command] {
			continue
		}
		seen[record.Command] = true

		suggestions = append(suggestions, spec.Suggestion{
			Names:    []string{record.Command},
			Type:     spec.TypeShortcut,
			Priority: basePriority + 1/float64(len(suggestions)+1),
		})
		if len(suggestions) >= limit {
			break
		}
	}
	return suggestions, nil
}

// likePrefix escapes LIKE metacharacters so the term matches literally.
func likePrefix(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(term)
	return escaped + "%"
}

// Search returns records whose command contains query, most recent first.
func (m *Manager) Search(query string, limit int) ([]CommandRecord, error) {
	var records []CommandRecord
	result := m.db.Where("command LIKE ?", "%"+query+"%").
		Order("created_at desc").
		Limit(limit).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// Import reads newline-separated commands (a shell history file) and
// records each one. Returns how many commands were stored.
func (m *Manager) Import(r io.Reader, directory string) (int, error) {
	scanner := bufio.NewScanner(r)
	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := m.RecordCommand(line, directory, 0); err != nil {
			return count, err
		}
		count++
	}
	return count, scanner.Err()
}

// Reset deletes all history.
func (m *Manager) Reset() error {
	result := m.db.Exec("DELETE FROM command_records")
	return result.Error
}
