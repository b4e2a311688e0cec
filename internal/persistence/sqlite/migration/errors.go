package migration

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels returned (wrapped) by the scanner, executor and manager.
var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	ErrVersionConflict      = errors.New("migration version conflict")
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	ErrVersionTableCorrupt  = errors.New("schema_migrations table is corrupted")
)

// MigrationError ties a failure to one migration file.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}

func (e *MigrationError) Error() string {
	subject := "migration " + e.FilePath
	if e.Version != "" {
		subject = fmt.Sprintf("migration %s (%s)", e.Version, e.FilePath)
	}
	return fmt.Sprintf("%s: %s: %v", subject, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// FileSystemError reports a failure to read the migrations directory or one
// of its files.
type FileSystemError struct {
	Path      string
	Operation string
	Err       error
}

func NewFileSystemError(path, operation string, err error) *FileSystemError {
	return &FileSystemError{Path: path, Operation: operation, Err: err}
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

// DatabaseError reports a failed statement. Query is kept whole for callers;
// the message only shows its first line.
type DatabaseError struct {
	Version   string
	Query     string
	Operation string
	Err       error
}

func NewDatabaseError(version, query, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Query: query, Operation: operation, Err: err}
}

func (e *DatabaseError) Error() string {
	var b strings.Builder
	b.WriteString("database: ")
	if e.Version != "" {
		fmt.Fprintf(&b, "migration %s: ", e.Version)
	}
	b.WriteString(e.Operation)
	if line := firstLine(e.Query); line != "" {
		fmt.Fprintf(&b, " [%s]", line)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func firstLine(query string) string {
	query = strings.TrimSpace(query)
	if head, _, found := strings.Cut(query, "\n"); found {
		return strings.TrimSpace(head) + " ..."
	}
	return query
}
