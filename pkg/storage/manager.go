package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hirafetch/pkg/models"
)

// Output formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Manager places output tables under a base directory
type Manager struct {
	outputDir string
	format    string
}

// NewManager creates the output directory if needed. format is the default
// file extension for names given without one.
func NewManager(outputDir, format string) (*Manager, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir, format: format}, nil
}

// PathFor resolves name to a file path. Absolute paths and names with a
// directory part are used as given; bare names land in the output directory.
func (m *Manager) PathFor(name string) string {
	if filepath.Ext(name) == "" {
		name = name + "." + m.format
	}
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(m.outputDir, name)
}

// Save writes records to PathFor(name) and returns the path written
func (m *Manager) Save(name string, records []models.Record, priority []string) (string, error) {
	path := m.PathFor(name)
	if err := WriteRecords(path, records, priority); err != nil {
		return "", err
	}
	return path, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// writeAtomic streams into a temporary file next to path and renames it into
// place, so readers never see a half-written table
func writeAtomic(path string, write func(w io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = write(out)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
