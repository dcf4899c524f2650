package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config contains filesystem archive configuration
type Config struct {
	BasePath string // Base directory for archived snapshots
}

// DefaultConfig returns default archive configuration
func DefaultConfig() Config {
	return Config{
		BasePath: "./archive",
	}
}

// Archive stores page snapshots on the local filesystem.
type Archive struct {
	config Config
}

// New creates a new filesystem Archive instance
func New(config Config) (*Archive, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base archive directory: %w", err)
	}

	return &Archive{
		config: config,
	}, nil
}

// SaveSnapshot writes a fetched page body to the archive.
// Returns the relative file path from the base archive directory.
func (a *Archive) SaveSnapshot(content, name string) (string, error) {
	// Generate directory structure: snapshots/YYYY/MM/
	now := time.Now()
	year := fmt.Sprintf("%04d", now.Year())
	month := fmt.Sprintf("%02d", int(now.Month()))

	dirPath := filepath.Join(a.config.BasePath, "snapshots", year, month)

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	// Generate filename: name.html
	filename := name + ".html"
	filePath := filepath.Join(dirPath, filename)

	// Check if file already exists and make unique if necessary
	counter := 1
	for fileExists(filePath) {
		filename = fmt.Sprintf("%s-%d.html", name, counter)
		filePath = filepath.Join(dirPath, filename)
		counter++
	}

	// Write file
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot file: %w", err)
	}

	// Return relative path from base archive directory
	relPath, err := filepath.Rel(a.config.BasePath, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to get relative path: %w", err)
	}

	return relPath, nil
}

// ReadSnapshot reads an archived snapshot from the filesystem
func (a *Archive) ReadSnapshot(relPath string) (string, error) {
	fullPath := filepath.Join(a.config.BasePath, relPath)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot file: %w", err)
	}

	return string(data), nil
}

// DeleteSnapshot deletes an archived snapshot from the filesystem
func (a *Archive) DeleteSnapshot(relPath string) error {
	fullPath := filepath.Join(a.config.BasePath, relPath)

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
