// Package scaffold writes a starter micra.yml.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/micra/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes the starter files into dir and returns their paths.
// If force is true, existing files are overwritten.
func Initialize(dir string, force bool) ([]string, error) {
	if !force {
		if err := CheckExisting(dir); err != nil {
			return nil, err
		}
	}

	files, err := templateFiles(dir)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		written = append(written, file.Path)
	}

	// The starter config must load cleanly, definitions included.
	if _, err := config.Load(filepath.Join(dir, config.DefaultPath)); err != nil {
		return nil, fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}
	return written, nil
}

func templateFiles(dir string) ([]FileInfo, error) {
	content, err := templatesFS.ReadFile("templates/micra.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read micra.yml template: %w", err)
	}
	return []FileInfo{{
		Path:        filepath.Join(dir, config.DefaultPath),
		Content:     content,
		Permissions: 0644,
	}}, nil
}
