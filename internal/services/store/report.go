// Package store persists counting reports as a JSON file and as rows in a
// local SQLite run history.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vehicle-counter-go/internal/models"
)

// WriteReportFile writes the report as indented JSON, creating parent
// directories as needed
func WriteReportFile(path string, report models.Report) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// ReadReportFile loads a report written by WriteReportFile. A missing file
// yields an error wrapping os.ErrNotExist.
func ReadReportFile(path string) (models.Report, error) {
	var report models.Report

	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return report, nil
}
