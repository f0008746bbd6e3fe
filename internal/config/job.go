package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"vehicle-counter-go/internal/models"
)

// LoadJobFile reads a counting job from a YAML file and validates it
func LoadJobFile(path string) (models.JobRequest, error) {
	var req models.JobRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read job file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}
	if err := validator.New().Struct(req); err != nil {
		return req, fmt.Errorf("invalid job file %s: %w", path, err)
	}
	return req, nil
}
