package internal

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/davnau/medialens/internal/api"
	"github.com/davnau/medialens/internal/database"
	"github.com/davnau/medialens/internal/fetch"
	"github.com/davnau/medialens/internal/ffprobe"
	"github.com/davnau/medialens/internal/mediainfo"
)

// MediaLensConfig is the user-supplied configuration for the whole
// service, populated from a YAML file and/or environment variables.
type MediaLensConfig struct {
	Database  database.DatabaseConfig   `yaml:"database" env-required:"true"`
	Provision ffprobe.ProvisionerConfig `yaml:"ffprobe"`
	Probe     ffprobe.InvokerConfig     `yaml:"probe"`
	Fetch     fetch.FetcherConfig       `yaml:"fetch"`
	MediaInfo mediainfo.Config          `yaml:"media_info" validate:"required"`
	Api       api.RestConfig            `yaml:"api" validate:"required"`
}

// LoadFromFile reads the YAML configuration at configPath in to this
// struct and validates the result.
func (config *MediaLensConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	return nil
}

// LoadFromEnv populates the configuration from environment variables
// alone, for deployments (buildpack platforms) where no config file is
// shipped.
func (config *MediaLensConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	return nil
}
