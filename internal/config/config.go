// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

// Config is the top-level SmartGallery configuration.
type Config struct {
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"`
	Gallery    GalleryConfig    `mapstructure:"gallery"`
}

// NetworkingConfig controls how the server listens for connections.
type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig selects and locates the collection storage backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ExtractorConfig points at the embedding model endpoint.
type ExtractorConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// GalleryConfig controls pipeline behavior.
type GalleryConfig struct {
	DefaultTenant     string `mapstructure:"default_tenant"`
	IngestParallelism int    `mapstructure:"ingest_parallelism"`
}

// SetDefaults registers default values on the given Viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:8750")
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.path", "smartgallery.db")
	v.SetDefault("extractor.endpoint", "http://127.0.0.1:8123/v1")
	v.SetDefault("extractor.model", "clip-vit-b-32")
	v.SetDefault("extractor.dimensions", 512)
	v.SetDefault("gallery.default_tenant", "default")
	v.SetDefault("gallery.ingest_parallelism", 4)
}

// SetupEnv binds SMARTGALLERY_* environment variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("SMARTGALLERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SMARTGALLERY_).
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, sgerr.Errorf(sgerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateExtractor()...)
	errs = append(errs, c.validateGallery()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, sgerr.New(sgerr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		errs = append(errs, sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue,
			"config: networking.listen must be a valid host:port address, got %q: %w",
			c.Networking.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [memory, sqlite], got %q", c.Storage.Backend))
	}

	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, sgerr.New(sgerr.CodeConfigValidateInvalidValue,
			"config: storage.path must not be empty for the sqlite backend"))
	}

	return errs
}

func (c *Config) validateExtractor() []error {
	var errs []error

	if c.Extractor.Endpoint == "" {
		errs = append(errs, sgerr.New(sgerr.CodeConfigValidateInvalidValue, "config: extractor.endpoint must not be empty"))
	}
	if c.Extractor.Model == "" {
		errs = append(errs, sgerr.New(sgerr.CodeConfigValidateInvalidValue, "config: extractor.model must not be empty"))
	}
	if c.Extractor.Dimensions <= 0 {
		errs = append(errs, sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue,
			"config: extractor.dimensions must be greater than 0, got %d", c.Extractor.Dimensions))
	}

	return errs
}

func (c *Config) validateGallery() []error {
	var errs []error

	if c.Gallery.DefaultTenant == "" {
		errs = append(errs, sgerr.New(sgerr.CodeConfigValidateInvalidValue, "config: gallery.default_tenant must not be empty"))
	}
	if c.Gallery.IngestParallelism <= 0 {
		errs = append(errs, sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue,
			"config: gallery.ingest_parallelism must be greater than 0, got %d", c.Gallery.IngestParallelism))
	}

	return errs
}
