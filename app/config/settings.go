// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the application settings from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

const (
	DefaultCacheDirectory   = "./cache"
	DefaultCompressionLevel = 8
	DefaultSacctBinary      = "sacct"
	DefaultWidthInches      = 6.0
	DefaultHeightInches     = 4.0
)

type Settings struct {
	Logging Logging `yaml:"logging"`
	Cache   Cache   `yaml:"cache"`
	Sacct   Sacct   `yaml:"sacct"`
	Report  Report  `yaml:"report"`
	Metrics Metrics `yaml:"metrics"`
	Remote  Remote  `yaml:"remote"`
}

type Logging struct {
	Level   string `yaml:"level" default:"info" env:"LOG_LEVEL" env-description:"logging level such as debug, info, error"`
	Console bool   `yaml:"console" env:"LOG_CONSOLE" env-description:"human readable log output instead of JSON"`
}

type Cache struct {
	Directory        string `yaml:"directory" default:"./cache" env:"CACHE_DIRECTORY" env-description:"directory holding one parquet file per ISO week"`
	KeepRaw          bool   `yaml:"keep_raw" env:"CACHE_KEEP_RAW" env-description:"archive the raw sacct output next to the parquet files"`
	CompressionLevel int    `yaml:"compression_level" default:"8" env:"CACHE_COMPRESSION_LEVEL" env-description:"brotli quality used for cache files"`
}

type Sacct struct {
	Binary    string   `yaml:"binary" default:"sacct" env:"SACCT_BINARY" env-description:"path to the sacct executable"`
	ExtraArgs []string `yaml:"extra_args" env:"SACCT_EXTRA_ARGS" env-separator:" " env-description:"additional arguments such as --clusters"`
	Timezone  string   `yaml:"timezone" default:"Local" env:"SACCT_TIMEZONE" env-description:"zone of the timestamps printed by sacct"`

	location *time.Location
}

type Report struct {
	OutputDirectory string  `yaml:"output_directory" default:"." env:"REPORT_OUTPUT_DIRECTORY" env-description:"where charts are written"`
	WidthInches     float64 `yaml:"width_inches" default:"6" env:"REPORT_WIDTH_INCHES" env-description:"chart width"`
	HeightInches    float64 `yaml:"height_inches" default:"4" env:"REPORT_HEIGHT_INCHES" env-description:"chart height"`
}

type Metrics struct {
	Textfile string `yaml:"textfile" env:"METRICS_TEXTFILE" env-description:"write counters in Prometheus text format to this file on exit"`
}

type Remote struct {
	Endpoint  string `yaml:"endpoint" env:"REMOTE_ENDPOINT" env-description:"S3 compatible endpoint the cache is published to, host[:port]"`
	Bucket    string `yaml:"bucket" default:"mempercore" env:"REMOTE_BUCKET" env-description:"bucket receiving the cache files"`
	Prefix    string `yaml:"prefix" env:"REMOTE_PREFIX" env-description:"object name prefix, for example the cluster name"`
	Region    string `yaml:"region" default:"us-east-1" env:"REMOTE_REGION" env-description:"bucket region"`
	AccessKey string `yaml:"access_key" env:"REMOTE_ACCESS_KEY" env-description:"access key id"`
	SecretKey string `yaml:"secret_key" env:"REMOTE_SECRET_KEY" env-description:"secret access key"`
	Insecure  bool   `yaml:"insecure" env:"REMOTE_INSECURE" env-description:"use plain http"`
}

// Enabled reports whether an endpoint is configured.
func (r *Remote) Enabled() bool {
	return r.Endpoint != ""
}

// NewSettings reads each config file in order, later files overriding earlier ones. Environment
// variables override everything. With no files only the environment is read.
func NewSettings(configFiles ...string) (*Settings, error) {
	var cfg Settings
	read := false
	for _, cfgFile := range configFiles {
		if cfgFile == "" {
			continue
		}

		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("no config %s", cfgFile)
		}

		if err := cleanenv.ReadConfig(cfgFile, &cfg); err != nil {
			return nil, fmt.Errorf("config read %s: %w", cfgFile, err)
		}
		read = true
	}

	if !read {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to read environment")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "failed to validate settings")
	}

	return &cfg, nil
}

func (s *Settings) Validate() error {
	s.Logging.Level = strings.TrimSpace(s.Logging.Level)
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}

	if err := s.Cache.Validate(); err != nil {
		return errors.Wrap(err, "cache validation")
	}

	if err := s.Sacct.Validate(); err != nil {
		return errors.Wrap(err, "sacct validation")
	}

	if err := s.Report.Validate(); err != nil {
		return errors.Wrap(err, "report validation")
	}

	if err := s.Remote.Validate(); err != nil {
		return errors.Wrap(err, "remote validation")
	}

	return nil
}

func (c *Cache) Validate() error {
	if strings.TrimSpace(c.Directory) == "" {
		c.Directory = DefaultCacheDirectory
	}
	c.Directory = filepath.Clean(c.Directory)
	if c.CompressionLevel == 0 {
		c.CompressionLevel = DefaultCompressionLevel
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 11 {
		return fmt.Errorf("compression level %d is outside 0..11", c.CompressionLevel)
	}
	return nil
}

func (s *Sacct) Validate() error {
	if strings.TrimSpace(s.Binary) == "" {
		s.Binary = DefaultSacctBinary
	}
	if s.Timezone == "" {
		s.Timezone = "Local"
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return errors.Wrapf(err, "unknown timezone %q", s.Timezone)
	}
	s.location = loc
	return nil
}

// Location is the zone sacct timestamps and command line dates are read in.
func (s *Sacct) Location() *time.Location {
	if s.location == nil {
		return time.Local
	}
	return s.location
}

func (r *Report) Validate() error {
	if r.OutputDirectory == "" {
		r.OutputDirectory = "."
	}
	if r.WidthInches <= 0 {
		r.WidthInches = DefaultWidthInches
	}
	if r.HeightInches <= 0 {
		r.HeightInches = DefaultHeightInches
	}
	return nil
}

func (r *Remote) Validate() error {
	r.Endpoint = strings.TrimSpace(r.Endpoint)
	if !r.Enabled() {
		return nil
	}
	if strings.Contains(r.Endpoint, "://") {
		return fmt.Errorf("endpoint %q must not contain a scheme", r.Endpoint)
	}
	if r.Bucket == "" {
		return errors.New("bucket is empty")
	}
	if r.Region == "" {
		r.Region = "us-east-1"
	}
	r.Prefix = strings.Trim(r.Prefix, "/")
	return nil
}
