//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of the NYC Taxi Platform.
//
// The NYC Taxi Platform is free software: you can redistribute it and/or
// modify it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The NYC Taxi Platform is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with the NYC Taxi Platform. If not, see https://www.gnu.org/licenses/.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Package config resolves the job configuration once at process start. No
// other package reads environment state; everything downstream receives the
// Config explicitly.
//
// Bucket identifiers resolve from the environment first. When the process is
// not running under a cloud execution environment, a locally provisioned
// terraform state file serves as fallback: the buckets recorded under its
// documented output keys are reused. Under cloud execution the fallback is
// disabled and the environment must be complete.

// Environment variables recognized by Load.
const (
	EnvRawBucket       = "RAW_BUCKET_NAME"
	EnvProcessedBucket = "PROCESSED_BUCKET_NAME"
	EnvInputKey        = "INPUT_KEY"
	EnvOutputKey       = "OUTPUT_KEY"
	EnvFilterProfile   = "FILTER_PROFILE"
	EnvAWSRegion       = "AWS_REGION"
	EnvS3Endpoint      = "S3_ENDPOINT_URL"
	// EnvCloudExecution marks a managed cloud runtime (set by ECS/Fargate).
	// Its presence disables the terraform state fallback.
	EnvCloudExecution = "AWS_EXECUTION_ENV"
)

// Terraform state output keys holding the provisioned bucket names.
const (
	stateKeyRawBucket       = "outputs.raw_data_bucket_name.value"
	stateKeyProcessedBucket = "outputs.processed_data_bucket_name.value"
)

// DefaultStatePath is where a local terraform run leaves its state file.
const DefaultStatePath = "terraform/terraform.tfstate"

// ErrUnresolved is the umbrella error for the soft-stop case: neither the
// environment nor the fallback produced usable bucket identifiers. All
// resolution failures unwrap to it.
var ErrUnresolved = errors.New("bucket configuration unresolved")

// Named resolution failure reasons, each wrapping ErrUnresolved so callers
// can match the class or the specific cause.
var (
	ErrCloudEnvIncomplete = fmt.Errorf("%w: cloud execution requires %s and %s", ErrUnresolved, EnvRawBucket, EnvProcessedBucket)
	ErrStateUnreadable    = fmt.Errorf("%w: terraform state unreadable", ErrUnresolved)
	ErrStateIncomplete    = fmt.Errorf("%w: terraform state missing bucket outputs", ErrUnresolved)
)

// Source records where the bucket identifiers came from.
type Source int

const (
	// SourceEnvironment means both buckets came from environment variables.
	SourceEnvironment Source = iota
	// SourceTerraformState means the buckets were recovered from a local
	// terraform state file.
	SourceTerraformState
)

// String implements fmt.Stringer for logging.
func (s Source) String() string {
	switch s {
	case SourceEnvironment:
		return "environment"
	case SourceTerraformState:
		return "terraform-state"
	default:
		return "unknown"
	}
}

// Config is the fully resolved job configuration.
type Config struct {
	RawBucket       string // Source bucket name, or a local directory path
	ProcessedBucket string // Destination bucket name, or a local directory path
	InputKey        string // Explicit input object key; empty means discover
	OutputKey       string // Explicit output object key; empty means derive from input
	FilterProfile   string // Cleaning profile name; empty means the default
	Region          string // AWS region for the S3 client
	Endpoint        string // Custom S3 endpoint, for S3-compatible stores
	Source          Source // Where the bucket identifiers were resolved from
}

// Options tunes Load. The zero value is the production behavior.
type Options struct {
	// StatePath overrides the terraform state file location.
	StatePath string
}

// Load resolves the configuration from the process environment, falling back
// to the terraform state file when the environment is incomplete and the
// process is not under cloud execution. A nil error guarantees both bucket
// identifiers are non-empty.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	cfg := &Config{
		RawBucket:       v.GetString(EnvRawBucket),
		ProcessedBucket: v.GetString(EnvProcessedBucket),
		InputKey:        v.GetString(EnvInputKey),
		OutputKey:       v.GetString(EnvOutputKey),
		FilterProfile:   v.GetString(EnvFilterProfile),
		Region:          v.GetString(EnvAWSRegion),
		Endpoint:        v.GetString(EnvS3Endpoint),
		Source:          SourceEnvironment,
	}

	if cfg.RawBucket != "" && cfg.ProcessedBucket != "" {
		return cfg, nil
	}

	if v.GetString(EnvCloudExecution) != "" {
		return nil, ErrCloudEnvIncomplete
	}

	statePath := opts.StatePath
	if statePath == "" {
		statePath = DefaultStatePath
	}
	raw, processed, err := bucketsFromState(statePath)
	if err != nil {
		return nil, err
	}
	cfg.RawBucket = raw
	cfg.ProcessedBucket = processed
	cfg.Source = SourceTerraformState
	return cfg, nil
}

// bucketsFromState reads the bucket names a previous terraform apply recorded
// in its state outputs.
func bucketsFromState(path string) (raw, processed string, err error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrStateUnreadable, err)
	}
	raw = v.GetString(stateKeyRawBucket)
	processed = v.GetString(stateKeyProcessedBucket)
	if raw == "" || processed == "" {
		return "", "", fmt.Errorf("%w: %s", ErrStateIncomplete, path)
	}
	return raw, processed, nil
}

// IsLocalPath reports whether a configured location names a local filesystem
// directory rather than an S3 bucket. Bucket names cannot contain path
// separators or start with a dot, so this check is unambiguous.
func IsLocalPath(location string) bool {
	return strings.ContainsRune(location, '/') || strings.HasPrefix(location, ".")
}
