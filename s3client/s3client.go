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

package s3client

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Package s3client builds the shared S3 client used by the locator, readers,
// and writers. Credentials resolve through the default AWS chain unless
// static credentials are supplied; a custom endpoint switches the client to
// path-style addressing for S3-compatible stores.

// Client aliases the SDK client so callers outside the storage packages do
// not import the SDK directly.
type Client = s3.Client

// Options configures client construction.
type Options struct {
	Region         string          // AWS region
	Profile        string          // Shared-config profile to use
	EndpointURL    string          // Custom S3 endpoint (for S3-compatible services)
	ForcePathStyle bool            // Use path-style addressing
	Credentials    aws.Credentials // Explicit static credentials
}

// Option is a configuration function for Options.
type Option func(*Options)

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(opts *Options) {
		opts.Region = region
	}
}

// WithProfile selects a shared-config profile.
func WithProfile(profile string) Option {
	return func(opts *Options) {
		opts.Profile = profile
	}
}

// WithEndpoint points the client at a custom S3 endpoint and enables
// path-style addressing, which S3-compatible stores generally require.
func WithEndpoint(endpoint string) Option {
	return func(opts *Options) {
		opts.EndpointURL = endpoint
		opts.ForcePathStyle = true
	}
}

// WithStaticCredentials overrides the default credential chain.
func WithStaticCredentials(creds aws.Credentials) Option {
	return func(opts *Options) {
		opts.Credentials = creds
	}
}

// New constructs an S3 client.
func New(ctx context.Context, options ...Option) (*s3.Client, error) {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	configOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, err
	}

	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})
	return client, nil
}
