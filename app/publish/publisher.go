// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package publish copies cache files to an S3 compatible bucket so that reports can be built
// away from the cluster.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/config"
)

// ContentType of uploaded cache files.
const ContentType = "application/vnd.apache.parquet"

// ErrDisabled is returned when no endpoint is configured.
var ErrDisabled = errors.New("no remote endpoint configured")

var objectUploadTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mempercore_object_upload_total",
		Help: "Total number of cache files uploaded to the remote bucket.",
	},
	[]string{"error"},
)

// MetricCollectors returns the collectors of this package for registration.
func MetricCollectors() []prometheus.Collector {
	return []prometheus.Collector{objectUploadTotal}
}

// Publisher uploads files into one bucket under a fixed prefix.
type Publisher struct {
	client *minio.Client
	bucket string
	prefix string
	region string
}

func NewPublisher(settings config.Remote) (*Publisher, error) {
	if !settings.Enabled() {
		return nil, ErrDisabled
	}
	client, err := minio.New(settings.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(settings.AccessKey, settings.SecretKey, ""),
		Secure: !settings.Insecure,
		Region: settings.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &Publisher{
		client: client,
		bucket: settings.Bucket,
		prefix: settings.Prefix,
		region: settings.Region,
	}, nil
}

// ObjectName returns the name file is stored under.
func (p *Publisher) ObjectName(file string) string {
	return path.Join(p.prefix, filepath.Base(file))
}

// Push creates the bucket if needed and uploads files in order. It stops at the first failure and
// returns how many files were uploaded.
func (p *Publisher) Push(ctx context.Context, files []string) (int, error) {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return 0, fmt.Errorf("failed to check bucket %s: %w", p.bucket, err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region}); err != nil {
			return 0, fmt.Errorf("failed to create bucket %s: %w", p.bucket, err)
		}
		log.Ctx(ctx).Info().Str("bucket", p.bucket).Msg("created bucket")
	}

	for i, file := range files {
		name := p.ObjectName(file)
		info, err := p.client.FPutObject(ctx, p.bucket, name, file, minio.PutObjectOptions{ContentType: ContentType})
		objectUploadTotal.WithLabelValues(strconv.FormatBool(err != nil)).Inc()
		if err != nil {
			return i, fmt.Errorf("failed to upload %s: %w", file, err)
		}
		log.Ctx(ctx).Debug().
			Str("bucket", p.bucket).
			Str("object", name).
			Int64("size", info.Size).
			Msg("uploaded cache file")
	}
	return len(files), nil
}
