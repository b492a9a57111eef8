// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package publish_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpc-reporting/sacct-mempercore/app/config"
	"github.com/hpc-reporting/sacct-mempercore/app/publish"
)

// fakeS3 accepts bucket probes and object uploads.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestUnit_Publish_Disabled(t *testing.T) {
	_, err := publish.NewPublisher(config.Remote{})
	require.ErrorIs(t, err, publish.ErrDisabled)
}

func TestUnit_Publish_ObjectName(t *testing.T) {
	p, err := publish.NewPublisher(config.Remote{Endpoint: "localhost:9000", Bucket: "b", Prefix: "saga"})
	require.NoError(t, err)
	assert.Equal(t, "saga/2026-3.parquet", p.ObjectName(filepath.Join("cache", "2026-3.parquet")))

	p, err = publish.NewPublisher(config.Remote{Endpoint: "localhost:9000", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "2026-3.parquet", p.ObjectName("2026-3.parquet"))
}

func TestUnit_Publish_Push(t *testing.T) {
	backend := &fakeS3{objects: map[string][]byte{}}
	server := httptest.NewServer(backend)
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	p, err := publish.NewPublisher(config.Remote{
		Endpoint: u.Host,
		Bucket:   "accounting",
		Prefix:   "saga",
		Region:   "us-east-1",
		Insecure: true,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	files := []string{filepath.Join(dir, "2026-3.parquet"), filepath.Join(dir, "2026-4.parquet")}
	for _, file := range files {
		require.NoError(t, os.WriteFile(file, []byte("PAR1"+filepath.Base(file)), 0o600))
	}

	n, err := p.Push(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Contains(t, backend.objects, "/accounting/saga/2026-3.parquet")
	assert.Contains(t, backend.objects, "/accounting/saga/2026-4.parquet")
}

func TestUnit_Publish_MissingFile(t *testing.T) {
	backend := &fakeS3{objects: map[string][]byte{}}
	server := httptest.NewServer(backend)
	defer server.Close()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	p, err := publish.NewPublisher(config.Remote{Endpoint: u.Host, Bucket: "accounting", Region: "us-east-1", Insecure: true})
	require.NoError(t, err)

	n, err := p.Push(context.Background(), []string{filepath.Join(t.TempDir(), "missing.parquet")})
	require.Error(t, err)
	assert.Zero(t, n)
}
