// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package build contains build information for the application.
package build

import "fmt"

// These values are replaced at compile time using the -X build flag:
//
//	-X github.com/hpc-reporting/sacct-mempercore/app/build.Rev=${REVISION}
//	-X github.com/hpc-reporting/sacct-mempercore/app/build.Tag=${TAG}
//	-X github.com/hpc-reporting/sacct-mempercore/app/build.Time=${BUILD_TIME}
//
// Example:
//
//	BUILD_TIME="$(date -u '+%Y-%m-%d_%I:%M:%S%p')"
//	TAG="$(git describe --tags 2>/dev/null || echo notag)"
//	REVISION="$(git rev-parse HEAD)"
//	LD_FLAGS="-s -w -X .../app/build.Time=${BUILD_TIME} -X .../app/build.Rev=${REVISION} -X .../app/build.Tag=${TAG}"
//	CGO_ENABLED=0 go build -mod=readonly -trimpath -ldflags="${LD_FLAGS}" -o sacct-mempercore ./cmd/sacct-mempercore
var (
	Rev  = "latest"
	Tag  = "latest"
	Time = "latest"
)

var (
	AppName   = "sacct-mempercore"
	Usage     = "core-hours by memory per core from Slurm accounting"
	Copyright = "© 2024 CloudZero, Inc."
)

func GetVersion() string {
	return fmt.Sprintf("%s.%s.%s-%s", AppName, Rev, Tag, Time)
}
