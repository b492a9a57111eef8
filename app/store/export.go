// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

const jsonBufferSize = 1024

// WriteJSON streams table to w as a JSON array, one object per record.
func WriteJSON(w io.Writer, table types.Table) error {
	writer := jwriter.NewStreamingWriter(w, jsonBufferSize)
	arrayState := writer.Array()

	for _, row := range table {
		encoded, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", row.JobID, err)
		}
		arrayState.Raw(encoded)
	}

	// End the JSON array
	arrayState.End()

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush JSON writer: %w", err)
	}
	return writer.Error()
}
