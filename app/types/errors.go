// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"errors"
	"fmt"
)

// CodedError is an error carrying a short stable code, used as a log field and metric label.
type CodedError interface {
	error
	// Code returns the associated error code as a string.
	Code() string
}

type codedError struct {
	code string
	msg  string
	err  error
}

func (e *codedError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *codedError) Code() string {
	return e.code
}

func (e *codedError) Unwrap() error {
	return e.err
}

// NewCodedError creates a new sentinel error.
func NewCodedError(code, msg string) CodedError {
	return &codedError{code: code, msg: msg}
}

// Sentinel errors; use errors.Is / errors.As against them.
var (
	ErrInvalidRange    = NewCodedError("err-invalid-range", "invalid date range")
	ErrRangeTooLarge   = NewCodedError("err-range-too-large", "date range in accounting request too large")
	ErrFetchFailure    = NewCodedError("err-fetch-failure", "accounting command returned no data")
	ErrDuplicateJob    = NewCodedError("err-duplicate-job", "duplicate job ids found")
	ErrMalformedOutput = NewCodedError("err-malformed-output", "accounting output could not be parsed")
	ErrCacheRead       = NewCodedError("err-cache-read", "failed to read the week cache")
	ErrCacheWrite      = NewCodedError("err-cache-write", "failed to write the week cache")
)

// ErrorCodeDefault is returned by ErrorCode when no CodedError is in the chain.
const ErrorCodeDefault = "unknown error"

// ErrorCode extracts the code of the first CodedError found in err's chain.
func ErrorCode(err error) string {
	var ce CodedError
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ErrorCodeDefault
}
