// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package templatebank

import (
	"errors"
	"fmt"
)

// BankError reports a template bank that could not be loaded.
type BankError struct {
	Type ErrorType
	Path string
	// Line is the 1-based line number, 0 when the error is not tied to a line.
	Line int
	// Tokens is the number of tokens found on Line.
	Tokens  int
	Message string
	Err     error
}

// ErrorType classifies template bank errors.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeOpen the file could not be opened.
	ErrorTypeOpen
	// ErrorTypeRead the file could not be read to the end.
	ErrorTypeRead
	// ErrorTypeFormat a data row is malformed.
	ErrorTypeFormat
	// ErrorTypeMetadata a header line is missing or has no value.
	ErrorTypeMetadata
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeOpen:
		return "open"
	case ErrorTypeRead:
		return "read"
	case ErrorTypeFormat:
		return "format"
	case ErrorTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

func (e *BankError) Error() string {
	msg := e.Message

	switch {
	case e.Path != "" && e.Line > 0:
		msg = fmt.Sprintf("%s:%d: %s", e.Path, e.Line, msg)
	case e.Path != "":
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	case e.Line > 0:
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *BankError) Unwrap() error {
	return e.Err
}

func isType(err error, t ErrorType) bool {
	var bankErr *BankError
	if errors.As(err, &bankErr) {
		return bankErr.Type == t
	}

	return false
}

// IsOpenError reports whether err is a template bank that could not be opened.
func IsOpenError(err error) bool {
	return isType(err, ErrorTypeOpen)
}

// IsReadError reports whether err is a template bank that could not be read.
func IsReadError(err error) bool {
	return isType(err, ErrorTypeRead)
}

// IsFormatError reports whether err is a malformed template bank row.
func IsFormatError(err error) bool {
	return isType(err, ErrorTypeFormat)
}

// IsMetadataError reports whether err is a missing or unparsable header line.
func IsMetadataError(err error) bool {
	return isType(err, ErrorTypeMetadata)
}
