// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

// Package templatebank reads polynomial template banks: the acceleration and
// jerk trials an accelerated search is run over.
//
// A bank is a plain text file with an optional header:
//
//	---------------------------------------------
//	Maximum acceleration used to generate template 300.0 m/s^2
//	Maximum Jerk used to generate template 2.5 m/s^3
//	---------------------------------------------
//	acc m/s^2       jerk m/s^3
//	1.343           0.001
//	45.234          1.345
package templatebank

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Metadata keys.
const (
	KeyMaxAcceleration = "Maximum acceleration used to generate template"
	KeyMaxJerk         = "Maximum Jerk used to generate template"
)

const maxLineSize = 1024 * 1024

// Template is one trial of the bank.
type Template struct {
	Acc  float64 `json:"acc"`
	Jerk float64 `json:"jerk"`
}

// PolynomialBank is a parsed polynomial template bank.
type PolynomialBank struct {
	Acc  []float64
	Jerk []float64

	// Columns is the token count of the first data row, 0 for an empty bank.
	Columns int

	// Metadata holds the recognised header lines, keyed by KeyMaxAcceleration
	// and KeyMaxJerk. Values are the whole line, trimmed.
	Metadata map[string]string
}

// Len returns the number of templates.
func (b *PolynomialBank) Len() int {
	return len(b.Acc)
}

// Templates returns the bank as (acc, jerk) pairs.
func (b *PolynomialBank) Templates() []Template {
	ret := make([]Template, 0, len(b.Acc))
	for i := range b.Acc {
		ret = append(ret, Template{Acc: b.Acc[i], Jerk: b.Jerk[i]})
	}

	return ret
}

// MaxAcceleration returns the value and units of the maximum acceleration
// header line.
func (b *PolynomialBank) MaxAcceleration() (float64, string, error) {
	return b.headerValue(KeyMaxAcceleration)
}

// MaxJerk returns the value and units of the maximum jerk header line.
func (b *PolynomialBank) MaxJerk() (float64, string, error) {
	return b.headerValue(KeyMaxJerk)
}

func (b *PolynomialBank) headerValue(key string) (float64, string, error) {
	line, ok := b.Metadata[key]
	if !ok {
		return 0, "", &BankError{
			Type:    ErrorTypeMetadata,
			Message: fmt.Sprintf("no %q header", key),
		}
	}

	// The value follows the key words.
	fields := strings.Fields(line)
	skip := len(strings.Fields(key))

	if len(fields) <= skip {
		return 0, "", &BankError{
			Type:    ErrorTypeMetadata,
			Message: fmt.Sprintf("header %q has no value", line),
		}
	}

	value, err := strconv.ParseFloat(fields[skip], 64)
	if err != nil {
		return 0, "", &BankError{
			Type:    ErrorTypeMetadata,
			Message: fmt.Sprintf("header %q has an invalid value", line),
			Err:     err,
		}
	}

	return value, strings.Join(fields[skip+1:], " "), nil
}

// Load reads the template bank at path.
func Load(path string) (*PolynomialBank, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, &BankError{
			Type:    ErrorTypeOpen,
			Path:    path,
			Message: "failed to open template bank file",
			Err:     err,
		}
	}
	defer f.Close()

	bank, err := Parse(f)
	if err != nil {
		var bankErr *BankError
		if errors.As(err, &bankErr) {
			bankErr.Path = path
		}

		return nil, err
	}

	return bank, nil
}

// Parse reads a template bank from r. Blank lines and lines made only of
// dashes are skipped, as are two-token column headers and stray lines with
// no numeric token. Any other line must hold exactly two numbers.
func Parse(r io.Reader) (*PolynomialBank, error) {
	bank := &PolynomialBank{
		Metadata: make(map[string]string),
	}

	folder := cases.Fold()
	headers := []struct {
		prefix string
		key    string
	}{
		{folder.String(KeyMaxAcceleration), KeyMaxAcceleration},
		{folder.String(KeyMaxJerk), KeyMaxJerk},
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0

lines:
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if isSeparator(line) {
			continue
		}

		folded := folder.String(line)
		for _, h := range headers {
			if strings.HasPrefix(folded, h.prefix) {
				bank.Metadata[h.key] = line

				continue lines
			}
		}

		tokens := strings.Fields(line)
		numeric := make([]bool, len(tokens))
		values := make([]float64, len(tokens))
		anyNumeric := false

		for i, tok := range tokens {
			v, err := strconv.ParseFloat(tok, 64)
			if err == nil {
				numeric[i], values[i] = true, v
				anyNumeric = true
			}
		}

		isRow := len(tokens) == 2 && numeric[0] && numeric[1]
		if len(tokens) == 2 && !isRow {
			// Column header.
			continue
		}

		if isRow {
			if bank.Columns == 0 {
				bank.Columns = len(tokens)
			}

			bank.Acc = append(bank.Acc, values[0])
			bank.Jerk = append(bank.Jerk, values[1])

			continue
		}

		if anyNumeric {
			return nil, &BankError{
				Type:   ErrorTypeFormat,
				Line:   lineNo,
				Tokens: len(tokens),
				Message: fmt.Sprintf(
					"invalid data line with %d tokens, expected exactly 2 numeric columns (a, j): %s",
					len(tokens),
					line,
				),
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, &BankError{
			Type:    ErrorTypeRead,
			Line:    lineNo + 1,
			Message: "reading template bank",
			Err:     err,
		}
	}

	return bank, nil
}

// isSeparator reports whether line is empty or made only of dashes and spaces.
func isSeparator(line string) bool {
	for _, c := range line {
		if c != '-' && c != ' ' && c != '\t' {
			return false
		}
	}

	return true
}
