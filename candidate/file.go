// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package candidate

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Columns is the header written by Write, in order.
var Columns = []string{"id", "dm", "dm_idx", "acc", "jerk", "nh", "snr", "freq", "n", "a1", "phi"}

// Combines multiple closers to ensure all resources are released.
type multiReadCloser struct {
	io.ReadCloser
	underlying io.Closer
}

func (r *multiReadCloser) Close() error {
	return errors.Join(
		r.ReadCloser.Close(),
		r.underlying.Close(),
	)
}

func isGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// open returns a reader for path, decompressing it when it ends in .gz.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening candidates file: %w", err)
	}

	if !isGzip(path) {
		return f, nil
	}

	gr, err := gzip.NewReader(f)
	if err != nil {
		err1 := f.Close()

		return nil, errors.Join(fmt.Errorf("creating gzip reader: %w", err), err1)
	}

	return &multiReadCloser{gr, f}, nil
}

// ReadFile loads the candidates stored at path.
func ReadFile(path string) (ret []*Candidate, err error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := r.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing candidates file: %w", cerr))
		}
	}()

	ret, err = Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ret, nil
}

// Read parses a CSV candidate table. The first row must be a header naming
// a subset of Columns in any order; absent columns are left at zero and an
// absent id column is filled with the row number.
func Read(r io.Reader) ([]*Candidate, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []*Candidate{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))

	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if !isColumn(name) {
			return nil, fmt.Errorf("unknown column %q", h)
		}

		index[name] = i
	}

	if _, ok := index["freq"]; !ok {
		return nil, errors.New("missing required column \"freq\"")
	}

	_, hasID := index["id"]

	var ret []*Candidate

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}

		line, _ := cr.FieldPos(0)

		if len(record) != len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(record))
		}

		c, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if !hasID {
			c.ID = int64(len(ret))
		}

		ret = append(ret, c)
	}

	if ret == nil {
		ret = []*Candidate{}
	}

	return ret, nil
}

func isColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}

	return false
}

func parseRecord(record []string, index map[string]int) (*Candidate, error) {
	c := &Candidate{}

	floats := []struct {
		name string
		dest *float64
	}{
		{"dm", &c.DM},
		{"acc", &c.Acc},
		{"jerk", &c.Jerk},
		{"snr", &c.SNR},
		{"freq", &c.Freq},
		{"n", &c.N},
		{"a1", &c.A1},
		{"phi", &c.Phi},
	}

	for _, f := range floats {
		i, ok := index[f.name]
		if !ok {
			continue
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.name, err)
		}

		*f.dest = v
	}

	ints := []struct {
		name string
		dest *int
	}{
		{"dm_idx", &c.DMIdx},
		{"nh", &c.NH},
	}

	for _, f := range ints {
		i, ok := index[f.name]
		if !ok {
			continue
		}

		v, err := strconv.Atoi(strings.TrimSpace(record[i]))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.name, err)
		}

		*f.dest = v
	}

	if i, ok := index["id"]; ok {
		v, err := strconv.ParseInt(strings.TrimSpace(record[i]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing id: %w", err)
		}

		c.ID = v
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Write encodes cands as a CSV table with the Columns header.
func Write(w io.Writer, cands []*Candidate) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, c := range cands {
		record := []string{
			strconv.FormatInt(c.ID, 10),
			formatFloat(c.DM),
			strconv.Itoa(c.DMIdx),
			formatFloat(c.Acc),
			formatFloat(c.Jerk),
			strconv.Itoa(c.NH),
			formatFloat(c.SNR),
			formatFloat(c.Freq),
			formatFloat(c.N),
			formatFloat(c.A1),
			formatFloat(c.Phi),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing candidate %d: %w", c.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteRelated encodes the provenance links of cands as rows of
// (representative id, position, related id).
func WriteRelated(w io.Writer, cands []*Candidate) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"id", "position", "related_id"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, c := range cands {
		for i, r := range c.Related {
			record := []string{
				strconv.FormatInt(c.ID, 10),
				strconv.Itoa(i),
				strconv.FormatInt(r.ID, 10),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("writing related of %d: %w", c.ID, err)
			}
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteFile stores cands at path using encode, gzip compressing the output
// when path ends in .gz.
func WriteFile(path string, cands []*Candidate, encode func(io.Writer, []*Candidate) error) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("creating candidates file: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing file: %w", cerr))
		}
	}()

	if !isGzip(path) {
		return encode(f, cands)
	}

	gw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}

	defer func() {
		if cerr := gw.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing gzip writer: %w", cerr))
		}
	}()

	return encode(gw, cands)
}
