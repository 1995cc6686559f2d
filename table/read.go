// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package table

import (
	"encoding/csv"
	"io"

	"github.com/HamzaMbareche/MAGs-IBD/utils"
	"github.com/pkg/errors"
)

// ReadOptions adjust how the input tables of a job are parsed.
type ReadOptions struct {

	// Lines starting with this character are skipped.
	Comment rune

	// Number of records skipped before the header row.
	SkipRows int
}

// reader parses one delimited table.
type reader struct {
	name    string
	rc      io.ReadCloser
	csv     *csv.Reader
	missing string

	indexPos int
	header   []string
}

func openReader(name string, cfg Config, ro ReadOptions) (*reader, error) {

	rc, err := utils.OpenMaybeCompressed(name)
	if err != nil {
		return nil, errors.Wrapf(ErrInputNotFound, "%s (%v)", name, err)
	}

	cr := csv.NewReader(rc)
	cr.Comma = cfg.sep()
	cr.Comment = ro.Comment
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	r := &reader{
		name:    name,
		rc:      rc,
		csv:     cr,
		missing: cfg.MissingValue,
	}

	if err := r.readHeader(cfg, ro); err != nil {
		rc.Close()
		return nil, err
	}

	return r, nil
}

func (r *reader) readHeader(cfg Config, ro ReadOptions) error {

	for k := 0; k < ro.SkipRows; k++ {
		if _, err := r.csv.Read(); err != nil {
			return errors.Wrapf(ErrMalformedTable, "%s: skipping rows: %v", r.name, err)
		}
	}

	header, err := r.csv.Read()
	if err == io.EOF {
		return errors.Wrapf(ErrMalformedTable, "%s: no header row", r.name)
	} else if err != nil {
		return errors.Wrapf(ErrMalformedTable, "%s: %v", r.name, err)
	}

	r.indexPos = cfg.IndexCol
	if cfg.IndexName != "" {
		r.indexPos = -1
		for i, h := range header {
			if h == cfg.IndexName {
				r.indexPos = i
				break
			}
		}
		if r.indexPos < 0 {
			return errors.Wrapf(ErrMalformedTable, "%s: index column %q not found", r.name, cfg.IndexName)
		}
	}
	if r.indexPos < 0 || r.indexPos >= len(header) {
		return errors.Wrapf(ErrMalformedTable, "%s: index column %d out of range", r.name, r.indexPos)
	}

	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if i == r.indexPos {
			continue
		}
		if seen[h] {
			return errors.Wrapf(ErrMalformedTable, "%s: duplicate column %q", r.name, h)
		}
		seen[h] = true
	}

	r.header = header
	return nil
}

// columns returns the non-index column names.
func (r *reader) columns() []string {
	cols := make([]string, 0, len(r.header)-1)
	for i, h := range r.header {
		if i != r.indexPos {
			cols = append(cols, h)
		}
	}
	return cols
}

// read reads at most nrows data rows, all rows when nrows < 0.
func (r *reader) read(nrows int) (*Table, error) {

	t := &Table{
		IndexName: r.header[r.indexPos],
		Columns:   r.columns(),
	}

	ncol := len(r.header)
	for nrows < 0 || t.NumRows() < nrows {
		rec, err := r.csv.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(ErrMalformedTable, "%s: %v", r.name, err)
		}

		if len(rec) > ncol {
			line, _ := r.csv.FieldPos(0)
			return nil, errors.Wrapf(ErrMalformedTable, "%s: line %d has %d fields, header has %d",
				r.name, line, len(rec), ncol)
		}

		var id string
		if r.indexPos < len(rec) {
			id = rec[r.indexPos]
		} else {
			id = r.missing
		}

		row := make([]string, 0, ncol-1)
		for i := 0; i < ncol; i++ {
			if i == r.indexPos {
				continue
			}
			if i < len(rec) {
				row = append(row, rec[i])
			} else {
				row = append(row, r.missing)
			}
		}

		t.Index = append(t.Index, id)
		t.Data = append(t.Data, row)
	}

	return t, nil
}

func (r *reader) Close() error {
	return r.rc.Close()
}

// ReadTable reads the table in the named file.  At most nrows data
// rows are read, all of them when nrows is negative.
func ReadTable(name string, cfg Config, ro ReadOptions, nrows int) (*Table, error) {

	r, err := openReader(name, cfg, ro)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.read(nrows)
}
