// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package table

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/HamzaMbareche/MAGs-IBD/utils"
	"github.com/pkg/errors"
)

// WriteOptions adjust how the output table is written.
type WriteOptions struct {

	// Do not write the row identifier column.
	OmitIndex bool

	// Header of the row identifier column, the index name of the
	// table when empty.
	IndexLabel string
}

// output is a table file under construction.  Unless keepPartial is
// set, rows go to a temporary file next to the final path, which is
// renamed by commit and removed by abort.
type output struct {
	name        string
	tmpname     string
	keepPartial bool

	fid *os.File
	cw  io.WriteCloser
	csv *csv.Writer
	wo  WriteOptions
}

func createOutput(name string, cfg Config, wo WriteOptions) (*output, error) {

	o := &output{
		name:        name,
		keepPartial: cfg.KeepPartial,
		wo:          wo,
	}

	var err error
	if cfg.KeepPartial {
		o.fid, err = os.Create(name)
	} else {
		dir, base := filepath.Split(name)
		if dir == "" {
			dir = "."
		}
		o.fid, err = os.CreateTemp(dir, "."+base+".tmp*")
		if err == nil {
			o.tmpname = o.fid.Name()
			err = o.fid.Chmod(0644)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	o.cw = utils.CompressWriter(o.fid, name)
	o.csv = csv.NewWriter(o.cw)
	o.csv.Comma = cfg.sep()

	return o, nil
}

func (o *output) writeHeader(indexName string, columns []string) error {

	rec := make([]string, 0, len(columns)+1)
	if !o.wo.OmitIndex {
		if o.wo.IndexLabel != "" {
			indexName = o.wo.IndexLabel
		}
		rec = append(rec, indexName)
	}
	rec = append(rec, columns...)

	return o.csv.Write(rec)
}

func (o *output) writeRows(t *Table) error {

	rec := make([]string, 0, len(t.Columns)+1)
	for i, row := range t.Data {
		rec = rec[:0]
		if !o.wo.OmitIndex {
			rec = append(rec, t.Index[i])
		}
		rec = append(rec, row...)
		if err := o.csv.Write(rec); err != nil {
			return errors.Wrap(err, o.name)
		}
	}

	return nil
}

func (o *output) close() error {

	o.csv.Flush()
	err := o.csv.Error()
	if cerr := o.cw.Close(); err == nil {
		err = cerr
	}
	if cerr := o.fid.Close(); err == nil {
		err = cerr
	}

	return err
}

// commit flushes the output and moves it to its final location.
func (o *output) commit() error {

	if err := o.close(); err != nil {
		o.abort()
		return errors.Wrap(err, o.name)
	}

	if o.tmpname != "" {
		if err := os.Rename(o.tmpname, o.name); err != nil {
			os.Remove(o.tmpname)
			return errors.Wrap(err, o.name)
		}
	}

	return nil
}

// abort closes the output after a failure.  The temporary file is
// removed, a partial output written in place is flushed and kept.
func (o *output) abort() {
	o.close()
	if o.tmpname != "" {
		os.Remove(o.tmpname)
	}
}

// WriteFile writes t to the named file, compressed according to its
// extension.
func WriteFile(name string, t *Table, cfg Config, wo WriteOptions) error {

	o, err := createOutput(name, cfg, wo)
	if err != nil {
		return err
	}

	if err := o.writeHeader(t.IndexName, t.Columns); err != nil {
		o.abort()
		return errors.Wrap(err, name)
	}

	if err := o.writeRows(t); err != nil {
		o.abort()
		return err
	}

	return o.commit()
}
