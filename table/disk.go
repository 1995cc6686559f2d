// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package table

import (
	"github.com/pkg/errors"
)

// DiscoverHeaders returns the union of the column names of the
// inputs, in order of first appearance.  Only the header and the
// first cfg.SampleRows rows of every table are read, as text.
func DiscoverHeaders(inputs []string, cfg Config, ro ReadOptions) ([]string, error) {

	var headers []string
	seen := make(map[string]bool)
	for _, name := range inputs {
		r, err := openReader(name, cfg, ro)
		if err != nil {
			return nil, err
		}
		_, err = r.read(cfg.sampleRows())
		r.Close()
		if err != nil {
			return nil, err
		}

		for _, c := range r.columns() {
			if !seen[c] {
				seen[c] = true
				headers = append(headers, c)
			}
		}
	}

	return headers, nil
}

// ConcatDiskBased appends the inputs one after the other to the
// output, each reindexed onto the common header.  Only one input
// table is held in memory at a time.  Rows keep their arrival order.
//
// When job.Headers is nil the header is discovered from the inputs.
// Columns of an input that are not in the header are dropped.  An
// explicit header list must name at least one column, an empty list
// fails with ErrInvalidHeaderSpec instead of writing an index only
// table.
//
// The output file is only created after the first input was read.
func ConcatDiskBased(job Job, cfg Config) error {

	if job.Axis != Rows {
		return errors.Wrapf(ErrUnsupportedAxis, "axis %s", job.Axis)
	}
	if len(job.Inputs) == 0 {
		return errors.Wrap(ErrInputNotFound, "no input tables")
	}

	logger := cfg.logger()

	headers := job.Headers
	if headers != nil {
		if err := ValidateHeaders(headers); err != nil {
			return err
		}
		headers = append([]string(nil), headers...)
	} else {
		var err error
		headers, err = DiscoverHeaders(job.Inputs, cfg, job.Read)
		if err != nil {
			return err
		}
		logger.Printf("Inferred headers %v", headers)
	}

	var dups *dupFilter
	if cfg.CheckDuplicates {
		dups = newDupFilter(cfg.DuplicateCapacity)
	}

	var out *output

	progress := cfg.progress()
	progress.Start(len(job.Inputs))

	logger.Printf("Read and append table by table")
	for i, name := range job.Inputs {
		progress.Step(name)

		t, err := ReadTable(name, cfg, job.Read, -1)
		if err != nil {
			if out != nil {
				out.abort()
			}
			return err
		}
		t = Reindex(t, headers, cfg.MissingValue)

		if i == 0 {
			out, err = createOutput(job.Output, cfg, job.Write)
			if err != nil {
				return err
			}
			if err := out.writeHeader(t.IndexName, headers); err != nil {
				out.abort()
				return errors.Wrap(err, job.Output)
			}
		}

		if dups != nil {
			for _, id := range t.Index {
				if dups.seen(id) {
					logger.Printf("%s: identifier %q was probably written before", name, id)
				}
			}
		}

		if err := out.writeRows(t); err != nil {
			out.abort()
			return err
		}
		logger.Printf("Appended %d rows from %s", t.NumRows(), name)
	}

	if err := out.commit(); err != nil {
		return err
	}
	progress.Done()

	return nil
}
