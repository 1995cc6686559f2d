// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package table

import (
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// JoinMode decides which columns (or identifiers) survive an in
// memory concatenation.
type JoinMode int

const (
	// JoinOuter keeps the union.
	JoinOuter JoinMode = iota

	// JoinInner keeps the intersection.
	JoinInner
)

// ConcatOptions are only understood by the in memory strategy.
type ConcatOptions struct {
	Join JoinMode

	// Sort the output columns by name.
	SortColumns bool
}

// Job describes one merge.
type Job struct {

	// Input table paths, in arrival order.
	Inputs []string

	// Output table path.
	Output string

	Axis Axis

	// Use the disk based strategy.
	DiskBased bool

	// Explicit output columns for the disk based strategy.  When
	// nil the columns are discovered from the inputs.
	Headers []string

	// In memory concatenation options.
	Concat *ConcatOptions

	Read  ReadOptions
	Write WriteOptions
}

// Concat runs the job with the strategy it selects.
func Concat(job Job, cfg Config) error {

	if len(job.Inputs) == 0 {
		return errors.Wrap(ErrInputNotFound, "no input tables")
	}

	if !job.DiskBased {
		return ConcatInMemory(job, cfg)
	}

	if job.Concat != nil {
		return errors.Wrapf(ErrIncompatibleOptions,
			"cannot handle concat options by disk based append, got %+v", *job.Concat)
	}

	return ConcatDiskBased(job, cfg)
}

// ConcatInMemory loads all inputs, concatenates them along job.Axis,
// sorts the rows by identifier and writes the result.  No output is
// created if an input cannot be read.
func ConcatInMemory(job Job, cfg Config) error {

	opts := ConcatOptions{}
	if job.Concat != nil {
		opts = *job.Concat
	}

	var tables []*Table
	for _, name := range job.Inputs {
		t, err := ReadTable(name, cfg, job.Read, -1)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}

	var out *Table
	var err error
	switch job.Axis {
	case Rows:
		out = stackRows(tables, opts, cfg.MissingValue)
	case Columns:
		out, err = joinColumns(tables, job.Inputs, opts, cfg.MissingValue)
		if err != nil {
			return err
		}
	default:
		return errors.Wrapf(ErrIncompatibleOptions, "axis %d", job.Axis)
	}
	tables = nil

	sortByIndex(out, cfg.Coercion)

	cfg.logger().Printf("Writing %d rows and %d columns to %s", out.NumRows(), len(out.Columns), job.Output)

	return WriteFile(job.Output, out, cfg, job.Write)
}

// stackRows appends the rows of all tables, aligned by column name.
func stackRows(tables []*Table, opts ConcatOptions, missing string) *Table {

	var columns []string
	if opts.Join == JoinInner {
		columns = intersect(tables)
	} else {
		columns = union(tables)
	}
	if opts.SortColumns {
		sort.Strings(columns)
	}

	out := &Table{
		IndexName: commonIndexName(tables),
		Columns:   columns,
	}
	for _, t := range tables {
		r := Reindex(t, columns, missing)
		out.Index = append(out.Index, r.Index...)
		out.Data = append(out.Data, r.Data...)
	}

	return out
}

// joinColumns places the tables side by side, aligned by row
// identifier.
func joinColumns(tables []*Table, names []string, opts ConcatOptions, missing string) (*Table, error) {

	pos := make([]map[string]int, len(tables))
	for k, t := range tables {
		pos[k] = make(map[string]int, t.NumRows())
		for i, id := range t.Index {
			if _, ok := pos[k][id]; ok {
				return nil, errors.Wrapf(ErrSchemaConflict, "%s: identifier %q", names[k], id)
			}
			pos[k][id] = i
		}
	}

	var index []string
	seen := make(map[string]bool)
	for k, t := range tables {
		for _, id := range t.Index {
			if seen[id] {
				continue
			}
			if opts.Join == JoinInner {
				all := true
				for j := range tables {
					if _, ok := pos[j][id]; !ok {
						all = false
						break
					}
				}
				if !all {
					continue
				}
			}
			seen[id] = true
			index = append(index, id)
		}
		if opts.Join == JoinInner && k == 0 {
			break
		}
	}

	out := &Table{
		IndexName: commonIndexName(tables),
		Index:     index,
		Data:      make([][]string, len(index)),
	}
	for _, t := range tables {
		out.Columns = append(out.Columns, t.Columns...)
	}

	for r, id := range index {
		row := make([]string, 0, len(out.Columns))
		for k, t := range tables {
			if i, ok := pos[k][id]; ok {
				row = append(row, t.Data[i]...)
			} else {
				for range t.Columns {
					row = append(row, missing)
				}
			}
		}
		out.Data[r] = row
	}

	if opts.SortColumns {
		sortColumns(out)
	}

	return out, nil
}

// sortColumns reorders the columns of t by name, keeping columns
// with equal names in their original order.
func sortColumns(t *Table) {

	perm := make([]int, len(t.Columns))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return t.Columns[perm[i]] < t.Columns[perm[j]]
	})

	columns := make([]string, len(perm))
	for j, i := range perm {
		columns[j] = t.Columns[i]
	}
	t.Columns = columns

	for r, row := range t.Data {
		nrow := make([]string, len(perm))
		for j, i := range perm {
			nrow[j] = row[i]
		}
		t.Data[r] = nrow
	}
}

// union returns the column names of all tables in order of first
// appearance.
func union(tables []*Table) []string {

	var columns []string
	seen := make(map[string]bool)
	for _, t := range tables {
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}

	return columns
}

// intersect returns the column names common to all tables, in the
// order of the first table.
func intersect(tables []*Table) []string {

	if len(tables) == 0 {
		return nil
	}

	count := make(map[string]int)
	for _, t := range tables {
		for _, c := range t.Columns {
			count[c]++
		}
	}

	var columns []string
	for _, c := range tables[0].Columns {
		if count[c] == len(tables) {
			columns = append(columns, c)
		}
	}

	return columns
}

func commonIndexName(tables []*Table) string {

	if len(tables) == 0 {
		return ""
	}
	name := tables[0].IndexName
	for _, t := range tables[1:] {
		if t.IndexName != name {
			return ""
		}
	}

	return name
}

// sortByIndex sorts the rows of t by identifier.  Rows with equal
// identifiers keep their arrival order.
func sortByIndex(t *Table, coercion Coercion) {

	n := t.NumRows()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	var less func(a, b int) bool
	if nums, ok := numericIndex(t.Index, coercion); ok {
		less = func(a, b int) bool { return nums[a] < nums[b] }
	} else {
		less = func(a, b int) bool { return t.Index[a] < t.Index[b] }
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return less(perm[i], perm[j])
	})

	index := make([]string, n)
	data := make([][]string, n)
	for j, i := range perm {
		index[j] = t.Index[i]
		data[j] = t.Data[i]
	}
	t.Index = index
	t.Data = data
}

func numericIndex(index []string, coercion Coercion) ([]float64, bool) {

	if coercion == CoerceNone {
		return nil, false
	}

	nums := make([]float64, len(index))
	for i, id := range index {
		x, err := strconv.ParseFloat(id, 64)
		if err != nil || math.IsNaN(x) {
			return nil, false
		}
		nums[i] = x
	}

	return nums, true
}
