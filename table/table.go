// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

// Package table reads, reindexes and concatenates delimited text
// tables keyed by a row identifier column.
//
// Two concatenation strategies are provided.  ConcatInMemory loads
// every input, stacks or joins them and writes the result sorted by
// row identifier.  ConcatDiskBased only ever holds one input table in
// memory: it discovers (or is given) the common header, then reindexes
// and appends the tables one after the other in arrival order.  The
// disk based output is therefore not sorted.
//
// All cell values are handled as text, so that identifiers and
// values are never reformatted between input and output.
package table

import (
	"io"
	"log"

	"github.com/pkg/errors"
)

var (
	// ErrInputNotFound is returned when an input table cannot be
	// opened.
	ErrInputNotFound = errors.New("input table not found")

	// ErrInvalidHeaderSpec is returned for an explicit header list
	// that is empty or contains blank or repeated column names.
	ErrInvalidHeaderSpec = errors.New("headers should be a list of distinct column names")

	// ErrSchemaConflict is returned when column joining tables
	// whose row identifiers are not unique.
	ErrSchemaConflict = errors.New("duplicate row identifiers, cannot join on columns")

	// ErrIncompatibleOptions is returned for option combinations
	// that the selected strategy cannot honour.
	ErrIncompatibleOptions = errors.New("incompatible merge options")

	// ErrUnsupportedAxis is returned when the disk based strategy
	// is asked to join on columns.  It matches ErrIncompatibleOptions
	// under errors.Is.
	ErrUnsupportedAxis = errors.Wrap(ErrIncompatibleOptions, "disk based concatenation can only append rows")

	// ErrMalformedTable is returned for tables that cannot be
	// parsed, e.g. rows with more fields than the header.
	ErrMalformedTable = errors.New("malformed table")
)

// Axis selects the direction of a concatenation.
type Axis int

const (
	// Rows stacks tables on top of each other, aligning by column
	// name.
	Rows Axis = iota

	// Columns places tables side by side, aligning by row
	// identifier.
	Columns
)

func (a Axis) String() string {
	switch a {
	case Rows:
		return "rows"
	case Columns:
		return "columns"
	default:
		return "unknown"
	}
}

// Coercion controls how row identifiers are compared when the in
// memory strategy sorts its output.
type Coercion int

const (
	// CoerceAuto compares identifiers as numbers when every
	// identifier parses as one, and as text otherwise.
	CoerceAuto Coercion = iota

	// CoerceNone always compares identifiers as text.
	CoerceNone
)

// Progress observes the sequential pass of the disk based strategy.
type Progress interface {
	// Start is called once with the number of input tables.
	Start(total int)

	// Step is called before each table is read.
	Step(path string)

	// Done is called after the last table was written.
	Done()
}

// NoProgress is a Progress that does nothing.
type NoProgress struct{}

func (NoProgress) Start(int)   {}
func (NoProgress) Step(string) {}
func (NoProgress) Done()       {}

// Config holds the settings shared by all tables of a merge job.
// The zero value is ready to use.
type Config struct {

	// Field separator, a tab when zero.
	Sep rune

	// Position of the row identifier column, used when IndexName
	// is empty.
	IndexCol int

	// Name of the row identifier column.
	IndexName string

	// Written for cells whose column is absent from the source
	// table.
	MissingValue string

	// How row identifiers are ordered by the in memory strategy.
	Coercion Coercion

	// Number of data rows read per table during header discovery,
	// 2 when zero.
	SampleRows int

	// If true, a failed write leaves the partially written output
	// file in place.  Otherwise output goes to a temporary file
	// that is renamed on success and removed on failure.
	KeepPartial bool

	// If true, the disk based strategy logs row identifiers that
	// were probably already written by an earlier table.
	CheckDuplicates bool

	// Expected number of distinct identifiers, used to size the
	// duplicate filter.  Defaults to one million.
	DuplicateCapacity uint

	// Progress receives the sequential pass events.
	Progress Progress

	// Logger receives informational messages.
	Logger *log.Logger
}

func (c Config) sep() rune {
	if c.Sep == 0 {
		return '\t'
	}
	return c.Sep
}

func (c Config) sampleRows() int {
	if c.SampleRows <= 0 {
		return 2
	}
	return c.SampleRows
}

func (c Config) progress() Progress {
	if c.Progress == nil {
		return NoProgress{}
	}
	return c.Progress
}

func (c Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return c.Logger
}

// Table is a row identifier indexed table of text values.  Every
// element of Data holds one value per entry of Columns.
type Table struct {
	IndexName string
	Columns   []string
	Index     []string
	Data      [][]string
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Index)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Reindex returns a new table whose columns are exactly columns.
// Columns missing from t are filled with missing, columns of t that
// are not listed are dropped.  t is not modified.
func Reindex(t *Table, columns []string, missing string) *Table {

	pos := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := pos[c]; !ok {
			pos[c] = i
		}
	}

	src := make([]int, len(columns))
	for j, c := range columns {
		if i, ok := pos[c]; ok {
			src[j] = i
		} else {
			src[j] = -1
		}
	}

	out := &Table{
		IndexName: t.IndexName,
		Columns:   append([]string(nil), columns...),
		Index:     append([]string(nil), t.Index...),
		Data:      make([][]string, len(t.Data)),
	}

	for r, row := range t.Data {
		nrow := make([]string, len(columns))
		for j, i := range src {
			if i < 0 || i >= len(row) {
				nrow[j] = missing
			} else {
				nrow[j] = row[i]
			}
		}
		out.Data[r] = nrow
	}

	return out
}

// ValidateHeaders checks an explicit header list.
func ValidateHeaders(headers []string) error {

	if len(headers) == 0 {
		return errors.Wrap(ErrInvalidHeaderSpec, "empty header list")
	}

	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h == "" {
			return errors.Wrap(ErrInvalidHeaderSpec, "blank column name")
		}
		if seen[h] {
			return errors.Wrapf(ErrInvalidHeaderSpec, "column %q listed twice", h)
		}
		seen[h] = true
	}

	return nil
}
