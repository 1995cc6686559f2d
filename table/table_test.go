// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package table

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReindex(t *testing.T) {

	src := &Table{
		IndexName: "id",
		Columns:   []string{"x", "y"},
		Index:     []string{"a", "b"},
		Data:      [][]string{{"1", "2"}, {"3", "4"}},
	}

	got := Reindex(src, []string{"z", "y"}, "NA")
	assert.Equal(t, []string{"z", "y"}, got.Columns)
	assert.Equal(t, []string{"a", "b"}, got.Index)
	assert.Equal(t, [][]string{{"NA", "2"}, {"NA", "4"}}, got.Data)

	// The source is untouched.
	assert.Equal(t, []string{"x", "y"}, src.Columns)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, src.Data)

	got.Data[0][1] = "changed"
	got.Index[0] = "changed"
	assert.Equal(t, "2", src.Data[0][1])
	assert.Equal(t, "a", src.Index[0])
}

func TestValidateHeaders(t *testing.T) {

	assert.NoError(t, ValidateHeaders([]string{"x", "y"}))

	for _, h := range [][]string{nil, {}, {"x", "x"}, {""}} {
		err := ValidateHeaders(h)
		assert.True(t, errors.Is(err, ErrInvalidHeaderSpec), "%v", h)
	}
}

func TestReadTable(t *testing.T) {

	dir := t.TempDir()
	name := writeFile(t, dir, "a.tsv", "# comment\nx\tid\ty\n1\ta\n2\tb\t3\n")

	cfg := Config{IndexName: "id", MissingValue: "NA"}
	tab, err := ReadTable(name, cfg, ReadOptions{Comment: '#'}, -1)
	require.NoError(t, err)
	assert.Equal(t, "id", tab.IndexName)
	assert.Equal(t, []string{"x", "y"}, tab.Columns)
	assert.Equal(t, []string{"a", "b"}, tab.Index)
	assert.Equal(t, [][]string{{"1", "NA"}, {"2", "3"}}, tab.Data)
	assert.Equal(t, 1, tab.ColumnIndex("y"))
	assert.Equal(t, -1, tab.ColumnIndex("id"))

	tab, err = ReadTable(name, cfg, ReadOptions{Comment: '#'}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, tab.NumRows())
}

func TestReadTableErrors(t *testing.T) {

	dir := t.TempDir()

	_, err := ReadTable(filepath.Join(dir, "none.tsv"), Config{}, ReadOptions{}, -1)
	assert.True(t, errors.Is(err, ErrInputNotFound), err)

	cases := map[string]string{
		"long.tsv":  "id\tx\n1\t2\t3\n",
		"empty.tsv": "",
		"dup.tsv":   "id\tx\tx\n1\t2\t3\n",
	}
	for name, content := range cases {
		_, err := ReadTable(writeFile(t, dir, name, content), Config{}, ReadOptions{}, -1)
		assert.True(t, errors.Is(err, ErrMalformedTable), "%s: %v", name, err)
	}

	name := writeFile(t, dir, "a.tsv", "id\tx\n1\t2\n")
	_, err = ReadTable(name, Config{IndexName: "bin"}, ReadOptions{}, -1)
	assert.True(t, errors.Is(err, ErrMalformedTable), err)
}

func TestWriteFileOptions(t *testing.T) {

	dir := t.TempDir()
	tab := &Table{
		IndexName: "id",
		Columns:   []string{"x"},
		Index:     []string{"a"},
		Data:      [][]string{{"1"}},
	}

	out := filepath.Join(dir, "out.csv")
	require.NoError(t, WriteFile(out, tab, Config{Sep: ','}, WriteOptions{IndexLabel: "Bin"}))
	assert.Equal(t, []string{"Bin,x", "a,1"}, readLines(t, out))

	require.NoError(t, WriteFile(out, tab, Config{}, WriteOptions{OmitIndex: true}))
	assert.Equal(t, []string{"x", "1"}, readLines(t, out))
}

func TestAxisString(t *testing.T) {
	assert.Equal(t, "rows", Rows.String())
	assert.Equal(t, "columns", Columns.String())
}
