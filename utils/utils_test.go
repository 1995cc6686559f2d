// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package utils

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenNamesForRange(t *testing.T) {
	assert.Equal(t, []string{"MAG1", "MAG2", "MAG3"}, GenNamesForRange(3, "MAG", 1))
	assert.Equal(t, []string{"S09", "S10"}, GenNamesForRange(10, "S", 9)[:2])
	assert.Empty(t, GenNamesForRange(0, "MAG", 1))
}

func TestSimplifyPath(t *testing.T) {
	for in, want := range map[string]string{
		"a/b/sample1.tsv":    "sample1",
		"sample1.tsv.gz":     "sample1",
		"x/sample1.fastq.sz": "sample1",
		"noext":              "noext",
		"dir/archive.gz":     "archive",
	} {
		assert.Equal(t, want, SimplifyPath(in), in)
	}
}

func TestCompressedRoundTrip(t *testing.T) {

	dir := t.TempDir()
	for _, name := range []string{"plain.txt", "zipped.txt.gz", "snappy.txt.sz"} {
		fname := filepath.Join(dir, name)
		fid, err := os.Create(fname)
		require.NoError(t, err)
		wtr := CompressWriter(fid, fname)
		_, err = io.WriteString(wtr, "id\tx\n1\t2\n")
		require.NoError(t, err)
		require.NoError(t, wtr.Close())
		require.NoError(t, fid.Close())

		rc, err := OpenMaybeCompressed(fname)
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "id\tx\n1\t2\n", string(b), name)
	}

	_, err := OpenMaybeCompressed(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestCatFiles(t *testing.T) {

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("one\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("two\n"), 0644))

	out := filepath.Join(dir, "out.txt")
	require.NoError(t, CatFiles([]string{a, b}, out, false))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(got))

	gz := filepath.Join(dir, "out.txt.gz")
	require.NoError(t, CatFiles([]string{a, b}, gz, true))
	rc, err := OpenMaybeCompressed(gz)
	require.NoError(t, err)
	defer rc.Close()
	got, err = io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(got))

	assert.Error(t, CatFiles([]string{a, filepath.Join(dir, "none")}, out, false))
}

func TestReadConfig(t *testing.T) {

	dir := t.TempDir()
	files := map[string]string{
		"run.json": `{"workflow": "qc", "jobs": 4, "snakemake_args": ["--keep-going"], "keep_partial": true}`,
		"run.toml": "workflow = \"qc\"\njobs = 4\nsnakemake_args = [\"--keep-going\"]\nkeep_partial = true\n",
		"run.yaml": "workflow: qc\njobs: 4\nsnakemake_args:\n  - --keep-going\nkeep_partial: true\n",
	}
	for name, content := range files {
		fname := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(fname, []byte(content), 0644))

		config, err := ReadConfig(fname)
		require.NoError(t, err, name)
		assert.Equal(t, "qc", config.Workflow, name)
		assert.Equal(t, 4, config.Jobs, name)
		assert.Equal(t, []string{"--keep-going"}, config.SnakemakeArgs, name)
		assert.True(t, config.KeepPartial, name)
	}

	_, err := ReadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSaveConfig(t *testing.T) {

	dir := t.TempDir()
	config := &Config{Workflow: "binning", Jobs: 2, LogDir: dir, MissingValue: "NA"}

	fname, err := SaveConfig(config)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.json"), fname)

	back, err := ReadConfig(fname)
	require.NoError(t, err)
	assert.Equal(t, "binning", back.Workflow)
	assert.Equal(t, 2, back.Jobs)
	assert.Equal(t, dir, back.LogDir)
	assert.Equal(t, "NA", back.MissingValue)
}

func TestReadDatabaseDir(t *testing.T) {

	dir := t.TempDir()
	fname := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(fname, []byte("database_dir: /data/db\n"), 0644))
	db, err := ReadDatabaseDir(fname)
	require.NoError(t, err)
	assert.Equal(t, "/data/db", db)

	require.NoError(t, os.WriteFile(fname, []byte("threads: 2\n"), 0644))
	_, err = ReadDatabaseDir(fname)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {

	dir := t.TempDir()
	logger, fid, err := NewLogger(dir, "x.log")
	require.NoError(t, err)
	logger.Print("hello")
	require.NoError(t, fid.Close())

	b, err := os.ReadFile(filepath.Join(dir, "x.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")
}

func TestSymlinkRelative(t *testing.T) {

	dir := t.TempDir()
	in := filepath.Join(dir, "genomes", "genomes")
	out := filepath.Join(dir, "links")
	require.NoError(t, os.MkdirAll(in, 0755))
	require.NoError(t, os.MkdirAll(out, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "MAG1.fasta"), []byte(">c\nACGT\n"), 0644))

	require.NoError(t, SymlinkRelative([]string{"MAG1.fasta"}, in, out))

	target, err := os.Readlink(filepath.Join(out, "MAG1.fasta"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", "genomes", "genomes", "MAG1.fasta"), target)

	b, err := os.ReadFile(filepath.Join(out, "MAG1.fasta"))
	require.NoError(t, err)
	assert.Equal(t, ">c\nACGT\n", string(b))

	// Existing links are not replaced.
	assert.Error(t, SymlinkRelative([]string{"MAG1.fasta"}, in, out))
}
