// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HamzaMbareche/MAGs-IBD/genomes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (string, []string) {

	dir := t.TempDir()
	bins := filepath.Join(dir, "bins")
	require.NoError(t, os.MkdirAll(bins, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bins, "S1_bin_1.fasta"), []byte(">k1\nACGT\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0755))

	argv := []string{
		"-Genomes=" + bins,
		"-OutputDir=" + filepath.Join(dir, "genomes"),
		"-MapfileGenomes=" + filepath.Join(dir, "old2new.tsv"),
		"-MapfileContigs=" + filepath.Join(dir, "contig2genome.tsv"),
		"-LogDir=" + filepath.Join(dir, "logs"),
	}

	return dir, argv
}

func TestRunLinksGenomes(t *testing.T) {

	dir, argv := setup(t)
	links := filepath.Join(dir, "links")

	require.NoError(t, run(append(argv, "-LinkDir="+links)))

	b, err := os.ReadFile(filepath.Join(links, "MAG1.fasta"))
	require.NoError(t, err)
	assert.Equal(t, ">MAG1_1\nACGT\n", string(b))
	assert.FileExists(t, filepath.Join(dir, "logs", "atlas_rename_genomes.log"))
}

func TestRunFailureIsLogged(t *testing.T) {

	dir, argv := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "genomes"), 0755))

	err := run(argv)
	assert.True(t, errors.Is(err, genomes.ErrOutputExists), err)

	var se *stageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "renameGenomes", se.stage)

	b, rerr := os.ReadFile(filepath.Join(dir, "logs", "atlas_rename_genomes.log"))
	require.NoError(t, rerr)
	assert.Contains(t, string(b), "output directory exists")
}

func TestRunMissingFlag(t *testing.T) {
	err := run([]string{"-Genomes=x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OutputDir not provided")
}
