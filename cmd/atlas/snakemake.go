// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HamzaMbareche/MAGs-IBD/utils"
	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
)

// Workflows lists the valid targets of 'atlas run'.
var Workflows = []string{"qc", "assembly", "binning", "genomes", "genecatalog", "None", "all"}

func checkWorkflow(w string) error {
	for _, x := range Workflows {
		if w == x {
			return nil
		}
	}
	return errors.Errorf("invalid workflow %q, choose from %s", w, strings.Join(Workflows, ", "))
}

// locateSnakefile returns the path of a workflow file shipped next to
// the atlas executable.  ATLAS_SNAKEFILE overrides the main Snakefile.
func locateSnakefile(rel string) (string, error) {

	var sf string
	if env := os.Getenv("ATLAS_SNAKEFILE"); env != "" {
		sf = filepath.Join(filepath.Dir(env), strings.TrimPrefix(rel, "workflow/"))
		if rel == "workflow/Snakefile" {
			sf = env
		}
	} else {
		exe, err := os.Executable()
		if err != nil {
			return "", err
		}
		sf = filepath.Join(filepath.Dir(exe), rel)
	}

	ok, err := pathutil.Exists(sf)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf("Unable to locate the Snakemake workflow file; tried %s", sf)
	}

	return sf, nil
}

// runArgs builds the snakemake command line of 'atlas run'.
func runArgs(config *utils.Config) []string {

	args := []string{
		"--snakefile", config.Snakefile,
		"--directory", config.WorkingDir,
	}
	if config.Jobs > 0 {
		args = append(args, "--jobs", strconv.Itoa(config.Jobs))
	}
	args = append(args,
		"--rerun-incomplete",
		"--configfile", config.ConfigFile,
		"--nolock",
	)
	if config.Profile != "" {
		args = append(args, "--profile", config.Profile)
	}
	args = append(args,
		"--use-conda",
		"--conda-prefix", filepath.Join(config.DatabaseDir, "conda_envs"),
	)
	if config.DryRun {
		args = append(args, "--dryrun")
	}
	args = append(args, "--scheduler", "greedy")
	if config.Workflow != "None" && config.Workflow != "" {
		args = append(args, config.Workflow)
	}

	return append(args, config.SnakemakeArgs...)
}

// downloadArgs builds the snakemake command line of 'atlas download'.
func downloadArgs(config *utils.Config) []string {

	args := []string{
		"--snakefile", config.Snakefile,
		"--jobs", strconv.Itoa(config.Jobs),
		"--rerun-incomplete",
		"--conda-frontend", "mamba",
		"--scheduler", "greedy",
		"--nolock",
		"--use-conda",
		"--conda-prefix", filepath.Join(config.DatabaseDir, "conda_envs"),
		"--config", fmt.Sprintf("database_dir=%s", config.DatabaseDir),
	}

	// Anything that is not a flag is a target, which must be
	// separated from the --config values.
	if len(config.SnakemakeArgs) > 0 && !strings.HasPrefix(config.SnakemakeArgs[0], "-") {
		args = append(args, "--")
	}

	return append(args, config.SnakemakeArgs...)
}
