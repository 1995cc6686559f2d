// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package utils

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the parameters of one atlas invocation.  It can be
// read from a JSON, TOML or YAML file, and a copy of the effective
// configuration is written to the log directory of every run.
type Config struct {

	// The sub-workflow to execute, one of qc, assembly, binning,
	// genomes, genecatalog, None or all.
	Workflow string `json:"workflow" mapstructure:"workflow"`

	// The directory in which the workflow runs.  It must contain
	// the samples.tsv sample table.
	WorkingDir string `json:"working_dir" mapstructure:"working_dir"`

	// The workflow configuration file generated by 'atlas init'.
	// Defaults to config.yaml in WorkingDir.
	ConfigFile string `json:"config_file" mapstructure:"config_file"`

	// The location of the reference databases and conda
	// environments.  Read from ConfigFile when empty.
	DatabaseDir string `json:"database_dir" mapstructure:"database_dir"`

	// The Snakefile driving the workflow.
	Snakefile string `json:"snakefile" mapstructure:"snakefile"`

	// Use at most this many jobs in parallel.
	Jobs int `json:"jobs" mapstructure:"jobs"`

	// Snakemake profile, e.g. for cluster execution.
	Profile string `json:"profile" mapstructure:"profile"`

	// If true, only show what would be executed.
	DryRun bool `json:"dryrun" mapstructure:"dryrun"`

	// Additional arguments passed verbatim to snakemake.
	SnakemakeArgs []string `json:"snakemake_args" mapstructure:"snakemake_args"`

	// The directory where log files are written.  By default the
	// logs are placed into atlas_logs/###### in the working
	// directory, where the number is a generated run id.
	LogDir string `json:"log_dir" mapstructure:"log_dir"`

	// Field separator of the tables merged by atlas_concat.
	// Defaults to a tab.
	Separator string `json:"separator" mapstructure:"separator"`

	// Placeholder written for cells whose column is absent from
	// the source table.  Defaults to the empty string.
	MissingValue string `json:"missing_value" mapstructure:"missing_value"`

	// If true, a failed disk based merge leaves the partially
	// written output in place instead of removing it.
	KeepPartial bool `json:"keep_partial" mapstructure:"keep_partial"`

	// Capture CPU profile data into the log directory.
	CPUProfile bool `json:"cpu_profile" mapstructure:"cpu_profile"`
}

// ReadConfig reads a configuration file.  The format is determined
// by the file extension (.json, .toml, .yaml or .yml).
func ReadConfig(filename string) (*Config, error) {

	v := viper.New()
	v.SetConfigFile(filename)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, filename)
	}

	config := new(Config)
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, filename)
	}

	return config, nil
}

// ReadDatabaseDir returns the database_dir entry of a workflow
// configuration file.
func ReadDatabaseDir(filename string) (string, error) {

	v := viper.New()
	v.SetConfigFile(filename)
	if err := v.ReadInConfig(); err != nil {
		return "", errors.Wrap(err, filename)
	}

	dir := v.GetString("database_dir")
	if dir == "" {
		return "", errors.Errorf("%s: database_dir not set", filename)
	}

	return dir, nil
}

// SaveConfig writes the configuration in json format into the log
// directory and returns the path of the written file.
func SaveConfig(config *Config) (string, error) {

	fname := filepath.Join(config.LogDir, "config.json")
	fid, err := os.Create(fname)
	if err != nil {
		return "", err
	}
	defer fid.Close()

	enc := json.NewEncoder(fid)
	enc.SetIndent("", "  ")
	if err := enc.Encode(config); err != nil {
		return "", errors.Wrap(err, fname)
	}

	return fname, fid.Close()
}
