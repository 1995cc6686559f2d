// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.
//
// Atlas runs the workflows for assembly, annotation and genomic
// binning of metagenomic and metatranscriptomic data.  The work
// itself is done by snakemake, this program checks the inputs,
// assembles the snakemake command line and runs it.
//
// A typical invocation is
//
// atlas run genomes -w ./project -j 16 -- --keep-going
//
// where everything after '--' is passed to snakemake unchanged.  The
// working directory must contain the config.yaml and samples.tsv
// files generated by 'atlas init'.
//
// The reference databases are obtained once with
//
// atlas download -d /data/atlas_databases
//
// Log files are written into atlas_logs/#####, where ##### is a
// generated run id, together with a copy of the run configuration in
// config.json.  The log files may contain useful information for
// troubleshooting.

package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/HamzaMbareche/MAGs-IBD/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// Free space recommended for the reference databases.
const minDatabaseSpace = 50 * 1000 * 1000 * 1000

var (
	logger *log.Logger
)

// stageError marks a failure of one step of a command.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("Error in %s, see log files for details.", e.stage)
}

func (e *stageError) Unwrap() error {
	return e.err
}

func stage(name string, err error) error {
	if err == nil {
		return nil
	}
	if logger != nil {
		logger.Printf("%s: %v", name, err)
	}
	return &stageError{stage: name, err: err}
}

// makeLogDir creates the log directory of this run under base and
// starts logging into it.
func makeLogDir(config *utils.Config, base string) (*os.File, error) {

	xuid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}

	if config.LogDir == "" {
		config.LogDir = filepath.Join(base, "atlas_logs")
	}
	config.LogDir = filepath.Join(config.LogDir, xuid.String())

	if err := os.MkdirAll(config.LogDir, os.ModePerm); err != nil {
		return nil, err
	}

	var fid *os.File
	logger, fid, err = utils.NewLogger(config.LogDir, "atlas.log")
	if err != nil {
		return nil, err
	}

	return fid, nil
}

func saveConfig(config *utils.Config) error {
	fname, err := utils.SaveConfig(config)
	if err != nil {
		return err
	}
	logger.Printf("Configuration saved to %s", fname)
	return nil
}

// checkRun completes the configuration of 'atlas run' and checks
// that the workflow inputs are present.
func checkRun(config *utils.Config) error {

	if err := checkWorkflow(config.Workflow); err != nil {
		return err
	}

	wd, err := filepath.Abs(config.WorkingDir)
	if err != nil {
		return err
	}
	config.WorkingDir = wd

	if config.ConfigFile == "" {
		config.ConfigFile = filepath.Join(wd, "config.yaml")
	}
	config.ConfigFile, err = filepath.Abs(config.ConfigFile)
	if err != nil {
		return err
	}
	ok, err := pathutil.Exists(config.ConfigFile)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("config-file not found: %s\ngenerate one with 'atlas init'", config.ConfigFile)
	}

	ok, err = pathutil.Exists(filepath.Join(wd, "samples.tsv"))
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("samples.tsv not found in the working directory. Generate one with 'atlas init'")
	}

	if config.DatabaseDir == "" {
		config.DatabaseDir, err = utils.ReadDatabaseDir(config.ConfigFile)
		if err != nil {
			return err
		}
	}

	if config.Jobs <= 0 {
		config.Jobs = runtime.NumCPU()
	}

	return nil
}

// freeSpace returns the number of bytes available to unprivileged
// users on the filesystem holding dir.
func freeSpace(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

func snakemake(args []string) error {

	logger.Printf("Executing: snakemake %s", strings.Join(args, " "))

	cmd := exec.Command("snakemake", args...)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

func runWorkflow(config *utils.Config) error {

	if err := stage("checkArgs", checkRun(config)); err != nil {
		return err
	}

	if config.Snakefile == "" {
		sf, err := locateSnakefile("workflow/Snakefile")
		if err != nil {
			return stage("checkArgs", err)
		}
		config.Snakefile = sf
	}

	fid, err := makeLogDir(config, config.WorkingDir)
	if err != nil {
		return stage("makeLogDir", err)
	}
	defer fid.Close()

	logger.Printf("Starting saveConfig...")
	if err := stage("saveConfig", saveConfig(config)); err != nil {
		return err
	}

	io.WriteString(os.Stderr, fmt.Sprintf("Running workflow %s in %s\n", config.Workflow, config.WorkingDir))
	logger.Printf("Starting snakemake...")

	return stage("snakemake", snakemake(runArgs(config)))
}

func runDownload(config *utils.Config) error {

	if config.DatabaseDir == "" {
		return stage("checkArgs", errors.New("db-dir not provided"))
	}
	dir, err := filepath.Abs(config.DatabaseDir)
	if err != nil {
		return stage("checkArgs", err)
	}
	config.DatabaseDir = dir
	if config.Jobs <= 0 {
		config.Jobs = 1
	}

	if config.Snakefile == "" {
		sf, err := locateSnakefile("workflow/rules/download.smk")
		if err != nil {
			return stage("checkArgs", err)
		}
		config.Snakefile = sf
	}

	if err := os.MkdirAll(config.DatabaseDir, os.ModePerm); err != nil {
		return stage("makeDatabaseDir", err)
	}

	fid, err := makeLogDir(config, config.DatabaseDir)
	if err != nil {
		return stage("makeLogDir", err)
	}
	defer fid.Close()

	if err := stage("saveConfig", saveConfig(config)); err != nil {
		return err
	}

	if free, err := freeSpace(config.DatabaseDir); err != nil {
		logger.Printf("Cannot determine free space: %v", err)
	} else if free < minDatabaseSpace {
		msg := fmt.Sprintf("Warning: only %.1f GB free in %s, the databases need about 50 GB\n",
			float64(free)/1e9, config.DatabaseDir)
		io.WriteString(os.Stderr, msg)
		logger.Print(msg)
	}

	return stage("snakemake", snakemake(downloadArgs(config)))
}

// passthrough returns the arguments given after '--'.
func passthrough(cmd *cobra.Command, args []string) []string {
	if n := cmd.ArgsLenAtDash(); n >= 0 {
		return args[n:]
	}
	return nil
}

// The subcommand actions, replaced in tests.
var (
	execRun      = runWorkflow
	execDownload = runDownload
)

func newRootCmd() *cobra.Command {

	root := &cobra.Command{
		Use:   "atlas",
		Short: "Workflows for assembly, annotation and genomic binning of metagenomic data",
		Long: `
ATLAS - workflows for assembly, annotation, and genomic binning of
metagenomic and metatranscriptomic data.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config := new(utils.Config)
	dlConfig := new(utils.Config)
	var configFileName string

	runCmd := &cobra.Command{
		Use:   "run {" + strings.Join(Workflows, "|") + "} [-- snakemake args]",
		Short: "Run the atlas main workflow",
		Long: `
Runs the ATLAS pipeline.

By default all steps are executed but a sub-workflow can be specified.
Needs a config file and expects to find a sample table in the working
directory.  Both can be generated with 'atlas init'.

Most snakemake arguments can be appended after '--', see 'snakemake --help'.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if n := cmd.ArgsLenAtDash(); n == 0 {
				return errors.New("a workflow is required before '--'")
			} else if n > 1 || (n < 0 && len(args) > 1) {
				return errors.Errorf("unexpected arguments %v, pass snakemake arguments after '--'", args[1:])
			}
			if configFileName != "" {
				c, err := utils.ReadConfig(configFileName)
				if err != nil {
					return err
				}
				mergeConfig(c, config, cmd)
				config = c
			}
			config.Workflow = args[0]
			config.SnakemakeArgs = append(config.SnakemakeArgs, passthrough(cmd, args)...)
			return execRun(config)
		},
	}
	runCmd.Flags().StringVarP(&config.WorkingDir, "working-dir", "w", ".", "location to run atlas")
	runCmd.Flags().StringVarP(&config.ConfigFile, "config-file", "c", "", "config file generated with 'atlas init'")
	runCmd.Flags().IntVarP(&config.Jobs, "jobs", "j", runtime.NumCPU(), "use at most this many jobs in parallel")
	runCmd.Flags().StringVar(&config.Profile, "profile", "", "snakemake profile e.g. for cluster execution")
	runCmd.Flags().BoolVarP(&config.DryRun, "dryrun", "n", false, "test execution")
	runCmd.Flags().StringVar(&config.Snakefile, "snakefile", "", "the Snakefile of the workflow (default: next to the atlas executable)")
	runCmd.Flags().StringVar(&configFileName, "run-config", "", "JSON, TOML or YAML file with the run parameters")

	downloadCmd := &cobra.Command{
		Use:   "download -d <db-dir> [-- snakemake args]",
		Short: "Download reference files (need ~50GB)",
		Long: `
Executes a snakemake workflow to download reference database files and
validate them based on their MD5 checksum.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n := cmd.ArgsLenAtDash(); (n < 0 && len(args) > 0) || n > 0 {
				return errors.Errorf("unexpected arguments %v, pass snakemake arguments after '--'", args)
			}
			dlConfig.SnakemakeArgs = passthrough(cmd, args)
			return execDownload(dlConfig)
		},
	}
	downloadCmd.Flags().StringVarP(&dlConfig.DatabaseDir, "db-dir", "d", "", "location to store databases")
	downloadCmd.Flags().IntVarP(&dlConfig.Jobs, "jobs", "j", 1, "number of simultaneous downloads")
	downloadCmd.MarkFlagRequired("db-dir")

	root.AddCommand(runCmd, downloadCmd)

	return root
}

// mergeConfig copies the flags set on the command line from flags
// into config, so that they take precedence over the config file.
func mergeConfig(config, flags *utils.Config, cmd *cobra.Command) {

	set := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if set("working-dir") || config.WorkingDir == "" {
		config.WorkingDir = flags.WorkingDir
	}
	if set("config-file") {
		config.ConfigFile = flags.ConfigFile
	}
	if set("jobs") || config.Jobs == 0 {
		config.Jobs = flags.Jobs
	}
	if set("profile") {
		config.Profile = flags.Profile
	}
	if set("dryrun") {
		config.DryRun = flags.DryRun
	}
	if set("snakefile") {
		config.Snakefile = flags.Snakefile
	}
}

func main() {

	if err := newRootCmd().Execute(); err != nil {
		var se *stageError
		if errors.As(err, &se) {
			io.WriteString(os.Stderr, se.Error()+"\n")
			if se.stage == "checkArgs" {
				io.WriteString(os.Stderr, se.err.Error()+"\n")
			}
		} else {
			io.WriteString(os.Stderr, fmt.Sprintf("atlas: %v\n", err))
		}
		os.Exit(1)
	}
}
