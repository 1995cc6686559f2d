// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

// atlas_concat merges tables that share a row identifier column into
// one output table.  It is called by the workflow to combine per
// sample or per bin tables, e.g.
//
// atlas_concat -Output=genomes/counts/median_coverage.tsv sample1.tsv sample2.tsv ...
//
// By default all tables are loaded into memory, concatenated and
// written sorted by row identifier.  With -DiskBased the tables are
// appended one at a time, in the order given, which keeps memory use
// bounded by the largest single table.  With -Raw the files are
// concatenated byte by byte without being parsed.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/HamzaMbareche/MAGs-IBD/table"
	"github.com/HamzaMbareche/MAGs-IBD/utils"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
)

type args struct {
	inputs []string
	output string
	raw    bool
	gzip   bool

	job table.Job
	cfg table.Config
}

// stderrProgress reports the sequential pass on stderr.
type stderrProgress struct {
	total, n int
}

func (p *stderrProgress) Start(total int) {
	p.total = total
}

func (p *stderrProgress) Step(name string) {
	p.n++
	io.WriteString(os.Stderr, fmt.Sprintf("Appending table %d/%d: %s\n", p.n, p.total, name))
}

func (p *stderrProgress) Done() {
	io.WriteString(os.Stderr, "Done\n")
}

func parseAxis(s string) (table.Axis, error) {
	switch s {
	case "", "0", "rows", "index":
		return table.Rows, nil
	case "1", "columns":
		return table.Columns, nil
	}
	return 0, errors.Wrapf(table.ErrIncompatibleOptions, "unknown axis %q", s)
}

func parseSep(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, n := utf8.DecodeRuneInString(s)
	if n != len(s) {
		return 0, errors.Errorf("separator %q should be a single character", s)
	}
	return r, nil
}

// readHeaderFile reads one column name per line.  Blank lines are
// kept so that they are rejected as blank names.
func readHeaderFile(name string) ([]string, error) {

	rc, err := utils.OpenMaybeCompressed(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var headers []string
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		headers = append(headers, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, name)
	}

	return headers, nil
}

func handleArgs(argv []string) (*args, error) {

	fs := flag.NewFlagSet("atlas_concat", flag.ContinueOnError)

	ConfigFileName := fs.String("ConfigFileName", "", "JSON, TOML or YAML file containing configuration parameters")
	Output := fs.String("Output", "", "Output table, compressed when ending in .gz or .sz")
	Sep := fs.String("Sep", "", "Field separator (default tab)")
	IndexCol := fs.Int("IndexCol", 0, "Position of the row identifier column")
	IndexName := fs.String("IndexName", "", "Name of the row identifier column, overrides IndexCol")
	Axis := fs.String("Axis", "rows", "Concatenate along 'rows' or 'columns'")
	DiskBased := fs.Bool("DiskBased", false, "Append tables one at a time instead of loading all of them")
	Headers := fs.String("Headers", "", "Comma separated output columns, disk based only")
	HeaderFile := fs.String("HeaderFile", "", "File with one output column per line, disk based only")
	Join := fs.String("Join", "", "'outer' or 'inner', in memory only")
	SortColumns := fs.Bool("SortColumns", false, "Sort the output columns by name, in memory only")
	MissingValue := fs.String("MissingValue", "", "Placeholder for absent cells")
	KeepPartial := fs.Bool("KeepPartial", false, "Keep the partial output when a merge fails")
	CheckDuplicates := fs.Bool("CheckDuplicates", false, "Log row identifiers that appear in more than one table")
	Raw := fs.Bool("Raw", false, "Concatenate the files byte by byte")
	Gzip := fs.Bool("Gzip", false, "With -Raw, gzip compress the output")
	LogDir := fs.String("LogDir", "", "Directory for the log file")
	CPUProfile := fs.Bool("CPUProfile", false, "Capture CPU profile data")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}

	var config *utils.Config
	if *ConfigFileName != "" {
		var err error
		config, err = utils.ReadConfig(*ConfigFileName)
		if err != nil {
			return nil, err
		}
	} else {
		config = new(utils.Config)
	}

	if *Sep != "" {
		config.Separator = *Sep
	}
	if *MissingValue != "" {
		config.MissingValue = *MissingValue
	}
	if *KeepPartial {
		config.KeepPartial = true
	}
	if *LogDir != "" {
		config.LogDir = *LogDir
	}
	if *CPUProfile {
		config.CPUProfile = true
	}

	a := &args{
		inputs: fs.Args(),
		output: *Output,
		raw:    *Raw,
		gzip:   *Gzip,
	}

	if a.output == "" {
		return nil, errors.New("Output not provided, run 'atlas_concat --help' for more information")
	}
	if len(a.inputs) == 0 {
		return nil, errors.Wrap(table.ErrInputNotFound, "no input tables given")
	}

	sep, err := parseSep(config.Separator)
	if err != nil {
		return nil, err
	}
	axis, err := parseAxis(*Axis)
	if err != nil {
		return nil, err
	}

	a.cfg = table.Config{
		Sep:             sep,
		IndexCol:        *IndexCol,
		IndexName:       *IndexName,
		MissingValue:    config.MissingValue,
		KeepPartial:     config.KeepPartial,
		CheckDuplicates: *CheckDuplicates,
		Progress:        &stderrProgress{},
	}

	a.job = table.Job{
		Inputs:    a.inputs,
		Output:    a.output,
		Axis:      axis,
		DiskBased: *DiskBased,
	}

	if *Headers != "" && *HeaderFile != "" {
		return nil, errors.Wrap(table.ErrInvalidHeaderSpec, "use only one of Headers and HeaderFile")
	}
	if *Headers != "" {
		a.job.Headers = strings.Split(*Headers, ",")
	}
	if *HeaderFile != "" {
		a.job.Headers, err = readHeaderFile(*HeaderFile)
		if err != nil {
			return nil, err
		}
		if a.job.Headers == nil {
			a.job.Headers = []string{}
		}
	}
	if a.job.Headers != nil && !a.job.DiskBased {
		return nil, errors.Wrap(table.ErrIncompatibleOptions, "Headers require DiskBased")
	}

	switch *Join {
	case "":
		if *SortColumns {
			a.job.Concat = &table.ConcatOptions{SortColumns: true}
		}
	case "outer":
		a.job.Concat = &table.ConcatOptions{Join: table.JoinOuter, SortColumns: *SortColumns}
	case "inner":
		a.job.Concat = &table.ConcatOptions{Join: table.JoinInner, SortColumns: *SortColumns}
	default:
		return nil, errors.Wrapf(table.ErrIncompatibleOptions, "unknown join %q", *Join)
	}

	if config.LogDir != "" {
		logger, fid, err := utils.NewLogger(config.LogDir, "atlas_concat.log")
		if err != nil {
			return nil, err
		}
		a.cfg.Logger = logger
		closers = append(closers, fid)
	}

	if config.CPUProfile {
		dir := config.LogDir
		if dir == "" {
			dir = filepath.Dir(a.output)
		}
		closers = append(closers, profileStopper{profile.Start(profile.ProfilePath(dir), profile.Quiet)})
	}

	return a, nil
}

var closers []io.Closer

type profileStopper struct {
	p interface{ Stop() }
}

func (s profileStopper) Close() error {
	s.p.Stop()
	return nil
}

func closeAll() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close()
	}
	closers = nil
}

func run(a *args) error {

	if a.raw {
		return utils.CatFiles(a.inputs, a.output, a.gzip)
	}

	return table.Concat(a.job, a.cfg)
}

func main() {

	a, err := handleArgs(os.Args[1:])
	if err == flag.ErrHelp {
		os.Exit(0)
	} else if err != nil {
		io.WriteString(os.Stderr, fmt.Sprintf("atlas_concat: %v\n", err))
		os.Exit(1)
	}

	err = run(a)
	closeAll()
	if err != nil {
		io.WriteString(os.Stderr, "Error in atlas_concat, see log files for details.\n")
		log.Fatal(err)
	}
}
