// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

// atlas_rename_genomes gives the dereplicated genomes stable MAG
// names.  The fasta files of the dereplicated bins are copied under
// their new names, and the genome quality table and the dRep
// clustering are rewritten to use them, e.g.
//
// atlas_rename_genomes -Genomes=genomes/Dereplication/dereplicated_genomes -OutputDir=genomes/genomes
//     -MapfileGenomes=genomes/clustering/old2newID.tsv -MapfileContigs=genomes/clustering/contig2genome.tsv
//     -MapfileBins=genomes/clustering/allbins2genome.tsv -QualityIn=genomes/checkm/completeness.tsv
//     -QualityOut=genomes/genome_quality.tsv
//
// With -LinkDir, relative symbolic links to the renamed genomes are
// placed into a second directory.

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/HamzaMbareche/MAGs-IBD/genomes"
	"github.com/HamzaMbareche/MAGs-IBD/utils"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
)

// stageError names the step of the tool that failed.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

// run executes the tool.  Log file and profile are closed before it
// returns, also on failure.
func run(argv []string) (err error) {

	fs := flag.NewFlagSet("atlas_rename_genomes", flag.ContinueOnError)

	Genomes := fs.String("Genomes", "", "Directory of the dereplicated <bin>.fasta files")
	OutputDir := fs.String("OutputDir", "", "Directory for the renamed genomes, must not exist")
	MapfileGenomes := fs.String("MapfileGenomes", "", "Output bin to MAG table")
	MapfileContigs := fs.String("MapfileContigs", "", "Output contig to MAG table")
	MapfileBins := fs.String("MapfileBins", "", "Output table mapping every clustered genome to its MAG")
	QualityIn := fs.String("QualityIn", "", "Genome quality table of the bins")
	QualityOut := fs.String("QualityOut", "", "Genome quality table indexed by MAG")
	LinkDir := fs.String("LinkDir", "", "Directory receiving relative links to the renamed genomes")
	KeepContigNames := fs.Bool("KeepContigNames", false, "Do not rename the contigs")
	LogDir := fs.String("LogDir", "", "Directory for the log file")
	CPUProfile := fs.Bool("CPUProfile", false, "Capture CPU profile data")

	if err := fs.Parse(argv); err != nil {
		return err
	}

	for _, f := range []struct{ name, v string }{
		{"Genomes", *Genomes},
		{"OutputDir", *OutputDir},
		{"MapfileGenomes", *MapfileGenomes},
		{"MapfileContigs", *MapfileContigs},
	} {
		if f.v == "" {
			return errors.Errorf("%s not provided, run 'atlas_rename_genomes --help' for more information", f.name)
		}
	}

	logger := log.New(io.Discard, "", 0)
	if *LogDir != "" {
		var fid *os.File
		logger, fid, err = utils.NewLogger(*LogDir, "atlas_rename_genomes.log")
		if err != nil {
			return &stageError{"setupLog", err}
		}
		defer fid.Close()
	}

	defer func() {
		if err != nil {
			logger.Print(err)
		}
	}()

	if *CPUProfile {
		dir := *LogDir
		if dir == "" {
			dir = "."
		}
		defer profile.Start(profile.ProfilePath(dir), profile.Quiet).Stop()
	}

	ren, err := genomes.RenameGenomes(genomes.Options{
		InputDir:       *Genomes,
		OutputDir:      *OutputDir,
		MapfileGenomes: *MapfileGenomes,
		MapfileContigs: *MapfileContigs,
		RenameContigs:  !*KeepContigNames,
		Logger:         logger,
	})
	if err != nil {
		return &stageError{"renameGenomes", err}
	}
	io.WriteString(os.Stderr, fmt.Sprintf("Renamed %d genomes\n", ren.Len()))

	if *MapfileBins != "" {
		if err := genomes.WriteBinMap(*MapfileBins, *Genomes, ren, ""); err != nil {
			return &stageError{"writeBinMap", err}
		}
	}

	if *QualityIn != "" && *QualityOut != "" {
		if err := genomes.RenameQuality(*QualityIn, *QualityOut, ren); err != nil {
			return &stageError{"renameQuality", err}
		}
	}

	if *LinkDir != "" {
		var files []string
		for _, name := range ren.Names {
			files = append(files, name+".fasta")
		}
		if err := os.MkdirAll(*LinkDir, 0755); err != nil {
			return &stageError{"linkGenomes", err}
		}
		if err := utils.SymlinkRelative(files, *OutputDir, *LinkDir); err != nil {
			return &stageError{"linkGenomes", err}
		}
		logger.Printf("Linked %d genomes into %s", len(files), filepath.Clean(*LinkDir))
	}

	return nil
}

func main() {

	err := run(os.Args[1:])
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		var se *stageError
		if errors.As(err, &se) {
			io.WriteString(os.Stderr, fmt.Sprintf("Error in %s, see log files for details.\n", se.stage))
		}
		io.WriteString(os.Stderr, fmt.Sprintf("atlas_rename_genomes: %v\n", err))
		os.Exit(1)
	}
}
