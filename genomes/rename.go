// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

// Package genomes renames dereplicated genome bins to stable MAG
// names and rewrites the tables that refer to them.
package genomes

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HamzaMbareche/MAGs-IBD/utils"
	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/pkg/errors"
)

// Prefix of the new genome names.
const Prefix = "MAG"

// Width of the FASTA sequence lines written.
const lineWidth = 60

var (
	// ErrOutputExists is returned when the genome output directory
	// is already present.
	ErrOutputExists = errors.New("output directory exists")

	// ErrUnknownGenome is returned for a genome that was not renamed.
	ErrUnknownGenome = errors.New("genome was not renamed")
)

// Renaming maps bin identifiers to their new names, keeping the order
// in which the bins were renamed.
type Renaming struct {
	Bins  []string
	Names []string

	lookup map[string]string
}

// NewRenaming assigns MAG names to the bins, in the given order.
func NewRenaming(bins []string) *Renaming {

	r := &Renaming{
		Bins:   append([]string(nil), bins...),
		Names:  utils.GenNamesForRange(len(bins), Prefix, 1),
		lookup: make(map[string]string, len(bins)),
	}
	for i, b := range r.Bins {
		r.lookup[b] = r.Names[i]
	}

	return r
}

// Lookup returns the new name of a bin.
func (r *Renaming) Lookup(bin string) (string, bool) {
	name, ok := r.lookup[bin]
	return name, ok
}

// Len returns the number of renamed bins.
func (r *Renaming) Len() int {
	return len(r.Bins)
}

// Options for RenameGenomes.
type Options struct {

	// Directory holding the <bin>.fasta files.
	InputDir string

	// Directory receiving <MAG>.fasta files, must not exist.
	OutputDir string

	// Bin to MAG table.
	MapfileGenomes string

	// Contig to MAG table.
	MapfileContigs string

	// Name the contigs <MAG>_<n> instead of keeping the first word
	// of their header.
	RenameContigs bool

	Logger *log.Logger
}

// ListBins returns the bin identifiers of the fasta files in dir,
// sorted.
func ListBins(dir string) ([]string, error) {

	files, err := filepath.Glob(filepath.Join(dir, "*.fasta"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var bins []string
	for _, f := range files {
		bins = append(bins, strings.TrimSuffix(filepath.Base(f), ".fasta"))
	}

	return bins, nil
}

// RenameGenomes copies every bin of opts.InputDir to opts.OutputDir
// under its new name and writes the genome and contig mapfiles.
func RenameGenomes(opts Options) (*Renaming, error) {

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	bins, err := ListBins(opts.InputDir)
	if err != nil {
		return nil, err
	}
	ren := NewRenaming(bins)
	logger.Printf("Renaming %d genomes", ren.Len())

	if _, err := os.Stat(opts.OutputDir); err == nil {
		return nil, errors.Wrap(ErrOutputExists, opts.OutputDir)
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, err
	}

	gmap, err := os.Create(opts.MapfileGenomes)
	if err != nil {
		return nil, err
	}
	defer gmap.Close()

	cmap, err := os.Create(opts.MapfileContigs)
	if err != nil {
		return nil, err
	}
	defer cmap.Close()

	if _, err := io.WriteString(gmap, "BinID\tMAG\n"); err != nil {
		return nil, err
	}

	for i, bin := range ren.Bins {
		name := ren.Names[i]
		if _, err := fmt.Fprintf(gmap, "%s\t%s\n", bin, name); err != nil {
			return nil, err
		}

		src := filepath.Join(opts.InputDir, bin+".fasta")
		dst := filepath.Join(opts.OutputDir, name+".fasta")
		n, err := renameContigs(src, dst, name, opts.RenameContigs, cmap)
		if err != nil {
			return nil, err
		}
		logger.Printf("%s -> %s (%d contigs)", bin, name, n)
	}

	if err := gmap.Close(); err != nil {
		return nil, err
	}
	if err := cmap.Close(); err != nil {
		return nil, err
	}

	return ren, nil
}

// renameContigs rewrites the fasta file src to dst, renaming its
// contigs, and writes one line per contig to cmap.
func renameContigs(src, dst, name string, rename bool, cmap io.Writer) (int, error) {

	inf, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer inf.Close()

	outf, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer outf.Close()

	rdr := fasta.NewReader(inf, linear.NewSeq("", nil, alphabet.DNAredundant))
	wtr := fasta.NewWriter(outf, lineWidth)

	var nseq int
	for {
		s, err := rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return 0, errors.Wrap(err, src)
		}
		seq := s.(*linear.Seq)
		nseq++

		if rename {
			seq.ID = fmt.Sprintf("%s_%d", name, nseq)
		}
		seq.Desc = ""

		if _, err := fmt.Fprintf(cmap, "%s\t%s\n", seq.ID, name); err != nil {
			return 0, err
		}
		if _, err := wtr.Write(seq); err != nil {
			return 0, errors.Wrap(err, dst)
		}
	}

	return nseq, outf.Close()
}
