// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package utils

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// SimplifyPath removes the directory and the extension from a file
// path.  A trailing .gz or .sz is removed before the extension.
func SimplifyPath(path string) string {

	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if ext == ".gz" || ext == ".sz" {
		name = strings.TrimSuffix(name, ext)
		ext = filepath.Ext(name)
	}

	return strings.TrimSuffix(name, ext)
}

type readCloser struct {
	io.Reader
	toclose []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for i := len(r.toclose) - 1; i >= 0; i-- {
		if err := r.toclose[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenMaybeCompressed opens a file for reading.  Gzip (.gz) and
// snappy (.sz) compression is handled automatically.
func OpenMaybeCompressed(name string) (io.ReadCloser, error) {

	fid, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	rc := &readCloser{toclose: []io.Closer{fid}}

	switch filepath.Ext(name) {
	case ".gz":
		gz, err := gzip.NewReader(bufio.NewReader(fid))
		if err != nil {
			fid.Close()
			return nil, errors.Wrap(err, name)
		}
		rc.Reader = gz
		rc.toclose = append(rc.toclose, gz)
	case ".sz":
		rc.Reader = snappy.NewReader(bufio.NewReader(fid))
	default:
		rc.Reader = bufio.NewReader(fid)
	}

	return rc, nil
}

type writeCloser struct {
	io.Writer
	flush func() error
}

func (w *writeCloser) Close() error {
	return w.flush()
}

// CompressWriter wraps w so that data is compressed according to
// the extension of name (.gz or .sz).  Closing the returned writer
// flushes it but does not close w.
func CompressWriter(w io.Writer, name string) io.WriteCloser {

	switch filepath.Ext(name) {
	case ".gz":
		return gzip.NewWriter(w)
	case ".sz":
		return snappy.NewBufferedWriter(w)
	default:
		bw := bufio.NewWriter(w)
		return &writeCloser{Writer: bw, flush: bw.Flush}
	}
}

// CatFiles concatenates the files byte by byte into outname.  If
// gz is true the output is gzip compressed, set it to false when
// the inputs are already compressed.
func CatFiles(files []string, outname string, gz bool) error {

	out, err := os.Create(outname)
	if err != nil {
		return err
	}
	defer out.Close()

	var wtr io.WriteCloser
	if gz {
		wtr = gzip.NewWriter(out)
	} else {
		bw := bufio.NewWriter(out)
		wtr = &writeCloser{Writer: bw, flush: bw.Flush}
	}

	for _, f := range files {
		inf, err := os.Open(f)
		if err != nil {
			return err
		}
		_, err = io.Copy(wtr, inf)
		inf.Close()
		if err != nil {
			return errors.Wrap(err, f)
		}
	}

	if err := wtr.Close(); err != nil {
		return err
	}

	return out.Close()
}

// SymlinkRelative creates a link in outputDir to each of files in
// inputDir.  The link targets are relative to outputDir, so both
// directories can be moved together.
func SymlinkRelative(files []string, inputDir, outputDir string) error {

	rel, err := filepath.Rel(outputDir, inputDir)
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := os.Symlink(filepath.Join(rel, f), filepath.Join(outputDir, f)); err != nil {
			return err
		}
	}

	return nil
}

// GenNamesForRange returns n names made of prefix and a running
// number starting at start.  Numbers are zero padded to the width
// of n, e.g. MAG01 ... MAG12.
func GenNamesForRange(n int, prefix string, start int) []string {

	width := len(strconv.Itoa(n))
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%0*d", prefix, width, start+i)
	}

	return names
}

// NewLogger creates the log file name in dir and returns a logger
// writing to it, together with the file so it can be closed.
func NewLogger(dir, name string) (*log.Logger, *os.File, error) {

	fid, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, err
	}

	return log.New(fid, "", log.Ltime), fid, nil
}
