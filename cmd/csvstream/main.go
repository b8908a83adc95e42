package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/reoring/csvstream"
)

func main() {
	var (
		sep      string
		header   bool
		colsPath string
		parallel int
		stdout   bool
	)
	flag.StringVar(&sep, "sep", "", "field separator (single character; default: auto-detect comma or tab)")
	flag.BoolVar(&header, "header", false, "treat the first record as field names")
	flag.StringVar(&colsPath, "columns", "", "YAML column specification file")
	flag.IntVar(&parallel, "p", 4, "maximum files converted concurrently")
	flag.BoolVar(&stdout, "stdout", false, "write NDJSON to stdout instead of <file>.ndjson (single input only)")
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	if stdout && flag.NArg() > 1 {
		fatalf("-stdout accepts a single input file")
	}

	opt := csvstream.Options{Header: header}
	if sep != "" {
		if len(sep) != 1 {
			fatalf("-sep must be a single character, got %q", sep)
		}
		opt.Separator = sep[0]
	}
	if colsPath != "" {
		data, err := os.ReadFile(colsPath)
		if err != nil {
			fatalf("read columns: %v", err)
		}
		cols, err := csvstream.ColumnsFromYAML(data)
		if err != nil {
			fatalf("%v", err)
		}
		opt.Columns = cols
	}

	var g errgroup.Group
	g.SetLimit(parallel)
	for _, path := range flag.Args() {
		g.Go(func() error {
			if stdout {
				return convert(path, os.Stdout, opt)
			}
			return convertFile(path, opt)
		})
	}
	if err := g.Wait(); err != nil {
		fatalf("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "csvstream CLI\n\nUsage:\n  csvstream [-sep c] [-header] [-columns spec.yaml] [-p n] [-stdout] file...\n\nConverts delimited files to NDJSON, one <file>.ndjson per input.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "csvstream: "+format+"\n", args...)
	os.Exit(1)
}

// convertFile writes path's records to <path without extension>.ndjson.
func convertFile(path string, opt csvstream.Options) error {
	out, err := os.Create(outputName(path))
	if err != nil {
		return err
	}
	if err := convert(path, out, opt); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func convert(path string, w io.Writer, opt csvstream.Options) error {
	s, err := csvstream.Open(path, opt)
	if err != nil {
		return err
	}
	defer s.Close()

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for rec, err := range s.All() {
		if err != nil {
			return err
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func outputName(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".ndjson"
}
