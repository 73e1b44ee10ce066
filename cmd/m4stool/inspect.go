package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/zsiec/adsplice/internal/segment"
)

type inspection struct {
	File   string          `json:"file"`
	Size   int             `json:"size"`
	Report *segment.Report `json:"report,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	jsonOut := flags.Bool("json", false, "print reports as JSON instead of a table")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("no files or directories given")
	}

	files, err := discover(flags.Args())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .m4s files found")
	}

	results := make([]inspection, 0, len(files))
	failed := 0
	for _, file := range files {
		res := inspectFile(file)
		if res.Error != "" {
			failed++
		}
		results = append(results, res)
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(stdout, renderReports(results))
		for _, res := range results {
			if res.Error != "" {
				fmt.Fprintf(stderr, "%s: %s\n", res.File, res.Error)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d segments could not be parsed", failed, len(results))
	}
	return nil
}

func inspectFile(file string) inspection {
	res := inspection{File: file}

	data, err := os.ReadFile(file)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Size = len(data)

	report, err := segment.Inspect(data)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Report = report
	return res
}

// discover expands directories into the .m4s files below them, in lexical order.
// Explicit file arguments are kept whatever their extension.
func discover(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".m4s") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
