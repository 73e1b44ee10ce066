// Command m4stool inspects, patches and fetches fragmented MP4 media segments.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/zsiec/adsplice/pkg/version"
)

const usageText = `Usage: m4stool <command> [flags] [args]

Commands:
  inspect [--json] <file-or-dir>...   report the box structure of .m4s segments
  patch <in> <out> <sequence>         rewrite the fragment sequence number
  fetch [--h3] [--client ip] <url>    request a segment from an edge and inspect it
  version                             print version information
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}

	var err error
	switch args[0] {
	case "inspect":
		err = runInspect(args[1:], stdout, stderr)
	case "patch":
		err = runPatch(args[1:], stdout)
	case "fetch":
		err = runFetch(args[1:], stdout, stderr)
	case "version", "--version":
		fmt.Fprintln(stdout, version.GetInfo().String())
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usageText)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "m4stool %s: %v\n", args[0], err)
		return 1
	}
	return 0
}
