// Command lifesos-log is a tool for viewing and analyzing protocol log
// files written by lifesos-monitor with the -log-file flag.
//
// Usage:
//
//	lifesos-log <command> [flags] <file.log>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	lifesos-log view protocol.log
//
//	# View only decoded protocol messages coming in
//	lifesos-log view --layer protocol --direction in protocol.log
//
//	# Export to JSONL
//	lifesos-log export --format jsonl protocol.log
//
//	# Filter by connection and save to new file
//	lifesos-log filter --conn-id abc12345 -o filtered.log protocol.log
//
//	# Show statistics
//	lifesos-log stats protocol.log
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lifesos-protocol/lifesos-go/cmd/lifesos-log/commands"
)

const usage = `lifesos-log - LifeSOS Protocol Log Analyzer

Usage:
  lifesos-log <command> [flags] <file.log>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "lifesos-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `lifesos-log view - View log file in human-readable format

Usage:
  lifesos-log view [flags] <file.log>

Flags:
`)
		fs.PrintDefaults()
	}

	layer := fs.String("layer", "", "Filter by layer (transport, protocol, session)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, control, state, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requireFile(fs)

	var filter commands.ViewFilter
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		exitOn(err)
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		exitOn(err)
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		exitOn(err)
		filter.Category = &c
	}

	exitOn(commands.RunView(path, filter, os.Stdout))
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requireFile(fs)

	exitOn(commands.RunExport(path, *format, *output))
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	connID := fs.String("conn-id", "", "Filter by connection ID")
	deviceID := fs.String("device-id", "", "Filter by device ID")
	layer := fs.String("layer", "", "Filter by layer (transport, protocol, session)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	output := fs.String("o", "", "Output file (required)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requireFile(fs)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file required (-o)")
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		ConnectionID: *connID,
		DeviceID:     *deviceID,
		Output:       *output,
	}
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		exitOn(err)
		opts.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		exitOn(err)
		opts.Direction = &d
	}

	exitOn(commands.RunFilter(path, opts))
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requireFile(fs)

	exitOn(commands.RunStats(path, os.Stdout))
}

func requireFile(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
