package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rsclarke/dxrelay/internal/dx"
	"github.com/rsclarke/dxrelay/internal/telnet"
	"github.com/spf13/cobra"
)

var parseFlags struct {
	onlyRelevant bool
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse spot lines and print them as JSON",
	Long: `Read cluster lines from a file (or stdin) and print one JSON object per
line: the parsed entry, or the rejection reason.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

var filterCmd = &cobra.Command{
	Use:   "filter [file]",
	Short: "Print only the lines the relay would forward",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFilter,
}

func init() {
	rootCmd.AddCommand(parseCmd, filterCmd)

	parseCmd.Flags().BoolVar(&parseFlags.onlyRelevant, "relevant", false, "skip lines the relay would not forward")
}

func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(args[0])
}

type parseResult struct {
	Line  string    `json:"line"`
	Entry *dx.Entry `json:"entry,omitempty"`
	Error string    `json:"error,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := telnet.TrimLine(scanner.Text())
		if parseFlags.onlyRelevant && !dx.IsRelevant(line) {
			continue
		}
		res := parseResult{Line: line}
		if entry, err := dx.Parse(line); err != nil {
			res.Error = err.Error()
		} else {
			res.Entry = &entry
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func runFilter(cmd *cobra.Command, args []string) error {
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := telnet.TrimLine(scanner.Text())
		if dx.IsRelevant(line) {
			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}
