package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// outputWriter handles formatted output (text or JSON)
type outputWriter struct {
	json    bool
	verbose bool
	writer  io.Writer
	errs    io.Writer
}

func newOutputWriter(useJSON, noColor, verbose bool) *outputWriter {
	if noColor {
		color.NoColor = true
	}
	return &outputWriter{
		json:    useJSON,
		verbose: verbose,
		writer:  color.Output,
		errs:    os.Stderr,
	}
}

// writeJSON outputs data as JSON
func (o *outputWriter) writeJSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// writeTable outputs tabular data
func (o *outputWriter) writeTable(headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(o.writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return w.Flush()
}

// writeMessage outputs a simple message
func (o *outputWriter) writeMessage(msg string) {
	fmt.Fprintln(o.writer, msg)
}

// writeResult reports a completed mutation, as JSON when requested.
func (o *outputWriter) writeResult(action, messageID, text string) error {
	if o.json {
		return o.writeJSON(map[string]string{
			"action": action,
			"id":     messageID,
		})
	}
	o.writeMessage(text)
	return nil
}

// writeError outputs an error message to stderr
func (o *outputWriter) writeError(err error) {
	fmt.Fprintf(o.errs, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
}

// truncateString truncates a string to maxLen runes with ellipsis
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
