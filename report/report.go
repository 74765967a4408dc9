// Package report renders loop timing measurements as text lines, tables,
// JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/looptime/hostinfo"
	"github.com/weiihann/looptime/stopwatch"
)

// Format selects a renderer.
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

var (
	// ErrUnknownFormat is returned for an output format with no renderer.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrNoRuns is returned when there is nothing to render.
	ErrNoRuns = errors.New("no runs to report")
)

// ParseFormat validates s as an output format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
	}
}

// Run is one measurement in a structured report.
type Run struct {
	Run            int     `json:"run" yaml:"run"`
	Iterations     int     `json:"iterations" yaml:"iterations"`
	ElapsedSeconds float64 `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Elapsed        string  `json:"elapsed" yaml:"elapsed"`
}

// Document is the JSON and YAML report body.
type Document struct {
	Runs []Run          `json:"runs" yaml:"runs"`
	Host *hostinfo.Info `json:"host,omitempty" yaml:"host,omitempty"`
}

// NewDocument numbers the measurements from 1.
func NewDocument(ms []stopwatch.Measurement, host *hostinfo.Info) Document {
	doc := Document{
		Runs: make([]Run, 0, len(ms)),
		Host: host,
	}

	for i, m := range ms {
		doc.Runs = append(doc.Runs, Run{
			Run:            i + 1,
			Iterations:     m.Iterations,
			ElapsedSeconds: m.Seconds(),
			Elapsed:        FormatSeconds(m.Seconds()),
		})
	}

	return doc
}

// FormatSeconds renders secs with eight fractional digits and a "sec"
// suffix, e.g. 0.00312500sec.
func FormatSeconds(secs float64) string {
	return strconv.FormatFloat(secs, 'f', 8, 64) + "sec"
}

// WriteLine writes m as a single newline-terminated line.
func WriteLine(w io.Writer, m stopwatch.Measurement) error {
	_, err := fmt.Fprintln(w, FormatSeconds(m.Seconds()))

	return err
}

// Render writes ms to w in the given format. host is ignored by the
// text format.
func Render(
	w io.Writer,
	format Format,
	ms []stopwatch.Measurement,
	host *hostinfo.Info,
) error {
	if len(ms) == 0 {
		return ErrNoRuns
	}

	switch format {
	case FormatText:
		for _, m := range ms {
			if err := WriteLine(w, m); err != nil {
				return fmt.Errorf("write line: %w", err)
			}
		}

		return nil
	case FormatTable:
		return Generate(w, ms, host)
	case FormatJSON:
		return GenerateJSON(w, NewDocument(ms, host))
	case FormatYAML:
		return GenerateYAML(w, NewDocument(ms, host))
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}

// Generate writes a table of runs, followed by a host table when host is
// non-nil.
func Generate(w io.Writer, ms []stopwatch.Measurement, host *hostinfo.Info) error {
	if len(ms) == 0 {
		return ErrNoRuns
	}

	table := tablewriter.NewWriter(w)
	table.Header("Run", "Iterations", "Elapsed")

	for _, r := range NewDocument(ms, nil).Runs {
		if err := table.Append(
			strconv.Itoa(r.Run),
			strconv.Itoa(r.Iterations),
			r.Elapsed,
		); err != nil {
			return fmt.Errorf("append run %d: %w", r.Run, err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("render runs: %w", err)
	}

	if host == nil {
		return nil
	}

	fmt.Fprintln(w)

	hostTable := tablewriter.NewWriter(w)
	hostTable.Header("Property", "Value")

	rows := [][]string{
		{"OS", host.OS},
		{"Platform", orDash(host.Platform)},
		{"Kernel", orDash(host.KernelVersion)},
		{"Architecture", host.Architecture},
		{"CPU", orDash(host.CPUModel)},
		{"CPU Threads", strconv.Itoa(host.CPUThreads)},
		{"RAM", formatBytes(host.RAMBytes)},
		{"Go", host.GoVersion},
	}

	for _, row := range rows {
		if err := hostTable.Append(row); err != nil {
			return fmt.Errorf("append host row %s: %w", row[0], err)
		}
	}

	if err := hostTable.Render(); err != nil {
		return fmt.Errorf("render host: %w", err)
	}

	return nil
}

// GenerateJSON writes doc as indented JSON to w.
func GenerateJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(doc)
}

// GenerateYAML writes doc as YAML to w.
func GenerateYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
