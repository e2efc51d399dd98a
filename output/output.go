package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"dupfinder/bridge"
	"dupfinder/config"
	"dupfinder/logger"

	"github.com/dustin/go-humanize"
)

const SchemaVersion = "1"

// Metadata describes the search a report belongs to.
type Metadata struct {
	Method    string   `json:"method"`
	HashType  string   `json:"hash_type,omitempty"`
	Paths     []string `json:"paths"`
	StartTime string   `json:"start_time"`
}

// Summary closes a report.
type Summary struct {
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	ScannedFiles int    `json:"scanned_files"`
	Groups       int    `json:"groups"`
	TotalFiles   int    `json:"total_files"`
	WastedSpace  uint64 `json:"wasted_space"`

	Action *ActionSummary `json:"action,omitempty"`
}

// ActionSummary records what was done to the selected duplicates.
type ActionSummary struct {
	Action    string          `json:"action"`
	DryRun    bool            `json:"dry_run"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Bytes     uint64          `json:"bytes"`
	Failures  []ActionFailure `json:"failures,omitempty"`
}

type ActionFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// group is one report record. Size is zero when members differ in size,
// which only happens for groups formed by name.
type group struct {
	Index   int            `json:"index"`
	Size    uint64         `json:"size,omitempty"`
	Entries []bridge.Entry `json:"entries"`
}

func sizeRange(entries []bridge.Entry) (lo, hi uint64) {
	lo, hi = entries[0].Size, entries[0].Size
	for _, e := range entries[1:] {
		lo = min(lo, e.Size)
		hi = max(hi, e.Size)
	}
	return lo, hi
}

// Writer streams duplicate groups to a file or stdout as json, csv or text.
type Writer struct {
	mu      sync.Mutex
	out     io.Writer
	file    *os.File
	buf     *bufio.Writer
	csvw    *csv.Writer
	format  string
	first   bool
	groups  int
	files   int
	summary *Summary
	otel    *otelLogger
}

// New opens cfg.OutputFileName ("-" is stdout) and writes the report header.
func New(cfg *config.Config, meta Metadata) (*Writer, error) {
	w := &Writer{format: cfg.OutputFormat, first: true}
	if w.format == "" {
		w.format = "json"
	}
	if cfg.OutputFileName == "" || cfg.OutputFileName == "-" {
		w.out = os.Stdout
	} else {
		f, err := os.OpenFile(cfg.OutputFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, err
		}
		w.file = f
		w.out = f
	}
	w.buf = bufio.NewWriterSize(w.out, 256*1024)

	otel, err := newOtelLogger(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	} else {
		w.otel = otel
	}

	if err := w.writeHeader(meta); err != nil {
		w.closeFile()
		return nil, err
	}
	w.otel.EmitSearch(meta)
	return w, nil
}

func (w *Writer) writeHeader(meta Metadata) error {
	switch w.format {
	case "csv":
		w.csvw = csv.NewWriter(w.buf)
		return w.csvw.Write([]string{"group", "path", "size", "modified_date", "hash"})
	case "text":
		_, err := fmt.Fprintf(w.buf, "Duplicate search by %s in %d director%s, started %s\n\n",
			meta.Method, len(meta.Paths), plural(len(meta.Paths), "y", "ies"), meta.StartTime)
		return err
	default:
		metaBytes, err := jsonMarshalIndent(meta, "  ", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w.buf, "{\n  \"schema_version\": %q,\n  \"search\": %s,\n  \"groups\": [\n", SchemaVersion, metaBytes)
		return err
	}
}

// WriteGroup appends one duplicate group. Safe for concurrent use.
func (w *Writer) WriteGroup(entries []bridge.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	g := group{Index: w.groups, Entries: entries}
	if lo, hi := sizeRange(entries); lo == hi {
		g.Size = lo
	}
	var err error
	switch w.format {
	case "csv":
		err = w.writeCSVGroup(g)
	case "text":
		err = w.writeTextGroup(g)
	default:
		err = w.writeJSONGroup(g)
	}
	if err != nil {
		return err
	}
	w.groups++
	w.files += len(entries)
	w.otel.EmitGroup(g)
	return nil
}

func (w *Writer) writeJSONGroup(g group) error {
	if !w.first {
		if _, err := w.buf.WriteString(",\n"); err != nil {
			return err
		}
	}
	bytes, err := jsonMarshalIndent(g, "    ", "  ")
	if err != nil {
		return err
	}
	if _, err := w.buf.WriteString("    "); err != nil {
		return err
	}
	if _, err := w.buf.Write(bytes); err != nil {
		return err
	}
	w.first = false
	return nil
}

func (w *Writer) writeCSVGroup(g group) error {
	index := strconv.Itoa(g.Index)
	for _, e := range g.Entries {
		row := []string{
			index,
			e.Path,
			strconv.FormatUint(e.Size, 10),
			strconv.FormatUint(e.ModifiedDate, 10),
			e.Hash,
		}
		if err := w.csvw.Write(row); err != nil {
			return err
		}
	}
	w.csvw.Flush()
	return w.csvw.Error()
}

func (w *Writer) writeTextGroup(g group) error {
	var header string
	if lo, hi := sizeRange(g.Entries); lo == hi {
		header = fmt.Sprintf("Group %d: %d files of %s\n", g.Index+1, len(g.Entries), humanize.IBytes(lo))
	} else {
		header = fmt.Sprintf("Group %d: %d files, %s to %s\n", g.Index+1, len(g.Entries), humanize.IBytes(lo), humanize.IBytes(hi))
	}
	if _, err := w.buf.WriteString(header); err != nil {
		return err
	}
	for _, e := range g.Entries {
		modified := time.Unix(int64(e.ModifiedDate), 0).Format(time.RFC3339)
		if _, err := fmt.Fprintf(w.buf, "  %s  (%s)\n", e.Path, modified); err != nil {
			return err
		}
	}
	_, err := w.buf.WriteString("\n")
	return err
}

// SetSummary records the trailer written on Close. Groups and TotalFiles
// default to what was written when left at zero.
func (w *Writer) SetSummary(s Summary) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.summary = &s
}

// Counts returns the number of groups and files written so far.
func (w *Writer) Counts() (groups, files int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.groups, w.files
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	summary := Summary{}
	if w.summary != nil {
		summary = *w.summary
	}
	if summary.Groups == 0 {
		summary.Groups = w.groups
	}
	if summary.TotalFiles == 0 {
		summary.TotalFiles = w.files
	}

	err := w.writeTrailer(summary)
	w.otel.EmitSummary(summary)
	w.otel.Shutdown()
	if cerr := w.closeFile(); err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) writeTrailer(s Summary) error {
	switch w.format {
	case "csv":
		w.csvw.Flush()
		return w.csvw.Error()
	case "text":
		_, err := fmt.Fprintf(w.buf, "%s: %s in %d group%s, %s wasted (%d files scanned)\n",
			s.Status, humanize.Comma(int64(s.TotalFiles))+" files", s.Groups, plural(s.Groups, "", "s"),
			humanize.IBytes(s.WastedSpace), s.ScannedFiles)
		if err != nil || s.Action == nil {
			return err
		}
		return writeTextAction(w.buf, s.Action)
	default:
		sBytes, err := jsonMarshalIndent(s, "  ", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w.buf, "\n  ],\n  \"summary\": %s\n}\n", sBytes)
		return err
	}
}

func writeTextAction(out io.Writer, a *ActionSummary) error {
	mode := ""
	if a.DryRun {
		mode = " (dry run)"
	}
	if _, err := fmt.Fprintf(out, "%s%s: %d done, %d failed, %d skipped, %s\n",
		a.Action, mode, a.Succeeded, a.Failed, a.Skipped, humanize.IBytes(a.Bytes)); err != nil {
		return err
	}
	for _, f := range a.Failures {
		if _, err := fmt.Fprintf(out, "  failed: %s: %s\n", f.Path, f.Error); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) closeFile() error {
	err := w.buf.Flush()
	if w.file != nil {
		_ = w.file.Sync()
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
		w.file = nil
	}
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
