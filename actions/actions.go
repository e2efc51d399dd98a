// Package actions resolves duplicate groups on disk: selected copies are
// deleted, trashed, moved or replaced by links to the copy that is kept.
package actions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"dupfinder/bridge"
	"dupfinder/logger"

	"github.com/dustin/go-humanize"
)

// Kind is the operation applied to selected files.
type Kind int

const (
	None Kind = iota
	Delete
	Trash
	Move
	Hardlink
	Symlink
)

var kindNames = map[Kind]string{
	None:     "none",
	Delete:   "delete",
	Trash:    "trash",
	Move:     "move",
	Hardlink: "hardlink",
	Symlink:  "symlink",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Links reports whether k replaces files with links to the kept copy. Only
// content-identical groups may be linked.
func (k Kind) Links() bool {
	return k == Hardlink || k == Symlink
}

func ParseKind(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for kind, kindName := range kindNames {
		if kindName == key {
			return kind, nil
		}
	}
	return None, fmt.Errorf("unknown action: %s", name)
}

var (
	ErrNoDestination = errors.New("move requires a destination directory")
	errChanged       = errors.New("file changed since the search")
	errNotRegular    = errors.New("not a regular file")
)

// Options tune Apply. MoveTo must name an existing directory for Move.
type Options struct {
	MoveTo string
	DryRun bool
}

// Result is the outcome for one selected file. Target is the kept copy for
// links and the new location for Move and Trash.
type Result struct {
	Path    string
	Target  string
	Size    uint64
	Skipped bool
	Err     error
}

// Report sums up one Apply call. Bytes counts the sizes of files acted on.
type Report struct {
	Kind      Kind
	DryRun    bool
	Succeeded int
	Failed    int
	Skipped   int
	Bytes     uint64
	Results   []Result
}

// Failures returns the results that carry an error.
func (r Report) Failures() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch {
	case res.Err != nil:
		r.Failed++
	case res.Skipped:
		r.Skipped++
	default:
		r.Succeeded++
		r.Bytes += res.Size
	}
}

// Apply runs kind over the selection. Each group keeps one copy (see
// Selection.plan). Per-file failures are collected in the report; the
// returned error is reserved for invalid options and cancellation.
func Apply(ctx context.Context, kind Kind, sel *Selection, opts Options) (Report, error) {
	report := Report{Kind: kind, DryRun: opts.DryRun}
	if kind == None || sel == nil {
		return report, nil
	}
	if _, ok := kindNames[kind]; !ok {
		return report, fmt.Errorf("unknown action: %s", kind)
	}
	if kind == Move {
		if opts.MoveTo == "" {
			return report, ErrNoDestination
		}
		info, err := os.Stat(opts.MoveTo)
		if err != nil {
			return report, fmt.Errorf("move destination: %w", err)
		}
		if !info.IsDir() {
			return report, fmt.Errorf("move destination %s is not a directory", opts.MoveTo)
		}
	}

	for _, p := range sel.plan() {
		var originalInfo os.FileInfo
		var originalErr error
		if kind.Links() {
			originalInfo, originalErr = os.Stat(p.original.Path)
		}
		for _, target := range p.targets {
			if err := ctx.Err(); err != nil {
				report.log()
				return report, err
			}
			res := Result{Path: target.Path, Size: target.Size}
			if originalErr != nil {
				res.Err = fmt.Errorf("kept copy %s: %w", p.original.Path, originalErr)
			} else {
				applyOne(kind, opts, p.original, originalInfo, target, &res)
			}
			if res.Err != nil {
				logger.Warnf("Failed to %s %s: %v", kind, target.Path, res.Err)
			} else if opts.DryRun && !res.Skipped {
				logger.Infof("Would %s %s", kind, target.Path)
			}
			report.add(res)
		}
	}
	report.log()
	return report, nil
}

func applyOne(kind Kind, opts Options, original bridge.Entry, originalInfo os.FileInfo, target bridge.Entry, res *Result) {
	info, err := os.Lstat(target.Path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debugf("Skipping %s: no longer exists", target.Path)
		res.Skipped = true
		return
	}
	if err != nil {
		res.Err = err
		return
	}
	if !info.Mode().IsRegular() {
		res.Err = errNotRegular
		return
	}
	if uint64(info.Size()) != target.Size {
		res.Err = errChanged
		return
	}
	if kind.Links() {
		res.Target = original.Path
		if os.SameFile(originalInfo, info) {
			logger.Debugf("Skipping %s: already linked to %s", target.Path, original.Path)
			res.Skipped = true
			return
		}
	}
	if opts.DryRun {
		if kind == Move {
			res.Target = uniquePath(opts.MoveTo, info.Name())
		}
		return
	}

	switch kind {
	case Delete:
		res.Err = os.Remove(target.Path)
	case Trash:
		res.Target, res.Err = moveToTrash(target.Path)
	case Move:
		res.Target = uniquePath(opts.MoveTo, info.Name())
		res.Err = moveFile(target.Path, res.Target)
	case Hardlink, Symlink:
		res.Err = replaceWithLink(original.Path, target.Path, kind == Symlink)
	}
}

func (r Report) log() {
	fields := logger.WithFields(map[string]interface{}{
		"action":    r.Kind.String(),
		"dry_run":   r.DryRun,
		"succeeded": r.Succeeded,
		"failed":    r.Failed,
		"skipped":   r.Skipped,
	})
	if r.Failed > 0 {
		fields.Warnf("Duplicate action finished with failures, %s handled", humanize.IBytes(r.Bytes))
		return
	}
	fields.Infof("Duplicate action finished, %s handled", humanize.IBytes(r.Bytes))
}
