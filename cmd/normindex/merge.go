package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/domain/norm"
	"github.com/kailas-cloud/normrag/internal/repository/normstore"
	"github.com/kailas-cloud/normrag/internal/usecase/ingest"
)

type mergeArgs struct {
	kind string
	into string
	from globList
	lock string
}

func runMerge(args []string, stderr io.Writer, logger *zap.Logger) error {
	var a mergeArgs
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&a.kind, "kind", kindText, "collection kind: text or table")
	fs.StringVar(&a.into, "into", "", "collection file to merge into (created if missing)")
	fs.Var(&a.from, "from", "glob of extracted files, ** allowed (repeatable)")
	fs.StringVar(&a.lock, "lock", "", "lock file (default: .normindex.lock next to -into)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.from = append(a.from, fs.Args()...)

	if err := validKind(a.kind); err != nil {
		return err
	}
	if a.into == "" || len(a.from) == 0 {
		fs.Usage()
		return fmt.Errorf("%w: -into and -from are required", errUsage)
	}
	if a.lock == "" {
		a.lock = filepath.Join(filepath.Dir(a.into), ".normindex.lock")
	}

	files, err := expandGlobs(a.from, a.into)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %v", []string(a.from))
	}

	release, err := ingest.Lock(a.lock)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			logger.Warn("Failed to release lock", zap.String("lock", a.lock), zap.Error(err))
		}
	}()

	var stats ingest.MergeStats
	if a.kind == kindText {
		stats, err = mergeText(a.into, files, logger)
	} else {
		stats, err = mergeTable(a.into, files, logger)
	}
	if err != nil {
		return err
	}

	logger.Info("Merge complete",
		zap.String("kind", a.kind),
		zap.String("into", a.into),
		zap.Int("files", len(files)),
		zap.Int("existing", stats.Existing),
		zap.Int("added", stats.Added),
		zap.Int("skipped", stats.Skipped),
	)
	if stats.Added > 0 {
		logger.Info("Collection changed, rebuild the index", zap.String("kind", a.kind))
	}
	return nil
}

// expandGlobs resolves patterns into a sorted, de-duplicated file list, never including target.
func expandGlobs(patterns []string, target string) ([]string, error) {
	targetAbs, _ := filepath.Abs(target)
	seen := make(map[string]struct{})
	var out []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		for _, m := range matches {
			abs, _ := filepath.Abs(m)
			if abs == targetAbs {
				continue
			}
			if _, ok := seen[abs]; ok {
				continue
			}
			seen[abs] = struct{}{}
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return out, nil
}

func mergeText(into string, files []string, logger *zap.Logger) (ingest.MergeStats, error) {
	var existing []norm.Text
	if normstore.Exists(into) {
		var err error
		existing, _, err = normstore.LoadTextNorms(into)
		if err != nil {
			return ingest.MergeStats{}, fmt.Errorf("load %s: %w", into, err)
		}
	}

	var incoming []norm.Text
	for _, f := range files {
		norms, st, err := normstore.LoadTextNorms(f)
		if err != nil {
			return ingest.MergeStats{}, fmt.Errorf("load %s: %w", f, err)
		}
		if st.Invalid > 0 {
			logger.Warn("Skipped invalid records", zap.String("file", f), zap.Int("invalid", st.Invalid))
		}
		incoming = append(incoming, norms...)
	}

	merged, stats := ingest.MergeByFullID(existing, incoming)
	if err := normstore.SaveTextNorms(into, merged); err != nil {
		return ingest.MergeStats{}, fmt.Errorf("save %s: %w", into, err)
	}
	return stats, nil
}

func mergeTable(into string, files []string, logger *zap.Logger) (ingest.MergeStats, error) {
	var existing []norm.Table
	if normstore.Exists(into) {
		var err error
		existing, _, err = normstore.LoadTableNorms(into)
		if err != nil {
			return ingest.MergeStats{}, fmt.Errorf("load %s: %w", into, err)
		}
	}

	var incoming []norm.Table
	for _, f := range files {
		rows, err := normstore.ReadTableRows(f)
		if err != nil {
			return ingest.MergeStats{}, fmt.Errorf("load %s: %w", f, err)
		}
		// Carry-forward state never crosses a file boundary
		norms, dropped := ingest.CarryForwardIndicators(rows)
		if dropped > 0 {
			logger.Warn("Dropped table rows", zap.String("file", f), zap.Int("dropped", dropped))
		}
		incoming = append(incoming, norms...)
	}

	merged, stats := ingest.MergeByFullID(existing, incoming)
	if err := normstore.SaveTableNorms(into, merged); err != nil {
		return ingest.MergeStats{}, fmt.Errorf("save %s: %w", into, err)
	}
	return stats, nil
}
