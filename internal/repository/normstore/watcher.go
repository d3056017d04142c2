package normstore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/metrics"
)

// DefaultDebounce is the quiet period after the last file event before reloading.
const DefaultDebounce = 2 * time.Second

// Watcher reloads the store when its files change and swaps the snapshot
// only if both collections are aligned with their indexes.
type Watcher struct {
	paths    Paths
	holder   *Holder
	debounce time.Duration
	logger   *zap.Logger
	load     func(Paths) (*Snapshot, error)
}

// NewWatcher creates a watcher. debounce <= 0 uses DefaultDebounce.
func NewWatcher(paths Paths, holder *Holder, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{paths: paths, holder: holder, debounce: debounce, logger: logger, load: Load}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	watched := make(map[string]struct{})
	dirs := make(map[string]struct{})
	for _, f := range w.paths.Files() {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		watched[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for d := range dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(ev.Name)
			if _, ok := watched[abs]; !ok {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Store watcher error", zap.Error(err))
		case <-timer.C:
			w.Reload()
		}
	}
}

// Reload loads the store from disk and swaps it in when aligned.
// It reports whether a swap happened.
func (w *Watcher) Reload() bool {
	s, err := w.load(w.paths)
	if err != nil {
		metrics.StoreReloadsTotal.WithLabelValues("error").Inc()
		w.logger.Warn("Store reload failed, keeping current snapshot", zap.Error(err))
		return false
	}
	if err := s.Validate(); err != nil {
		metrics.StoreReloadsTotal.WithLabelValues("misaligned").Inc()
		w.logger.Warn("Store reload skipped, keeping current snapshot", zap.Error(err))
		return false
	}

	w.holder.Swap(s)
	metrics.StoreReloadsTotal.WithLabelValues("swapped").Inc()
	ReportRecords(s)
	w.logger.Info("Store reloaded",
		zap.Int("text_norms", s.Text.Len()),
		zap.Int("table_norms", s.Table.Len()),
	)
	return true
}

// ReportRecords publishes the record gauges for s.
func ReportRecords(s *Snapshot) {
	metrics.StoreRecords.WithLabelValues("text").Set(float64(s.Text.Len()))
	metrics.StoreRecords.WithLabelValues("table").Set(float64(s.Table.Len()))
}
