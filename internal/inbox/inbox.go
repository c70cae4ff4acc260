// Package inbox ingests prescription PDFs dropped into per-user directories.
// A file created at <root>/<userID>/x.pdf is run through the pipeline for
// that user, then renamed with a .done or .rejected suffix so rescans skip it.
package inbox

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/hyperjump/kusuri/internal/models"
	"go.uber.org/zap"
)

// Processor ingests a PDF for a user. Implemented by pipeline.Pipeline.
type Processor interface {
	ProcessPDF(ctx context.Context, userID string, pdfBytes []byte, meta models.UploadMetadata) (*models.ProcessResult, error)
}

const (
	defaultDebounce = 400 * time.Millisecond
	doneSuffix      = ".done"
	rejectedSuffix  = ".rejected"
)

// Ingester watches an inbox root and feeds dropped PDFs to the pipeline.
// The first path element under the root is the user ID; deeper nesting is
// ignored. Files already in the inbox at start are picked up by an initial
// scan.
type Ingester struct {
	root      string
	processor Processor
	debounce  time.Duration
	logger    *zap.Logger

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
}

// NewIngester creates an ingester for the given inbox root.
func NewIngester(root string, processor Processor, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		root:        filepath.Clean(root),
		processor:   processor,
		debounce:    defaultDebounce,
		logger:      logger,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
}

// Start scans the inbox for PDFs already present, then watches for new ones.
// Runs until ctx is cancelled or Stop is called.
func (in *Ingester) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.started {
		in.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		in.mu.Unlock()
		return err
	}
	in.watcher = watcher
	in.started = true
	in.mu.Unlock()

	if err := in.addDirs(); err != nil {
		in.Stop()
		return err
	}
	in.logger.Info("inbox watching", zap.String("root", in.root))

	in.scan(ctx)
	go in.run(ctx)
	return nil
}

// addDirs watches the root and each existing user directory under it.
func (in *Ingester) addDirs() error {
	if err := in.watcher.Add(in.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(in.root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := in.watcher.Add(filepath.Join(in.root, entry.Name())); err != nil {
				in.logger.Warn("inbox failed to watch user dir",
					zap.String("dir", entry.Name()), zap.Error(err))
			}
		}
	}
	return nil
}

// scan processes PDFs already sitting in the inbox.
func (in *Ingester) scan(ctx context.Context) {
	filepath.WalkDir(in.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if isPendingPDF(path) {
			in.ingest(ctx, path)
		}
		return nil
	})
}

func (in *Ingester) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			in.Stop()
			return
		case <-in.done:
			return
		case ev, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			in.handleEvent(ctx, ev)
		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				in.logger.Debug("inbox watcher error", zap.Error(err))
			}
		}
	}
}

func (in *Ingester) handleEvent(ctx context.Context, ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
	default:
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		// New user directory appeared; watch it for drops.
		if err := in.watcher.Add(ev.Name); err != nil {
			in.logger.Warn("inbox failed to watch new dir", zap.String("dir", ev.Name), zap.Error(err))
		}
		return
	}
	if isPendingPDF(ev.Name) {
		in.debounceIngest(ctx, ev.Name)
	}
}

// debounceIngest waits for writes to settle before processing a file.
func (in *Ingester) debounceIngest(ctx context.Context, path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.debounceMap[path]; ok {
		t.Stop()
	}
	in.debounceMap[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.debounceMap, path)
		in.mu.Unlock()
		in.ingest(ctx, path)
	})
}

// ingest runs one dropped file through the pipeline and renames it according
// to the outcome.
func (in *Ingester) ingest(ctx context.Context, path string) {
	userID := in.userIDFor(path)
	if userID == "" {
		in.logger.Debug("inbox file outside a user directory", zap.String("path", path))
		return
	}
	jobID := uuid.New().String()[:8]
	logger := in.logger.With(
		zap.String("job_id", jobID),
		zap.String("user_id", userID),
		zap.String("path", path),
	)

	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("inbox read failed", zap.Error(err))
		return
	}
	result, err := in.processor.ProcessPDF(ctx, userID, pdfBytes, models.UploadMetadata{
		Filename:   filepath.Base(path),
		UploadDate: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("inbox ingestion rejected", zap.Error(err))
		in.markDone(path, rejectedSuffix, logger)
		return
	}
	logger.Info("inbox ingestion complete",
		zap.Int("chunks", result.ChunkCount),
		zap.Int("stored", result.VectorCount),
	)
	in.markDone(path, doneSuffix, logger)
}

func (in *Ingester) markDone(path, suffix string, logger *zap.Logger) {
	if err := os.Rename(path, path+suffix); err != nil {
		logger.Warn("inbox rename failed", zap.Error(err))
	}
}

// userIDFor extracts the user ID from the first path element under the root.
func (in *Ingester) userIDFor(path string) string {
	rel, err := filepath.Rel(in.root, filepath.Clean(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// Stop stops the ingester and releases the watcher.
func (in *Ingester) Stop() {
	in.stopOnce.Do(func() {
		close(in.done)
		in.mu.Lock()
		defer in.mu.Unlock()
		for _, t := range in.debounceMap {
			t.Stop()
		}
		if in.watcher != nil {
			_ = in.watcher.Close()
		}
	})
}

func isPendingPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
