package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kusuri/internal/models"
	"go.uber.org/zap"
)

// recordingProcessor records ingestions and optionally fails them.
type recordingProcessor struct {
	mu    sync.Mutex
	calls []string // userID:filename
	err   error
}

func (p *recordingProcessor) ProcessPDF(ctx context.Context, userID string, pdfBytes []byte, meta models.UploadMetadata) (*models.ProcessResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, userID+":"+meta.Filename)
	if p.err != nil {
		return nil, p.err
	}
	return &models.ProcessResult{Success: true, VectorCount: 1}, nil
}

func (p *recordingProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestIngester_ScansExistingFiles(t *testing.T) {
	root := t.TempDir()
	userDir := filepath.Join(root, "alice")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	pdfPath := filepath.Join(userDir, "rx.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF fake"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	proc := &recordingProcessor{}
	in := NewIngester(root, proc, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer in.Stop()

	if got := proc.callCount(); got != 1 {
		t.Fatalf("ingestions=%d, want 1", got)
	}
	if proc.calls[0] != "alice:rx.pdf" {
		t.Errorf("call=%q", proc.calls[0])
	}
	// Processed file is renamed so a rescan skips it.
	if _, err := os.Stat(pdfPath + doneSuffix); err != nil {
		t.Errorf("expected %s%s to exist: %v", pdfPath, doneSuffix, err)
	}
}

func TestIngester_MarksRejected(t *testing.T) {
	root := t.TempDir()
	userDir := filepath.Join(root, "bob")
	os.MkdirAll(userDir, 0755)
	pdfPath := filepath.Join(userDir, "junk.pdf")
	os.WriteFile(pdfPath, []byte("junk"), 0644)

	proc := &recordingProcessor{err: errors.New("not medical")}
	in := NewIngester(root, proc, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer in.Stop()

	if _, err := os.Stat(pdfPath + rejectedSuffix); err != nil {
		t.Errorf("expected rejected rename: %v", err)
	}
}

func TestIngester_IgnoresFilesOutsideUserDirs(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "stray.pdf"), []byte("x"), 0644)

	proc := &recordingProcessor{}
	in := NewIngester(root, proc, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer in.Stop()

	if got := proc.callCount(); got != 0 {
		t.Errorf("stray file at root should not be ingested, got %d calls", got)
	}
}

func TestIngester_PicksUpDroppedFile(t *testing.T) {
	root := t.TempDir()
	userDir := filepath.Join(root, "carol")
	os.MkdirAll(userDir, 0755)

	proc := &recordingProcessor{}
	in := NewIngester(root, proc, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer in.Stop()

	if err := os.WriteFile(filepath.Join(userDir, "new.pdf"), []byte("%PDF"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for proc.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("dropped file was not ingested")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestUserIDFor(t *testing.T) {
	in := NewIngester("/inbox", nil, zap.NewNop())
	tests := []struct {
		path string
		want string
	}{
		{"/inbox/alice/rx.pdf", "alice"},
		{"/inbox/alice/nested/rx.pdf", "alice"},
		{"/inbox/stray.pdf", ""},
		{"/elsewhere/alice/rx.pdf", ""},
	}
	for _, tt := range tests {
		if got := in.userIDFor(tt.path); got != tt.want {
			t.Errorf("userIDFor(%q)=%q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestIsPendingPDF(t *testing.T) {
	if !isPendingPDF("/x/a.pdf") || !isPendingPDF("/x/a.PDF") {
		t.Error("pdf extensions should match")
	}
	if isPendingPDF("/x/a.pdf.done") || isPendingPDF("/x/a.pdf.rejected") || isPendingPDF("/x/a.txt") {
		t.Error("processed or non-pdf files should not match")
	}
}
