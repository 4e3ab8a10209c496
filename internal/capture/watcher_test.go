package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"memoflow/internal/entrystore"
	"memoflow/internal/events/mocks"
	"memoflow/internal/jobqueue"
	"memoflow/internal/pipeline"
	"memoflow/internal/storage"
)

func newWatcherFixture(t *testing.T) (*entrystore.Store, *jobqueue.Queue) {
	t.Helper()
	dbPath := t.TempDir() + "/test.db"

	db, err := storage.New(dbPath)
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctrl := gomock.NewController(t)
	emitter := mocks.NewMockEmitter(ctrl)
	emitter.EXPECT().Emit(gomock.Any(), gomock.Any()).AnyTimes()

	store := entrystore.New(storage.NewEntryRepo(db), storage.NewTaxonomyRepo(db), emitter)
	queue := jobqueue.New(64)
	t.Cleanup(queue.Close)
	return store, queue
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
	return path
}

func drainJobs(t *testing.T, queue *jobqueue.Queue) []jobqueue.Job {
	t.Helper()
	var jobs []jobqueue.Job
	for queue.Len() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		job, err := queue.Dequeue(ctx)
		cancel()
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func TestWatcher_ScanOnceRoutesByExtension(t *testing.T) {
	store, queue := newWatcherFixture(t)
	audioDir := t.TempDir()
	docsDir := t.TempDir()

	writeFile(t, audioDir, "memo.mp3", "audio")
	writeFile(t, docsDir, "note.md", "# heading")
	writeFile(t, docsDir, "ignore.pdf", "binary")

	w := NewWatcher(store, queue, audioDir, docsDir, time.Minute)
	if err := w.ScanOnce(context.Background()); err != nil {
		t.Fatalf("ScanOnce() error = %v", err)
	}

	jobs := drainJobs(t, queue)
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2 (pdf ignored)", len(jobs))
	}
	byType := map[jobqueue.Type]int{}
	for _, job := range jobs {
		byType[job.Type]++
		if job.CorrelationID == "" {
			t.Error("job missing correlation id")
		}
	}
	if byType[jobqueue.TypeTranscription] != 1 || byType[jobqueue.TypeExtraction] != 1 {
		t.Errorf("job types = %v", byType)
	}

	// The audio entry is queued on the transcription path.
	result, err := store.Search(context.Background(), storage.EntrySearchFilters{
		States: []pipeline.IngestState{pipeline.StateQueuedForTranscription},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Total != 1 {
		t.Errorf("queued_for_transcription entries = %d, want 1", result.Total)
	}
	if result.Items[0].SourceChannel != ChannelWatchAudio || result.Items[0].SourceType != SourceTypeAudio {
		t.Errorf("entry source = %s/%s", result.Items[0].SourceChannel, result.Items[0].SourceType)
	}
	if result.Items[0].FingerprintAlgo == nil || *result.Items[0].FingerprintAlgo != FingerprintAlgo {
		t.Errorf("fingerprint_algo = %v", result.Items[0].FingerprintAlgo)
	}
}

func TestWatcher_RescanDoesNotDuplicate(t *testing.T) {
	store, queue := newWatcherFixture(t)
	docsDir := t.TempDir()
	writeFile(t, docsDir, "note.txt", "plain text")

	w := NewWatcher(store, queue, "", docsDir, time.Minute)
	for i := 0; i < 3; i++ {
		if err := w.ScanOnce(context.Background()); err != nil {
			t.Fatalf("ScanOnce() #%d error = %v", i, err)
		}
	}

	result, err := store.Search(context.Background(), storage.EntrySearchFilters{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Total != 1 {
		t.Errorf("entries after 3 scans = %d, want 1", result.Total)
	}

	// Re-publishing queued jobs is allowed; workers drop stale claims.
	jobs := drainJobs(t, queue)
	for _, job := range jobs {
		if job.Type != jobqueue.TypeExtraction {
			t.Errorf("job type = %s, want extraction", job.Type)
		}
	}
}

func TestWatcher_ModifiedFileIsNewCapture(t *testing.T) {
	store, queue := newWatcherFixture(t)
	docsDir := t.TempDir()
	path := writeFile(t, docsDir, "note.txt", "v1")

	w := NewWatcher(store, queue, "", docsDir, time.Minute)
	if err := w.ScanOnce(context.Background()); err != nil {
		t.Fatalf("ScanOnce() error = %v", err)
	}

	// Change size and mtime; the fingerprint triple changes.
	if err := os.WriteFile(path, []byte("v2 with more text"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	future := time.Now().Add(5 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	if err := w.ScanOnce(context.Background()); err != nil {
		t.Fatalf("second ScanOnce() error = %v", err)
	}

	result, err := store.Search(context.Background(), storage.EntrySearchFilters{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Total != 2 {
		t.Errorf("entries = %d, want 2 distinct captures", result.Total)
	}
}

func TestJobTypeFor(t *testing.T) {
	tests := []struct {
		name     string
		pair     pipeline.Pair
		wantType jobqueue.Type
		wantOK   bool
	}{
		{
			"queued for transcription",
			pipeline.Pair{State: pipeline.StateQueuedForTranscription, Status: pipeline.StatusQueuedForTranscription},
			jobqueue.TypeTranscription, true,
		},
		{
			"queued for extraction",
			pipeline.Pair{State: pipeline.StateQueuedForExtraction, Status: pipeline.StatusQueuedForExtraction},
			jobqueue.TypeExtraction, true,
		},
		{
			"transcription complete feeds normalization",
			pipeline.Pair{State: pipeline.StateProcessingNormalization, Status: pipeline.StatusTranscriptionComplete},
			jobqueue.TypeNormalization, true,
		},
		{
			"reset into normalization queue",
			pipeline.Pair{State: pipeline.StateProcessingNormalization, Status: pipeline.StatusQueuedForNormalization},
			jobqueue.TypeNormalization, true,
		},
		{
			"normalization complete feeds semantic",
			pipeline.Pair{State: pipeline.StateProcessingSemantic, Status: pipeline.StatusNormalizationComplete},
			jobqueue.TypeSemantic, true,
		},
		{
			"semantic skipped terminal pair maps to nothing",
			pipeline.Pair{State: pipeline.StateProcessed, Status: pipeline.StatusNormalizationComplete},
			"", false,
		},
		{
			"in-progress pair maps to nothing",
			pipeline.Pair{State: pipeline.StateProcessingTranscription, Status: pipeline.StatusTranscriptionInProgress},
			"", false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobType, ok := JobTypeFor(tt.pair)
			if ok != tt.wantOK || jobType != tt.wantType {
				t.Errorf("JobTypeFor() = (%s, %v), want (%s, %v)", jobType, ok, tt.wantType, tt.wantOK)
			}
		})
	}
}
