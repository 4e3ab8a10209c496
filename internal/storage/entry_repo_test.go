package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"memoflow/internal/pipeline"
)

func newTestDB(t *testing.T) *EntryRepo {
	t.Helper()
	dbPath := t.TempDir() + "/test.db"

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewEntryRepo(db)
}

func strptr(s string) *string { return &s }

func testEntry(id string) *EntryRecord {
	now := time.Now().UTC()
	return &EntryRecord{
		EntryID:        id,
		IngestState:    pipeline.StateCaptured,
		PipelineStatus: pipeline.StatusCaptured,
		SourceChannel:  "watch_folder_audio",
		SourceType:     "audio",
		SourcePath:     strptr("/tmp/audio/memo.mp3"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestEntryRepo_InsertAndGet(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	entry := testEntry("entry-1")
	entry.IngestFingerprint = strptr("fp-1")
	entry.FingerprintAlgo = strptr("sha256(name|size|mtime_ns)")
	entry.SemanticTags = []string{"alpha", "beta"}

	if err := repo.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.Get(ctx, "entry-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.IngestState != pipeline.StateCaptured || got.PipelineStatus != pipeline.StatusCaptured {
		t.Errorf("Get() state = %s/%s, want captured/captured", got.IngestState, got.PipelineStatus)
	}
	if got.IngestFingerprint == nil || *got.IngestFingerprint != "fp-1" {
		t.Errorf("Get() fingerprint = %v, want fp-1", got.IngestFingerprint)
	}
	if len(got.SemanticTags) != 2 || got.SemanticTags[0] != "alpha" {
		t.Errorf("Get() tags = %v, want [alpha beta]", got.SemanticTags)
	}
	if got.Retryable {
		t.Error("Get() retryable = true, want false")
	}
}

func TestEntryRepo_GetNotFound(t *testing.T) {
	repo := newTestDB(t)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestEntryRepo_DuplicateFingerprint(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	first := testEntry("entry-1")
	first.IngestFingerprint = strptr("fp-dup")
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	second := testEntry("entry-2")
	second.IngestFingerprint = strptr("fp-dup")
	err := repo.Insert(ctx, second)
	if !errors.Is(err, ErrDuplicateFingerprint) {
		t.Fatalf("Insert() error = %v, want ErrDuplicateFingerprint", err)
	}

	// Same fingerprint on a different channel is a distinct capture.
	third := testEntry("entry-3")
	third.IngestFingerprint = strptr("fp-dup")
	third.SourceChannel = "watch_folder_docs"
	if err := repo.Insert(ctx, third); err != nil {
		t.Errorf("Insert() on other channel error = %v", err)
	}
}

func TestEntryRepo_NilFingerprintsDoNotCollide(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry := testEntry(fmt.Sprintf("manual-%d", i))
		entry.SourceChannel = "manual_api"
		entry.SourcePath = nil
		if err := repo.Insert(ctx, entry); err != nil {
			t.Fatalf("Insert() #%d error = %v", i, err)
		}
	}
}

func TestEntryRepo_FindByFingerprint(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	entry := testEntry("entry-1")
	entry.IngestFingerprint = strptr("fp-1")
	if err := repo.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.FindByFingerprint(ctx, "fp-1", "watch_folder_audio")
	if err != nil {
		t.Fatalf("FindByFingerprint() error = %v", err)
	}
	if got.EntryID != "entry-1" {
		t.Errorf("FindByFingerprint() id = %s, want entry-1", got.EntryID)
	}

	_, err = repo.FindByFingerprint(ctx, "fp-1", "watch_folder_docs")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByFingerprint() wrong channel error = %v, want ErrNotFound", err)
	}
}

func TestEntryRepo_UpdateStateCAS(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	entry := testEntry("entry-1")
	if err := repo.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	captured := pipeline.Pair{State: pipeline.StateCaptured, Status: pipeline.StatusCaptured}
	queued := pipeline.Pair{State: pipeline.StateQueuedForTranscription, Status: pipeline.StatusQueuedForTranscription}

	ok, err := repo.UpdateState(ctx, "entry-1", captured, StateUpdate{
		Target:    queued,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}
	if !ok {
		t.Fatal("UpdateState() lost CAS against fresh row")
	}

	// Second update from the same expected pair must lose.
	ok, err = repo.UpdateState(ctx, "entry-1", captured, StateUpdate{
		Target:    queued,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}
	if ok {
		t.Error("UpdateState() won CAS with stale expected pair")
	}
}

func TestEntryRepo_UpdateStateWritesOutputAtomically(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	entry := testEntry("entry-1")
	entry.IngestState = pipeline.StateProcessingTranscription
	entry.PipelineStatus = pipeline.StatusTranscriptionInProgress
	if err := repo.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	ok, err := repo.UpdateState(ctx, "entry-1",
		pipeline.Pair{State: pipeline.StateProcessingTranscription, Status: pipeline.StatusTranscriptionInProgress},
		StateUpdate{
			Target:    pipeline.Pair{State: pipeline.StateProcessingNormalization, Status: pipeline.StatusTranscriptionComplete},
			Output:    OutputFields{TranscriptionText: strptr("hello world")},
			UpdatedAt: time.Now().UTC(),
		})
	if err != nil || !ok {
		t.Fatalf("UpdateState() = %v, %v", ok, err)
	}

	got, err := repo.Get(ctx, "entry-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TranscriptionText == nil || *got.TranscriptionText != "hello world" {
		t.Errorf("transcription_text = %v, want hello world", got.TranscriptionText)
	}
	if got.PipelineStatus != pipeline.StatusTranscriptionComplete {
		t.Errorf("pipeline_status = %s, want transcription_complete", got.PipelineStatus)
	}
}

func TestEntryRepo_UpdateStateErrorFields(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	entry := testEntry("entry-1")
	entry.IngestState = pipeline.StateProcessingTranscription
	entry.PipelineStatus = pipeline.StatusTranscriptionInProgress
	if err := repo.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	inProgress := pipeline.Pair{State: pipeline.StateProcessingTranscription, Status: pipeline.StatusTranscriptionInProgress}
	failed := pipeline.Pair{State: pipeline.StateFailed, Status: pipeline.StatusTranscriptionFailed}

	ok, err := repo.UpdateState(ctx, "entry-1", inProgress, StateUpdate{
		Target:    failed,
		LastError: strptr("upstream timeout"),
		Retryable: true,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil || !ok {
		t.Fatalf("UpdateState() = %v, %v", ok, err)
	}

	got, _ := repo.Get(ctx, "entry-1")
	if got.LastError == nil || *got.LastError != "upstream timeout" || !got.Retryable {
		t.Errorf("failure fields = (%v, %v), want (upstream timeout, true)", got.LastError, got.Retryable)
	}

	// Reset clears the error fields in the same statement.
	ok, err = repo.UpdateState(ctx, "entry-1", failed, StateUpdate{
		Target:     pipeline.Pair{State: pipeline.StateQueuedForTranscription, Status: pipeline.StatusQueuedForTranscription},
		ClearError: true,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil || !ok {
		t.Fatalf("UpdateState() reset = %v, %v", ok, err)
	}
	got, _ = repo.Get(ctx, "entry-1")
	if got.LastError != nil || got.Retryable {
		t.Errorf("error fields after reset = (%v, %v), want cleared", got.LastError, got.Retryable)
	}
}

func TestEntryRepo_UpdateTaxonomy(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	entry := testEntry("entry-1")
	if err := repo.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	typeID := "meeting"
	err := repo.UpdateTaxonomy(ctx, "entry-1",
		TaxonomyAssignment{Set: true, ID: &typeID, Label: "Meeting"},
		TaxonomyAssignment{},
		time.Now().UTC())
	if err != nil {
		t.Fatalf("UpdateTaxonomy() error = %v", err)
	}

	got, _ := repo.Get(ctx, "entry-1")
	if got.TypeID == nil || *got.TypeID != "meeting" || got.TypeLabel == nil || *got.TypeLabel != "Meeting" {
		t.Errorf("type pair = (%v, %v), want (meeting, Meeting)", got.TypeID, got.TypeLabel)
	}
	if got.DomainID != nil {
		t.Errorf("domain pair touched: %v", got.DomainID)
	}

	// Clearing the id keeps the label.
	err = repo.UpdateTaxonomy(ctx, "entry-1",
		TaxonomyAssignment{Set: true, ID: nil, Label: "Meeting"},
		TaxonomyAssignment{},
		time.Now().UTC())
	if err != nil {
		t.Fatalf("UpdateTaxonomy() clear error = %v", err)
	}
	got, _ = repo.Get(ctx, "entry-1")
	if got.TypeID != nil {
		t.Errorf("type_id = %v, want nil", got.TypeID)
	}
	if got.TypeLabel == nil || *got.TypeLabel != "Meeting" {
		t.Errorf("type_label = %v, want Meeting", got.TypeLabel)
	}

	if err := repo.UpdateTaxonomy(ctx, "missing", TaxonomyAssignment{Set: true, Label: "x"}, TaxonomyAssignment{}, time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTaxonomy() missing entry error = %v, want ErrNotFound", err)
	}
}

func TestEntryRepo_Counts(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	states := []struct {
		id     string
		state  pipeline.IngestState
		status pipeline.PipelineStatus
		typeID *string
	}{
		{"e1", pipeline.StateCaptured, pipeline.StatusCaptured, strptr("meeting")},
		{"e2", pipeline.StateProcessed, pipeline.StatusSemanticComplete, strptr("meeting")},
		{"e3", pipeline.StateFailed, pipeline.StatusTranscriptionFailed, nil},
		{"e4", pipeline.StateFailed, pipeline.StatusExtractionFailed, nil},
		{"e5", pipeline.StateFailed, pipeline.StatusTranscriptionFailed, nil},
	}
	for _, s := range states {
		entry := testEntry(s.id)
		entry.IngestState = s.state
		entry.PipelineStatus = s.status
		entry.TypeID = s.typeID
		if err := repo.Insert(ctx, entry); err != nil {
			t.Fatalf("Insert(%s) error = %v", s.id, err)
		}
	}

	byState, err := repo.CountByState(ctx)
	if err != nil {
		t.Fatalf("CountByState() error = %v", err)
	}
	if byState[pipeline.StateFailed] != 3 || byState[pipeline.StateCaptured] != 1 {
		t.Errorf("CountByState() = %v", byState)
	}

	failures, err := repo.CountFailuresByStatus(ctx)
	if err != nil {
		t.Fatalf("CountFailuresByStatus() error = %v", err)
	}
	if failures[pipeline.StatusTranscriptionFailed] != 2 || failures[pipeline.StatusExtractionFailed] != 1 {
		t.Errorf("CountFailuresByStatus() = %v", failures)
	}

	refs, err := repo.CountTaxonomyRefs(ctx, KindType, "meeting")
	if err != nil {
		t.Fatalf("CountTaxonomyRefs() error = %v", err)
	}
	if refs != 2 {
		t.Errorf("CountTaxonomyRefs() = %d, want 2", refs)
	}

	classified, err := repo.CountClassified(ctx)
	if err != nil {
		t.Fatalf("CountClassified() error = %v", err)
	}
	if classified != refs {
		t.Errorf("CountClassified() = %d, want %d", classified, refs)
	}
}

func TestEntryRepo_Search(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := testEntry(fmt.Sprintf("e%d", i))
		entry.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		entry.UpdatedAt = entry.CreatedAt
		entry.NormalizedText = strptr(fmt.Sprintf("note number %d about gardening", i))
		if i%2 == 0 {
			entry.IngestState = pipeline.StateProcessed
			entry.PipelineStatus = pipeline.StatusSemanticComplete
		}
		if err := repo.Insert(ctx, entry); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	result, err := repo.Search(ctx, EntrySearchFilters{
		States: []pipeline.IngestState{pipeline.StateProcessed},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Total != 3 || len(result.Items) != 3 {
		t.Errorf("Search() total = %d, items = %d, want 3/3", result.Total, len(result.Items))
	}

	// Default ordering is updated_at DESC.
	if result.Items[0].EntryID != "e4" {
		t.Errorf("Search() first item = %s, want e4", result.Items[0].EntryID)
	}

	result, err = repo.Search(ctx, EntrySearchFilters{Terms: []string{"gardening", "number 3"}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Total != 1 || result.Items[0].EntryID != "e3" {
		t.Errorf("Search() terms result = %+v", result)
	}

	result, err = repo.Search(ctx, EntrySearchFilters{Limit: 2, Offset: 2, SortBy: "created_at", SortDir: "asc"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Total != 5 || len(result.Items) != 2 || result.Items[0].EntryID != "e2" {
		t.Errorf("Search() page = %+v", result)
	}
}
