package taxonomy

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"memoflow/internal/events"
	eventmocks "memoflow/internal/events/mocks"
	"memoflow/internal/storage"
	storagemocks "memoflow/internal/storage/mocks"
)

type serviceFixture struct {
	service  *Service
	repo     *storagemocks.MockTaxonomyStore
	entries  *storagemocks.MockEntryStore
	emitter  *eventmocks.MockEmitter
	emitted  *[]events.Event
	deleteOK bool
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &serviceFixture{
		repo:    storagemocks.NewMockTaxonomyStore(ctrl),
		entries: storagemocks.NewMockEntryStore(ctrl),
		emitter: eventmocks.NewMockEmitter(ctrl),
	}
	var emitted []events.Event
	f.emitted = &emitted
	f.emitter.EXPECT().Emit(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e events.Event) {
		emitted = append(emitted, e)
	}).AnyTimes()

	f.service = New(f.repo, f.entries, f.emitter, func() bool { return f.deleteOK })
	return f
}

func record(id string, active bool) *storage.TaxonomyRecord {
	return &storage.TaxonomyRecord{
		ID: id, Name: id, Label: "Label " + id,
		Active: active, SortOrder: 500,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing id", CreateInput{Label: "Meeting"}},
		{"missing label", CreateInput{ID: "meeting"}},
		{"negative sort order", CreateInput{ID: "meeting", Label: "Meeting", SortOrder: intptr(-1)}},
		{"sort order too large", CreateInput{ID: "meeting", Label: "Meeting", SortOrder: intptr(20000)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Create(ctx, storage.KindType, tt.in, "op")
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Create() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestService_CreateDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created *storage.TaxonomyRecord
	f.repo.EXPECT().Create(ctx, storage.KindType, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ storage.TaxonomyKind, r *storage.TaxonomyRecord) error {
			created = r
			return nil
		})
	f.repo.EXPECT().List(ctx, storage.KindType, true).Return([]*storage.TaxonomyRecord{record("meeting", true)}, nil)

	got, err := f.service.Create(ctx, storage.KindType, CreateInput{ID: "meeting", Label: "Meeting"}, "op")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Name != "meeting" {
		t.Errorf("name defaulted to %q, want id", created.Name)
	}
	if created.SortOrder != 500 || !created.Active {
		t.Errorf("defaults = (%d, %v), want (500, true)", created.SortOrder, created.Active)
	}
	if got != created {
		t.Error("Create() did not return the stored record")
	}
	if len(*f.emitted) != 1 || (*f.emitted)[0].Topic != "taxonomy.type.created" {
		t.Errorf("emitted = %v, want taxonomy.type.created", *f.emitted)
	}
}

func TestService_UpdateImmutableID(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Update(context.Background(), storage.KindType, "meeting",
		UpdatePatch{ID: strptr("renamed")}, "op")
	if !errors.Is(err, ErrImmutableField) {
		t.Errorf("Update() error = %v, want ErrImmutableField", err)
	}

	// An id matching the record is a no-op, not a violation.
	f.repo.EXPECT().Get(gomock.Any(), storage.KindType, "meeting").Return(record("meeting", true), nil)
	f.repo.EXPECT().Update(gomock.Any(), storage.KindType, "meeting", gomock.Any(), gomock.Any()).
		Return(record("meeting", true), nil)
	if _, err := f.service.Update(context.Background(), storage.KindType, "meeting",
		UpdatePatch{ID: strptr("meeting"), Label: strptr("Weekly Meeting")}, "op"); err != nil {
		t.Errorf("Update() with matching id error = %v", err)
	}
}

func TestService_DeactivateReactivateActions(t *testing.T) {
	tests := []struct {
		name       string
		before     bool
		after      bool
		wantAction string
	}{
		{"deactivate", true, false, "deactivated"},
		{"reactivate", false, true, "reactivated"},
		{"plain update", true, true, "updated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			f.repo.EXPECT().Get(ctx, storage.KindDomain, "work").Return(record("work", tt.before), nil)
			f.repo.EXPECT().Update(ctx, storage.KindDomain, "work", gomock.Any(), gomock.Any()).
				Return(record("work", tt.after), nil)
			if tt.wantAction != "updated" {
				f.repo.EXPECT().List(ctx, storage.KindDomain, true).Return(nil, nil)
			}

			active := tt.after
			if _, err := f.service.Update(ctx, storage.KindDomain, "work", UpdatePatch{Active: &active}, "op"); err != nil {
				t.Fatalf("Update() error = %v", err)
			}

			want := "taxonomy.domain." + tt.wantAction
			if len(*f.emitted) != 1 || (*f.emitted)[0].Topic != want {
				t.Errorf("emitted topic = %v, want %s", *f.emitted, want)
			}
		})
	}
}

func TestService_DeleteDisabled(t *testing.T) {
	f := newFixture(t)
	f.deleteOK = false

	_, err := f.service.Delete(context.Background(), storage.KindType, "meeting", "op")
	if !errors.Is(err, ErrDeleteDisabled) {
		t.Errorf("Delete() error = %v, want ErrDeleteDisabled", err)
	}
	if len(*f.emitted) != 0 {
		t.Errorf("emitted = %v, want none for a blocked delete", *f.emitted)
	}
}

func TestService_DeleteReportsReferences(t *testing.T) {
	f := newFixture(t)
	f.deleteOK = true
	ctx := context.Background()

	f.repo.EXPECT().Get(ctx, storage.KindType, "meeting").Return(record("meeting", true), nil)
	f.entries.EXPECT().CountTaxonomyRefs(ctx, storage.KindType, "meeting").Return(7, nil)
	f.repo.EXPECT().Delete(ctx, storage.KindType, "meeting").Return(nil)
	f.repo.EXPECT().List(ctx, storage.KindType, true).Return(nil, nil)

	referenced, err := f.service.Delete(ctx, storage.KindType, "meeting", "op")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if referenced != 7 {
		t.Errorf("referenced = %d, want 7", referenced)
	}
	if len(*f.emitted) != 1 {
		t.Fatalf("emitted = %d events, want 1", len(*f.emitted))
	}
	event := (*f.emitted)[0]
	if event.Topic != "taxonomy.type.deleted" {
		t.Errorf("topic = %s, want taxonomy.type.deleted", event.Topic)
	}
	if event.Payload["referenced_entries"] != 7 {
		t.Errorf("payload = %v, want referenced_entries 7", event.Payload)
	}
}

func TestService_DeleteToggleReadPerCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.deleteOK = false
	if _, err := f.service.Delete(ctx, storage.KindType, "meeting", "op"); !errors.Is(err, ErrDeleteDisabled) {
		t.Fatalf("Delete() error = %v, want ErrDeleteDisabled", err)
	}

	// Flipping the toggle takes effect without rebuilding the service.
	f.deleteOK = true
	f.repo.EXPECT().Get(ctx, storage.KindType, "meeting").Return(record("meeting", true), nil)
	f.entries.EXPECT().CountTaxonomyRefs(ctx, storage.KindType, "meeting").Return(0, nil)
	f.repo.EXPECT().Delete(ctx, storage.KindType, "meeting").Return(nil)
	f.repo.EXPECT().List(ctx, storage.KindType, true).Return(nil, nil)
	if _, err := f.service.Delete(ctx, storage.KindType, "meeting", "op"); err != nil {
		t.Errorf("Delete() after toggle error = %v", err)
	}
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }
