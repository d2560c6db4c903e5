package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetAssignment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.CreateAssignment(ctx, "数学练习")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected a generated id")
	}
	if a.Status != StatusActive {
		t.Fatalf("expected active status, got %q", a.Status)
	}

	got, err := s.GetAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "数学练习" {
		t.Fatalf("unexpected title: %q", got.Title)
	}
	if got.DueDate != nil {
		t.Fatalf("expected no due date, got %v", got.DueDate)
	}
}

func TestGetAssignment_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetAssignment(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestListAssignments_StatusFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a1, _ := s.CreateAssignment(ctx, "one")
	a2, _ := s.CreateAssignment(ctx, "two")
	if err := s.ArchiveAssignment(ctx, a1.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	active := StatusActive
	got, err := s.ListAssignments(ctx, &active)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != a2.ID {
		t.Fatalf("expected only the active assignment, got %+v", got)
	}

	all, err := s.ListAssignments(ctx, nil)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(all))
	}
}

func TestRefreshAssignments_ArchivesPastDue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-48 * time.Hour)
	future := time.Now().UTC().Add(48 * time.Hour)

	overdue, _ := s.CreateAssignmentDue(ctx, "overdue", &past)
	current, _ := s.CreateAssignmentDue(ctx, "current", &future)
	undated, _ := s.CreateAssignment(ctx, "undated")

	n, err := s.RefreshAssignments(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 archived, got %d", n)
	}

	for _, tc := range []struct {
		id   string
		want Status
	}{
		{overdue.ID, StatusArchived},
		{current.ID, StatusActive},
		{undated.ID, StatusActive},
	} {
		a, err := s.GetAssignment(ctx, tc.id)
		if err != nil {
			t.Fatalf("get %s: %v", tc.id, err)
		}
		if a.Status != tc.want {
			t.Fatalf("assignment %s: expected %q, got %q", a.Title, tc.want, a.Status)
		}
	}
}

func TestAddMistake_UnknownAssignment(t *testing.T) {
	s := openTestStore(t)

	_, err := s.AddMistake(context.Background(), AddMistakeParams{
		AssignmentID: "missing",
		Description:  "二次方程解错了",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestAddAndListMistakes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateAssignment(ctx, "数学练习")

	m1, err := s.AddMistake(ctx, AddMistakeParams{
		AssignmentID: a.ID,
		Description:  "二次方程解错了",
		TopicTag:     "quadratic",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	m2, err := s.AddMistake(ctx, AddMistakeParams{
		AssignmentID: a.ID,
		Description:  "符号错误",
		TopicTag:     "sign-error",
		ImageRef:     "photos/p1.jpg",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := s.ListMistakes(ctx, MistakeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 mistakes, got %d", len(got))
	}
	// ULID ids sort in insertion order.
	if got[0].ID != m1.ID || got[1].ID != m2.ID {
		t.Fatalf("expected insertion order, got %s then %s", got[0].ID, got[1].ID)
	}
	if got[1].ImageRef != "photos/p1.jpg" {
		t.Fatalf("image ref lost: %q", got[1].ImageRef)
	}
}

func TestListMistakes_Filters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a1, _ := s.CreateAssignment(ctx, "math")
	a2, _ := s.CreateAssignment(ctx, "physics")

	s.AddMistake(ctx, AddMistakeParams{AssignmentID: a1.ID, Description: "d1", TopicTag: "quadratic"})
	s.AddMistake(ctx, AddMistakeParams{AssignmentID: a1.ID, Description: "d2", TopicTag: "sign-error"})
	s.AddMistake(ctx, AddMistakeParams{AssignmentID: a2.ID, Description: "d3", TopicTag: "quadratic"})

	byAssignment, err := s.ListMistakes(ctx, MistakeFilter{AssignmentID: a1.ID})
	if err != nil {
		t.Fatalf("list by assignment: %v", err)
	}
	if len(byAssignment) != 2 {
		t.Fatalf("expected 2 mistakes for assignment, got %d", len(byAssignment))
	}

	byTopic, err := s.ListMistakes(ctx, MistakeFilter{TopicTag: "quadratic"})
	if err != nil {
		t.Fatalf("list by topic: %v", err)
	}
	if len(byTopic) != 2 {
		t.Fatalf("expected 2 quadratic mistakes, got %d", len(byTopic))
	}

	both, err := s.ListMistakes(ctx, MistakeFilter{AssignmentID: a2.ID, TopicTag: "quadratic"})
	if err != nil {
		t.Fatalf("list by both: %v", err)
	}
	if len(both) != 1 || both[0].Description != "d3" {
		t.Fatalf("expected exactly d3, got %+v", both)
	}
}

func TestDeleteAssignment_CascadesToMistakes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doomed, _ := s.CreateAssignment(ctx, "doomed")
	kept, _ := s.CreateAssignment(ctx, "kept")

	s.AddMistake(ctx, AddMistakeParams{AssignmentID: doomed.ID, Description: "m1"})
	s.AddMistake(ctx, AddMistakeParams{AssignmentID: doomed.ID, Description: "m2"})
	survivor, _ := s.AddMistake(ctx, AddMistakeParams{AssignmentID: kept.ID, Description: "m3"})

	if err := s.DeleteAssignment(ctx, doomed.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.GetAssignment(ctx, doomed.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected assignment gone, got: %v", err)
	}

	remaining, err := s.ListMistakes(ctx, MistakeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != survivor.ID {
		t.Fatalf("cascade left wrong records: %+v", remaining)
	}
}

func TestDeleteAssignment_CascadesOnSecondConnection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Hold the pool connection that ran the migration so every write
	// below lands on a freshly opened connection. The cascade must hold
	// regardless of which connection serves the delete.
	pinned, err := s.DB().Conn(ctx)
	if err != nil {
		t.Fatalf("pin connection: %v", err)
	}
	defer pinned.Close()

	a, err := s.CreateAssignment(ctx, "doomed")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AddMistake(ctx, AddMistakeParams{AssignmentID: a.ID, Description: "m1"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.DeleteAssignment(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	orphans, err := s.ListMistakes(ctx, MistakeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orphans) != 0 {
		t.Fatalf("%d orphaned mistake(s) survive the assignment delete", len(orphans))
	}
}

func TestConcurrentAddAndCascadeDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.CreateAssignment(ctx, "contested")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 20 {
			// Races the delete below; each add either lands before the
			// cascade or fails the liveness check with ErrNotFound.
			if _, err := s.AddMistake(ctx, AddMistakeParams{
				AssignmentID: a.ID,
				Description:  "racing",
			}); err != nil && !errors.Is(err, ErrNotFound) {
				t.Errorf("add: %v", err)
				return
			}
		}
	}()

	if err := s.DeleteAssignment(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	<-done

	// No half-applied cascade: every surviving record references a live
	// assignment, and the deleted assignment kept none.
	remaining, err := s.ListMistakes(ctx, MistakeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, m := range remaining {
		if _, err := s.GetAssignment(ctx, m.AssignmentID); err != nil {
			t.Fatalf("mistake %s orphaned: %v", m.ID, err)
		}
	}
}

func TestDeleteAssignment_NotFound(t *testing.T) {
	s := openTestStore(t)
	if err := s.DeleteAssignment(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestDeleteMistake(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateAssignment(ctx, "hw")
	m, _ := s.AddMistake(ctx, AddMistakeParams{AssignmentID: a.ID, Description: "oops"})

	if err := s.DeleteMistake(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetMistake(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got: %v", err)
	}
	if err := s.DeleteMistake(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got: %v", err)
	}
}

func TestRetagMistake(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateAssignment(ctx, "hw")
	m, _ := s.AddMistake(ctx, AddMistakeParams{AssignmentID: a.ID, Description: "oops"})

	if err := s.RetagMistake(ctx, m.ID, "fractions"); err != nil {
		t.Fatalf("retag: %v", err)
	}
	got, _ := s.GetMistake(ctx, m.ID)
	if got.TopicTag != "fractions" {
		t.Fatalf("expected fractions, got %q", got.TopicTag)
	}

	if err := s.RetagMistake(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestSnapshot_ReturnsAllMistakes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateAssignment(ctx, "hw")
	s.AddMistake(ctx, AddMistakeParams{AssignmentID: a.ID, Description: "m1", TopicTag: "t1"})
	s.AddMistake(ctx, AddMistakeParams{AssignmentID: a.ID, Description: "m2"})

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 records, got %d", len(snap))
	}
}

func TestScan_CorruptTimestampSurfacesError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.DB().ExecContext(ctx,
		`INSERT INTO assignments (id, title, status, created_at) VALUES ('bad', 'hw', 'active', 'not-a-time')`,
	); err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	if _, err := s.GetAssignment(ctx, "bad"); err == nil {
		t.Fatal("corrupt timestamp must not decode to the zero time silently")
	}
}

func TestTimestampsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	due := time.Date(2026, 9, 15, 18, 0, 0, 0, time.UTC)
	a, err := s.CreateAssignmentDue(ctx, "due soon", &due)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := s.GetAssignment(ctx, a.ID)
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date mangled: %v", got.DueDate)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not persisted")
	}
}
