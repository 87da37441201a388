package notifications

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/finishline/finishline-data/pkg/testutil"
)

func newTestRepository(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	connection := testutil.OpenDatabase(t)
	return NewRepository(connection), connection
}

func TestAddAndList(t *testing.T) {
	repository, _ := newTestRepository(t)

	added, err := repository.Add(AddNotificationData{
		Type:  "race_reminder",
		Title: "Race starts tomorrow",
		Body:  ptr("Check your gear tonight"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added.Id == "" {
		t.Fatal("expected a generated id")
	}
	if added.Read {
		t.Error("new notifications start unread")
	}

	listed, err := repository.ListAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected a single notification, got %d", len(listed))
	}
	if listed[0].Id != added.Id || listed[0].Title != added.Title {
		t.Errorf("unexpected notification: %+v", listed[0])
	}
	if listed[0].Body == nil || *listed[0].Body != "Check your gear tonight" {
		t.Errorf("the body should persist: %v", listed[0].Body)
	}
}

func TestAddRejectsIncompleteData(t *testing.T) {
	repository, _ := newTestRepository(t)

	if _, err := repository.Add(AddNotificationData{Type: "system"}); err == nil {
		t.Error("expected a validation error for the missing title")
	}
	if _, err := repository.Add(AddNotificationData{Title: "Untitled"}); err == nil {
		t.Error("expected a validation error for the missing type")
	}
}

func TestListAllNewestFirst(t *testing.T) {
	repository, connection := newTestRepository(t)

	older, err := repository.Add(AddNotificationData{Type: "system", Title: "Older"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newer, err := repository.Add(AddNotificationData{Type: "system", Title: "Newer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// pin distinct instants, both inserts may share a second
	for id, instant := range map[string]string{
		older.Id: "2025-10-01T10:00:00Z",
		newer.Id: "2025-10-02T10:00:00Z",
	} {
		if _, err = connection.Exec("UPDATE notifications SET createdAt = ? WHERE id = ?", instant, id); err != nil {
			t.Fatalf("couldn't pin createdAt: %v", err)
		}
	}

	listed, err := repository.ListAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 2 || listed[0].Id != newer.Id {
		t.Errorf("expected the newer notification first: %+v", listed)
	}
}

func TestMarkRead(t *testing.T) {
	repository, _ := newTestRepository(t)

	added, err := repository.Add(AddNotificationData{Type: "system", Title: "Unread"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err = repository.MarkRead(added.Id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := repository.UnreadCount()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no unread notifications, got %d", count)
	}

	if err = repository.MarkRead("note_nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	repository, _ := newTestRepository(t)

	for _, title := range []string{"First", "Second", "Third"} {
		if _, err := repository.Add(AddNotificationData{Type: "system", Title: title}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	count, err := repository.UnreadCount()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 unread notifications, got %d", count)
	}

	if err = repository.MarkAllRead(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err = repository.UnreadCount()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no unread notifications, got %d", count)
	}
}

func TestSeedSamplesIfEmpty(t *testing.T) {
	repository, _ := newTestRepository(t)

	for i := 0; i < 2; i++ {
		if err := repository.SeedSamplesIfEmpty(); err != nil {
			t.Fatalf("unexpected seed error: %v", err)
		}
	}

	listed, err := repository.ListAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("reseeding should be a NOP, got %d notifications", len(listed))
	}
}

func TestDeleteAll(t *testing.T) {
	repository, _ := newTestRepository(t)

	if err := repository.SeedSamplesIfEmpty(); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}
	if err := repository.DeleteAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	listed, err := repository.ListAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("expected an empty table, got %d notifications", len(listed))
	}
}
