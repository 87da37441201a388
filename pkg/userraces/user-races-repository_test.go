package userraces

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

func stageEvent(t *testing.T, connection *sql.DB, id, title, category string, label *string) {
	t.Helper()
	if _, err := connection.Exec(`
		INSERT INTO events (id, title, start_date, event_category, status, updated_at, min_distance_label)
		VALUES (?, ?, '2025-12-01T08:00:00Z', ?, 'open', '2025-09-01T10:00:00Z', ?)`,
		id, title, category, label,
	); err != nil {
		t.Fatalf("couldn't stage event %s: %v", id, err)
	}
}

// setUpdatedAt pins a race's update instant, making tie-breaks deterministic.
func setUpdatedAt(t *testing.T, connection *sql.DB, id, instant string) {
	t.Helper()
	if _, err := connection.Exec("UPDATE user_races SET updatedAt = ? WHERE id = ?", instant, id); err != nil {
		t.Fatalf("couldn't pin updatedAt: %v", err)
	}
}

func strPtr(value string) *string {
	return &value
}

func TestSaveFutureRace(t *testing.T) {
	repository, _ := newTestRepository(t)

	id, err := repository.SaveFutureRace("evt_x", Fields{BibNumber: strPtr("101")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated id")
	}

	race, err := repository.GetByEventId("evt_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if race.Id != id || race.Status != StatusFuture {
		t.Errorf("unexpected race: %+v", race)
	}
	if race.BibNumber == nil || *race.BibNumber != "101" {
		t.Errorf("the bib number should persist: %v", race.BibNumber)
	}
	if !race.CreatedAt.Valid() || !race.UpdatedAt.Valid() {
		t.Error("creation instants should be set")
	}
}

func TestSaveFutureRaceRejectsDuplicates(t *testing.T) {
	repository, _ := newTestRepository(t)

	if _, err := repository.SaveFutureRace("evt_x", Fields{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repository.SaveFutureRace("evt_x", Fields{}); !errors.Is(err, ErrRaceExists) {
		t.Errorf("expected ErrRaceExists, got %v", err)
	}

	// a cancelled entry frees the slot for a fresh sign-up
	race, err := repository.GetByEventId("evt_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = repository.Cancel(race.Id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = repository.SaveFutureRace("evt_x", Fields{}); err != nil {
		t.Errorf("a new sign-up should succeed after cancelling: %v", err)
	}
}

func TestGetByEventIdMissing(t *testing.T) {
	repository, _ := newTestRepository(t)

	if _, err := repository.GetByEventId("evt_nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddResult(t *testing.T) {
	repository, _ := newTestRepository(t)

	id, err := repository.SaveFutureRace("evt_x", Fields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// a 3h30m marathon finish
	if err = repository.AddResult(id, 12600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	race, err := repository.GetByEventId("evt_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if race.Status != StatusPast {
		t.Errorf("a result should move the race to PAST, got %q", race.Status)
	}
	if race.ResultTimeSeconds == nil || *race.ResultTimeSeconds != 12600 {
		t.Errorf("the result time should persist: %v", race.ResultTimeSeconds)
	}

	// completed races can't receive a second result
	if err = repository.AddResult(id, 13000); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a non-FUTURE race, got %v", err)
	}
}

func TestMarkAsPastAndCancel(t *testing.T) {
	repository, _ := newTestRepository(t)

	pastId, err := repository.SaveFutureRace("evt_a", Fields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = repository.MarkAsPast(pastId); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	race, err := repository.GetByEventId("evt_a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if race.Status != StatusPast || race.ResultTimeSeconds != nil {
		t.Errorf("MarkAsPast should transition without a result: %+v", race)
	}

	cancelledId, err := repository.SaveFutureRace("evt_b", Fields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = repository.Cancel(cancelledId); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	race, err = repository.GetByEventId("evt_b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if race.Status != StatusCancelled {
		t.Errorf("Cancel should transition to CANCELLED, got %q", race.Status)
	}

	// cancelled races stay cancelled
	if err = repository.MarkAsPast(cancelledId); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound transitioning a cancelled race, got %v", err)
	}
}

func TestUpdateFields(t *testing.T) {
	repository, _ := newTestRepository(t)

	id, err := repository.SaveFutureRace("evt_x", Fields{BibNumber: strPtr("101"), Note: strPtr("early start")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target := 210
	if err = repository.UpdateFields(id, Patch{BibNumber: strPtr("202"), TargetTimeMinutes: &target}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	race, err := repository.GetByEventId("evt_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if race.BibNumber == nil || *race.BibNumber != "202" {
		t.Errorf("the bib number should change: %v", race.BibNumber)
	}
	if race.TargetTimeMinutes == nil || *race.TargetTimeMinutes != 210 {
		t.Errorf("the target time should change: %v", race.TargetTimeMinutes)
	}
	// untouched members stay put
	if race.Note == nil || *race.Note != "early start" {
		t.Errorf("the note should survive a partial patch: %v", race.Note)
	}
}

func TestUpdateFieldsEmptyPatchIsNOP(t *testing.T) {
	repository, _ := newTestRepository(t)

	if err := repository.UpdateFields("race_nope", Patch{}); err != nil {
		t.Errorf("an empty patch should succeed without touching rows: %v", err)
	}
}

func TestUpdateFieldsMissingRace(t *testing.T) {
	repository, _ := newTestRepository(t)

	if err := repository.UpdateFields("race_nope", Patch{BibNumber: strPtr("101")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateFieldsRejectsUnknownStatus(t *testing.T) {
	repository, _ := newTestRepository(t)

	var status Status = "POSTPONED"
	if err := repository.UpdateFields("race_x", Patch{Status: &status}); err == nil {
		t.Error("expected a validation error for an unknown status")
	}
}

func TestUpdateFieldsCannotReopenRaces(t *testing.T) {
	repository, _ := newTestRepository(t)

	id, err := repository.SaveFutureRace("evt_x", Fields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = repository.MarkAsPast(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// patching back to FUTURE would sidestep the one-upcoming-race check
	var future Status = StatusFuture
	if err = repository.UpdateFields(id, Patch{Status: &future}); err == nil {
		t.Fatal("expected a validation error patching a race back to FUTURE")
	}

	race, err := repository.GetByEventId("evt_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if race.Status != StatusPast {
		t.Errorf("the race should stay PAST, got %q", race.Status)
	}

	var cancelled Status = StatusCancelled
	if err = repository.UpdateFields(id, Patch{Status: &cancelled}); err != nil {
		t.Errorf("CANCELLED should remain patchable: %v", err)
	}
}

func TestListFutureOrdering(t *testing.T) {
	repository, connection := newTestRepository(t)
	stageEvent(t, connection, "evt_a", "Race A", "Trail", nil)
	stageEvent(t, connection, "evt_b", "Race B", "Trail", nil)
	stageEvent(t, connection, "evt_c", "Race C", "Trail", nil)

	// unscheduled entries sort after scheduled ones
	if _, err := repository.SaveFutureRace("evt_a", Fields{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repository.SaveFutureRace("evt_b", Fields{StartTimeLocal: strPtr("2025-12-05T09:00:00")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repository.SaveFutureRace("evt_c", Fields{StartTimeLocal: strPtr("2025-12-01T09:00:00")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	future, err := repository.ListFuture()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(future) != 3 {
		t.Fatalf("expected 3 upcoming races, got %d", len(future))
	}
	if future[0].EventId != "evt_c" || future[1].EventId != "evt_b" || future[2].EventId != "evt_a" {
		t.Errorf("unexpected order: %s, %s, %s", future[0].EventId, future[1].EventId, future[2].EventId)
	}
	if future[0].Title != "Race C" {
		t.Errorf("event metadata should ride along, got title %q", future[0].Title)
	}
}

func TestListJoinsDegradeWithoutEvent(t *testing.T) {
	repository, _ := newTestRepository(t)

	// the event never made it into the cache
	if _, err := repository.SaveFutureRace("evt_ghost", Fields{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	future, err := repository.ListFuture()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(future) != 1 {
		t.Fatalf("expected the orphaned race, got %d results", len(future))
	}
	if future[0].Title != "" || future[0].StartDate != nil {
		t.Errorf("missing events should degrade to zero values: %+v", future[0])
	}
}

func TestListPastWithMetaFlagsPersonalRecords(t *testing.T) {
	repository, connection := newTestRepository(t)
	stageEvent(t, connection, "evt_a", "Marathon A", "Marathon", strPtr("42.2 km"))
	stageEvent(t, connection, "evt_b", "Marathon B", "Marathon", strPtr("42.2 km"))
	stageEvent(t, connection, "evt_c", "Trail C", "Trail", strPtr("20 km"))

	finish := func(eventId string, seconds int) string {
		id, err := repository.SaveFutureRace(eventId, Fields{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err = repository.AddResult(id, seconds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return id
	}

	slower := finish("evt_a", 13000)
	faster := finish("evt_b", 12600)
	otherGroup := finish("evt_c", 9000)

	past, err := repository.ListPastWithMeta()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(past) != 3 {
		t.Fatalf("expected 3 completed races, got %d", len(past))
	}

	records := make(map[string]bool)
	for _, race := range past {
		records[race.Id] = race.PersonalRecord
	}
	if !records[faster] {
		t.Error("the fastest marathon should be a personal record")
	}
	if records[slower] {
		t.Error("the slower marathon should not be a personal record")
	}
	if !records[otherGroup] {
		t.Error("each distance group carries its own record")
	}
}

func TestListPastWithMetaTieBreaksOnEarliestUpdate(t *testing.T) {
	repository, connection := newTestRepository(t)
	stageEvent(t, connection, "evt_a", "Marathon A", "Marathon", strPtr("42.2 km"))
	stageEvent(t, connection, "evt_b", "Marathon B", "Marathon", strPtr("42.2 km"))

	firstId, err := repository.SaveFutureRace("evt_a", Fields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = repository.AddResult(firstId, 12600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondId, err := repository.SaveFutureRace("evt_b", Fields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = repository.AddResult(secondId, 12600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	setUpdatedAt(t, connection, firstId, "2025-10-01T10:00:00Z")
	setUpdatedAt(t, connection, secondId, "2025-11-01T10:00:00Z")

	past, err := repository.ListPastWithMeta()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, race := range past {
		if race.Id == firstId && !race.PersonalRecord {
			t.Error("the earlier updated race should win the tie")
		}
		if race.Id == secondId && race.PersonalRecord {
			t.Error("only one race per group may hold the record")
		}
	}
}

func TestRacesWithoutResultsNeverHoldRecords(t *testing.T) {
	repository, connection := newTestRepository(t)
	stageEvent(t, connection, "evt_a", "Marathon A", "Marathon", strPtr("42.2 km"))

	id, err := repository.SaveFutureRace("evt_a", Fields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = repository.MarkAsPast(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	past, err := repository.ListPastWithMeta()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(past) != 1 {
		t.Fatalf("expected the completed race, got %d results", len(past))
	}
	if past[0].PersonalRecord {
		t.Error("a race without a result can't hold a record")
	}
}
