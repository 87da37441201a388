package userraces

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"

	"github.com/finishline/finishline-data/pkg/ntime"
)

var (
	ErrNotFound   = errors.New("race not found")
	ErrRaceExists = errors.New("a future race already exists for this event")
)

// patchColumns is the fixed allow-list behind UpdateFields: SQL column
// names are never derived from caller-supplied keys.
var patchColumns = []struct {
	column string
	value  func(Patch) interface{}
}{
	{"bibNumber", func(p Patch) interface{} { return p.BibNumber }},
	{"waveNumber", func(p Patch) interface{} { return p.WaveNumber }},
	{"startTimeLocal", func(p Patch) interface{} { return p.StartTimeLocal }},
	{"targetTimeMinutes", func(p Patch) interface{} { return p.TargetTimeMinutes }},
	{"resultTimeSeconds", func(p Patch) interface{} { return p.ResultTimeSeconds }},
	{"note", func(p Patch) interface{} { return p.Note }},
	{"status", func(p Patch) interface{} { return p.Status }},
}

// Repository tracks the user's personal race entries: sign-ups, results and
// the derived personal-record flags.
type Repository struct {
	Connection *sql.DB
}

func NewRepository(connection *sql.DB) *Repository {
	return &Repository{connection}
}

// SaveFutureRace records an "I'm going" entry for the event and returns its
// generated id. At most one FUTURE entry may exist per event; the check and
// the insert share a transaction so rapid double-taps can't slip through.
func (rr *Repository) SaveFutureRace(eventId string, fields Fields) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("couldn't generate a race id for event %q: %w", eventId, err)
	}

	tx, err := rr.Connection.Begin()
	if err != nil {
		return "", err
	}

	// rolling back after a transaction commit results in a safe NOP
	defer tx.Rollback()

	var exists bool
	if err = tx.QueryRow(
		"SELECT EXISTS (SELECT TRUE FROM user_races WHERE eventId = ? AND status = ?)",
		eventId, StatusFuture,
	).Scan(&exists); err != nil {
		return "", err
	}
	if exists {
		return "", ErrRaceExists
	}

	var now = ntime.Now()
	if _, err = tx.Exec(`
		INSERT INTO user_races (id, eventId, status, bibNumber, waveNumber, startTimeLocal, targetTimeMinutes, note, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), eventId, StatusFuture, fields.BibNumber, fields.WaveNumber,
		fields.StartTimeLocal, fields.TargetTimeMinutes, fields.Note, now, now,
	); err != nil {
		return "", err
	}

	return id.String(), tx.Commit()
}

// GetByEventId returns the most recent race entry for an event, whatever its
// status.
func (rr *Repository) GetByEventId(eventId string) (race Race, err error) {
	err = rr.Connection.QueryRow(`
		SELECT id, eventId, status, bibNumber, waveNumber, startTimeLocal,
		       targetTimeMinutes, resultTimeSeconds, note, createdAt, updatedAt
		FROM user_races WHERE eventId = ?
		ORDER BY createdAt DESC LIMIT 1`, eventId,
	).Scan(
		&race.Id, &race.EventId, &race.Status, &race.BibNumber, &race.WaveNumber,
		&race.StartTimeLocal, &race.TargetTimeMinutes, &race.ResultTimeSeconds,
		&race.Note, &race.CreatedAt, &race.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return race, ErrNotFound
	}
	return race, err
}

// ListFuture returns upcoming entries joined with event metadata for
// display, ordered by local start time with unscheduled entries last, then
// by creation time.
func (rr *Repository) ListFuture() ([]RaceWithEvent, error) {
	return rr.listByStatus(StatusFuture, `
		ORDER BY ur.startTimeLocal IS NULL, ur.startTimeLocal ASC, ur.createdAt ASC`)
}

// ListPast returns completed entries, most recent first.
func (rr *Repository) ListPast() ([]RaceWithEvent, error) {
	return rr.listByStatus(StatusPast, `
		ORDER BY ur.startTimeLocal IS NULL, ur.startTimeLocal DESC, ur.createdAt DESC`)
}

func (rr *Repository) listByStatus(status Status, order string) ([]RaceWithEvent, error) {
	var races = make([]RaceWithEvent, 0)

	rows, err := rr.Connection.Query(`
		SELECT ur.id, ur.eventId, ur.status, ur.bibNumber, ur.waveNumber, ur.startTimeLocal,
		       ur.targetTimeMinutes, ur.resultTimeSeconds, ur.note, ur.createdAt, ur.updatedAt,
		       coalesce(e.title, ''), coalesce(e.event_category, ''), e.start_date, e.min_distance_label
		FROM user_races ur
		LEFT JOIN events e ON e.id = ur.eventId
		WHERE ur.status = ?`+order,
		status,
	)
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		var race RaceWithEvent
		if err = rows.Scan(
			&race.Id, &race.EventId, &race.Status, &race.BibNumber, &race.WaveNumber,
			&race.StartTimeLocal, &race.TargetTimeMinutes, &race.ResultTimeSeconds,
			&race.Note, &race.CreatedAt, &race.UpdatedAt,
			&race.Title, &race.Category, &race.StartDate, &race.MinDistanceLabel,
		); err != nil {
			return races, err
		}
		races = append(races, race)
	}

	if err = rows.Err(); err != nil {
		return races, err
	}
	return races, rows.Close()
}

// ListPastWithMeta augments completed races with a personal-record flag:
// within each (category, distance label) group the fastest result wins, ties
// broken by the earliest updated entry.
func (rr *Repository) ListPastWithMeta() ([]PastRace, error) {
	past, err := rr.ListPast()
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		category string
		label    string
	}
	var best = make(map[groupKey]int) // index into results
	var results = make([]PastRace, 0, len(past))

	for _, race := range past {
		results = append(results, PastRace{RaceWithEvent: race})
	}

	for i, race := range results {
		if race.ResultTimeSeconds == nil {
			continue
		}
		key := groupKey{race.Category, derefOr(race.MinDistanceLabel, "")}
		leader, found := best[key]
		if !found || beats(results[i], results[leader]) {
			best[key] = i
		}
	}

	for _, i := range best {
		results[i].PersonalRecord = true
	}
	return results, nil
}

// beats reports whether the challenger outranks the current group leader:
// lower result time first, earlier update as the deterministic tie-break.
func beats(challenger, leader PastRace) bool {
	a, b := *challenger.ResultTimeSeconds, *leader.ResultTimeSeconds
	if a != b {
		return a < b
	}
	return challenger.UpdatedAt.Before(leader.UpdatedAt)
}

// UpdateFields applies a partial patch, touching only the supplied columns
// and always bumping updatedAt. An empty patch is a NOP.
func (rr *Repository) UpdateFields(id string, patch Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	var assignments []string
	var args []interface{}
	for _, allowed := range patchColumns {
		if value := allowed.value(patch); !isNil(value) {
			assignments = append(assignments, allowed.column+" = ?")
			args = append(args, value)
		}
	}
	if len(assignments) == 0 {
		return nil
	}

	assignments = append(assignments, "updatedAt = ?")
	args = append(args, ntime.Now(), id)

	result, err := rr.Connection.Exec(
		"UPDATE user_races SET "+strings.Join(assignments, ", ")+" WHERE id = ?", args...,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAsPast transitions a FUTURE entry to PAST without a result time.
func (rr *Repository) MarkAsPast(id string) error {
	return rr.transition(id, StatusFuture, StatusPast, nil)
}

// AddResult stores a finishing time and transitions the entry to PAST.
func (rr *Repository) AddResult(id string, resultTimeSeconds int) error {
	return rr.transition(id, StatusFuture, StatusPast, &resultTimeSeconds)
}

// Cancel marks a FUTURE entry as withdrawn.
func (rr *Repository) Cancel(id string) error {
	return rr.transition(id, StatusFuture, StatusCancelled, nil)
}

func (rr *Repository) transition(id string, from, to Status, resultTimeSeconds *int) error {
	var result sql.Result
	var err error

	if resultTimeSeconds != nil {
		result, err = rr.Connection.Exec(
			"UPDATE user_races SET status = ?, resultTimeSeconds = ?, updatedAt = ? WHERE id = ? AND status = ?",
			to, *resultTimeSeconds, ntime.Now(), id, from,
		)
	} else {
		result, err = rr.Connection.Exec(
			"UPDATE user_races SET status = ?, updatedAt = ? WHERE id = ? AND status = ?",
			to, ntime.Now(), id, from,
		)
	}
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

func isNil(value interface{}) bool {
	switch typed := value.(type) {
	case *string:
		return typed == nil
	case *int:
		return typed == nil
	default:
		return value == nil
	}
}
