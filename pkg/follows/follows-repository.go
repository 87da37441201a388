package follows

import (
	"database/sql"
)

// DefaultUserId identifies the local user; the app has no authentication
// and every social table is scoped to this id.
const DefaultUserId = "me"

// Repository stores user-to-user follow relations. Follow and Unfollow are
// idempotent: repeating either leaves the table unchanged.
type Repository struct {
	Connection *sql.DB
}

func NewRepository(connection *sql.DB) *Repository {
	return &Repository{connection}
}

func (fr *Repository) IsFollowing(followerId, followingId string) (follows bool) {
	var err = fr.Connection.QueryRow(
		"SELECT TRUE FROM follows WHERE follower_id = ? AND following_id = ?",
		followerId,
		followingId,
	).Scan(&follows)
	return err == nil && follows
}

func (fr *Repository) Follow(followerId, followingId string) error {
	_, err := fr.Connection.Exec(
		"INSERT OR IGNORE INTO follows (follower_id, following_id, created_at) VALUES (?, ?, datetime('now'))",
		followerId,
		followingId,
	)
	return err
}

func (fr *Repository) Unfollow(followerId, followingId string) error {
	_, err := fr.Connection.Exec(
		"DELETE FROM follows WHERE follower_id = ? AND following_id = ?",
		followerId,
		followingId,
	)
	return err
}

// ListFollowing returns the ids the given user follows, newest first.
func (fr *Repository) ListFollowing(followerId string) ([]string, error) {
	// initialise an empty slice to avoid null serialisation
	var following = make([]string, 0)

	rows, err := fr.Connection.Query(
		"SELECT following_id FROM follows WHERE follower_id = ? ORDER BY created_at DESC",
		followerId,
	)
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return following, err
		}
		following = append(following, id)
	}

	if err = rows.Err(); err != nil {
		return following, err
	}
	return following, rows.Close()
}
