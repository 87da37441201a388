package notifications

import (
	"database/sql"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofrs/uuid"

	"github.com/finishline/finishline-data/pkg/ntime"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	Id        string      `json:"id"`
	Type      string      `json:"type"`
	Title     string      `json:"title"`
	Body      *string     `json:"body,omitempty"`
	CreatedAt ntime.NTime `json:"createdAt"`
	Read      bool        `json:"read"`
}

type AddNotificationData struct {
	Type  string
	Title string
	Body  *string
}

func (data AddNotificationData) Validate() error {
	return validation.ValidateStruct(&data,
		validation.Field(&data.Type, validation.Required),
		validation.Field(&data.Title, validation.Required),
	)
}

// Repository stores in-app notifications; rows are only ever appended and
// flagged read, never hard-deleted by normal flow.
type Repository struct {
	Connection *sql.DB
}

func NewRepository(connection *sql.DB) *Repository {
	return &Repository{connection}
}

func (nr *Repository) Add(data AddNotificationData) (Notification, error) {
	if err := data.Validate(); err != nil {
		return Notification{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return Notification{}, fmt.Errorf("couldn't generate a notification id: %w", err)
	}

	var notification = Notification{
		Id:        id.String(),
		Type:      data.Type,
		Title:     data.Title,
		Body:      data.Body,
		CreatedAt: ntime.Now(),
	}

	_, err = nr.Connection.Exec(`
		INSERT INTO notifications (id, type, title, body, createdAt, read)
		VALUES (?, ?, ?, ?, ?, 0)`,
		notification.Id, notification.Type, notification.Title, notification.Body, notification.CreatedAt,
	)
	return notification, err
}

// ListAll returns every notification, newest first.
func (nr *Repository) ListAll() ([]Notification, error) {
	var notifications = make([]Notification, 0)

	rows, err := nr.Connection.Query(`
		SELECT id, type, title, body, createdAt, read
		FROM notifications
		ORDER BY createdAt DESC`)
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		var notification Notification
		if err = rows.Scan(
			&notification.Id, &notification.Type, &notification.Title,
			&notification.Body, &notification.CreatedAt, &notification.Read,
		); err != nil {
			return notifications, err
		}
		notifications = append(notifications, notification)
	}

	if err = rows.Err(); err != nil {
		return notifications, err
	}
	return notifications, rows.Close()
}

func (nr *Repository) MarkRead(id string) error {
	result, err := nr.Connection.Exec("UPDATE notifications SET read = 1 WHERE id = ?", id)
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

func (nr *Repository) MarkAllRead() error {
	_, err := nr.Connection.Exec("UPDATE notifications SET read = 1")
	return err
}

func (nr *Repository) UnreadCount() (count int, err error) {
	err = nr.Connection.QueryRow("SELECT count(*) FROM notifications WHERE read = 0").Scan(&count)
	return count, err
}

// DeleteAll wipes the table; meant for tests and manual cleanup only.
func (nr *Repository) DeleteAll() error {
	_, err := nr.Connection.Exec("DELETE FROM notifications")
	return err
}

// SeedSamplesIfEmpty adds a pair of welcome notifications on first run so
// the notifications screen isn't blank before any real activity.
func (nr *Repository) SeedSamplesIfEmpty() error {
	var count int
	if err := nr.Connection.QueryRow("SELECT count(*) FROM notifications").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var samples = []AddNotificationData{
		{Type: "provider_follow", Title: "Following Spartan Race", Body: ptr("You will receive updates about their events")},
		{Type: "system", Title: "Welcome to FinishLine!", Body: ptr("Start following providers and managing your races")},
	}
	for _, sample := range samples {
		if _, err := nr.Add(sample); err != nil {
			return err
		}
	}
	return nil
}

func ptr(value string) *string {
	return &value
}
