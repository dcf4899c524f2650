package db

import (
	"fmt"

	"github.com/pagemark/later/models"
)

// SaveNote inserts a note attached to an item
func (db *DB) SaveNote(note *models.ItemNote) error {
	query := `
		INSERT INTO later_item_notes (id, item_id, note, date_of_note)
		VALUES ($1, $2, $3, $4)
	`

	_, err := db.conn.Exec(query, note.ID, note.ItemID, note.Text, note.DateOfNote)
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}

	return nil
}

// ListNotes returns a user's notes ordered by creation date, paginated by
// offset and page size. A note belongs to the user owning its item.
func (db *DB) ListNotes(userID string, from, size int) ([]*models.ItemNote, error) {
	query := `
		SELECT n.id, n.item_id, n.note, n.date_of_note
		FROM later_item_notes n
		JOIN later_items i ON i.id = n.item_id
		WHERE i.user_id = $1
		ORDER BY n.date_of_note
		LIMIT $2 OFFSET $3
	`

	return db.queryNotes(query, userID, size, from)
}

// SearchNotesByURL returns a user's notes whose item URL contains the given
// fragment
func (db *DB) SearchNotesByURL(userID, urlFragment string) ([]*models.ItemNote, error) {
	query := `
		SELECT n.id, n.item_id, n.note, n.date_of_note
		FROM later_item_notes n
		JOIN later_items i ON i.id = n.item_id
		WHERE i.user_id = $1 AND POSITION($2 IN i.url) > 0
		ORDER BY n.date_of_note
	`

	return db.queryNotes(query, userID, urlFragment)
}

// SearchNotesByTag returns a user's notes attached to items carrying the
// given tag
func (db *DB) SearchNotesByTag(userID, tag string) ([]*models.ItemNote, error) {
	query := `
		SELECT n.id, n.item_id, n.note, n.date_of_note
		FROM later_item_notes n
		JOIN later_items i ON i.id = n.item_id
		JOIN later_item_tags t ON t.item_id = n.item_id
		WHERE i.user_id = $1 AND t.name = $2
		ORDER BY n.date_of_note
	`

	return db.queryNotes(query, userID, tag)
}

func (db *DB) queryNotes(query string, args ...interface{}) ([]*models.ItemNote, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	results := []*models.ItemNote{}
	for rows.Next() {
		var note models.ItemNote
		if err := rows.Scan(&note.ID, &note.ItemID, &note.Text, &note.DateOfNote); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, &note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}
