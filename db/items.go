package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/pagemark/later/models"
)

// SaveItem inserts or updates an item and replaces its tag set atomically
func (db *DB) SaveItem(item *models.Item) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO later_items (id, user_id, url, resolved_url, mime_type, title, has_image, has_video, date_resolved, unread)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT(id) DO UPDATE SET
			unread = excluded.unread,
			title = excluded.title,
			mime_type = excluded.mime_type,
			has_image = excluded.has_image,
			has_video = excluded.has_video
	`

	_, err = tx.Exec(
		query,
		item.ID,
		item.UserID,
		item.URL,
		item.ResolvedURL,
		item.MimeType,
		item.Title,
		item.HasImage,
		item.HasVideo,
		item.DateResolved,
		item.Unread,
	)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}

	// Replace tag set (if re-saving)
	_, err = tx.Exec("DELETE FROM later_item_tags WHERE item_id = $1", item.ID)
	if err != nil {
		return fmt.Errorf("failed to delete old tags: %w", err)
	}

	for _, tag := range item.Tags {
		_, err = tx.Exec(
			"INSERT INTO later_item_tags (item_id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			item.ID, tag,
		)
		if err != nil {
			return fmt.Errorf("failed to save tag %s: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetItemByID retrieves an item by ID. Returns nil when no item exists.
func (db *DB) GetItemByID(id string) (*models.Item, error) {
	query := "SELECT id, user_id, url, resolved_url, mime_type, title, has_image, has_video, date_resolved, unread FROM later_items WHERE id = $1"
	return db.queryOneItem(query, id)
}

// GetItemByResolvedURL retrieves an item by its resolved URL. The lookup
// spans all users: a resolved URL identifies at most one item service-wide.
func (db *DB) GetItemByResolvedURL(resolvedURL string) (*models.Item, error) {
	query := "SELECT id, user_id, url, resolved_url, mime_type, title, has_image, has_video, date_resolved, unread FROM later_items WHERE resolved_url = $1"
	return db.queryOneItem(query, resolvedURL)
}

// SearchItems returns the items matching every criterion in the request
func (db *DB) SearchItems(req models.SearchRequest) ([]*models.Item, error) {
	var sb strings.Builder
	sb.WriteString("SELECT id, user_id, url, resolved_url, mime_type, title, has_image, has_video, date_resolved, unread FROM later_items WHERE user_id = $1")
	args := []interface{}{req.UserID}

	if req.State == models.StateUnread || req.State == models.StateRead {
		args = append(args, req.State == models.StateUnread)
		sb.WriteString(fmt.Sprintf(" AND unread = $%d", len(args)))
	}

	if mime := req.ContentType.MimeType(); mime != "" {
		args = append(args, mime)
		sb.WriteString(fmt.Sprintf(" AND mime_type = $%d", len(args)))
	}

	if req.HasTags() {
		args = append(args, pq.Array(req.Tags))
		sb.WriteString(fmt.Sprintf(" AND EXISTS (SELECT 1 FROM later_item_tags t WHERE t.item_id = later_items.id AND t.name = ANY($%d))", len(args)))
	}

	switch req.Sort {
	case models.SortOldest:
		sb.WriteString(" ORDER BY date_resolved DESC")
	case models.SortTitle:
		sb.WriteString(" ORDER BY title ASC")
	default:
		sb.WriteString(" ORDER BY date_resolved ASC")
	}

	args = append(args, req.Limit)
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))

	return db.queryItems(sb.String(), args...)
}

// GetItemsByUserAndTags returns a user's items carrying at least one of the
// given tags
func (db *DB) GetItemsByUserAndTags(userID string, tags []string) ([]*models.Item, error) {
	if len(tags) == 0 {
		return []*models.Item{}, nil
	}

	query := `
		SELECT id, user_id, url, resolved_url, mime_type, title, has_image, has_video, date_resolved, unread
		FROM later_items
		WHERE user_id = $1
		  AND EXISTS (SELECT 1 FROM later_item_tags t WHERE t.item_id = later_items.id AND t.name = ANY($2))
		ORDER BY date_resolved ASC
	`

	return db.queryItems(query, userID, pq.Array(tags))
}

// DeleteItemByID deletes an item by ID. Tags and notes go with it.
func (db *DB) DeleteItemByID(id string) error {
	result, err := db.conn.Exec("DELETE FROM later_items WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no item found with id: %s", id)
	}

	return nil
}

func (db *DB) queryOneItem(query string, arg interface{}) (*models.Item, error) {
	var (
		item     models.Item
		mimeType sql.NullString
		title    sql.NullString
	)

	err := db.conn.QueryRow(query, arg).Scan(
		&item.ID,
		&item.UserID,
		&item.URL,
		&item.ResolvedURL,
		&mimeType,
		&title,
		&item.HasImage,
		&item.HasVideo,
		&item.DateResolved,
		&item.Unread,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	item.MimeType = mimeType.String
	item.Title = title.String

	tags, err := db.loadTags(item.ID)
	if err != nil {
		return nil, err
	}
	item.Tags = tags

	return &item, nil
}

func (db *DB) queryItems(query string, args ...interface{}) ([]*models.Item, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	results := []*models.Item{}
	for rows.Next() {
		var (
			item     models.Item
			mimeType sql.NullString
			title    sql.NullString
		)

		if err := rows.Scan(&item.ID, &item.UserID, &item.URL, &item.ResolvedURL, &mimeType, &title, &item.HasImage, &item.HasVideo, &item.DateResolved, &item.Unread); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		item.MimeType = mimeType.String
		item.Title = title.String

		results = append(results, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	for _, item := range results {
		tags, err := db.loadTags(item.ID)
		if err != nil {
			return nil, err
		}
		item.Tags = tags
	}

	return results, nil
}

func (db *DB) loadTags(itemID string) ([]string, error) {
	rows, err := db.conn.Query("SELECT name FROM later_item_tags WHERE item_id = $1 ORDER BY name", itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}
