// Package memstore provides an in-memory implementation of the data access
// layer. It backs tests and local development runs where PostgreSQL is not
// available.
package memstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pagemark/later/models"
)

// Store holds all data in process memory, guarded by a single lock.
type Store struct {
	mu    sync.RWMutex
	users map[string]*models.User
	items map[string]*models.Item
	notes map[string]*models.ItemNote
}

// New creates an empty Store
func New() *Store {
	return &Store{
		users: make(map[string]*models.User),
		items: make(map[string]*models.Item),
		notes: make(map[string]*models.ItemNote),
	}
}

// SaveUser inserts or updates a user
func (s *Store) SaveUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := *user
	s.users[u.ID] = &u
	return nil
}

// GetUserByID retrieves a user by ID. Returns nil when no user exists.
func (s *Store) GetUserByID(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u := *user
	return &u, nil
}

// ListUsers returns all users ordered by registration date
func (s *Store) ListUsers() ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*models.User{}
	for _, user := range s.users {
		u := *user
		results = append(results, &u)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].RegistrationDate.Before(results[j].RegistrationDate)
	})

	return results, nil
}

// SaveItem inserts or updates an item
func (s *Store) SaveItem(item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID] = copyItem(item)
	return nil
}

// GetItemByID retrieves an item by ID. Returns nil when no item exists.
func (s *Store) GetItemByID(id string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return copyItem(item), nil
}

// GetItemByResolvedURL retrieves an item by its resolved URL. The lookup
// spans all users.
func (s *Store) GetItemByResolvedURL(resolvedURL string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.ResolvedURL == resolvedURL {
			return copyItem(item), nil
		}
	}
	return nil, nil
}

// SearchItems returns the items matching every criterion in the request
func (s *Store) SearchItems(req models.SearchRequest) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*models.Item{}
	for _, item := range s.items {
		if item.UserID != req.UserID {
			continue
		}
		if req.State == models.StateUnread && !item.Unread {
			continue
		}
		if req.State == models.StateRead && item.Unread {
			continue
		}
		if mime := req.ContentType.MimeType(); mime != "" && item.MimeType != mime {
			continue
		}
		if req.HasTags() && !hasAnyTag(item.Tags, req.Tags) {
			continue
		}
		results = append(results, copyItem(item))
	}

	switch req.Sort {
	case models.SortOldest:
		sort.Slice(results, func(i, j int) bool {
			return results[j].DateResolved.Before(results[i].DateResolved)
		})
	case models.SortTitle:
		sort.Slice(results, func(i, j int) bool {
			return results[i].Title < results[j].Title
		})
	default:
		sort.Slice(results, func(i, j int) bool {
			return results[i].DateResolved.Before(results[j].DateResolved)
		})
	}

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}

	return results, nil
}

// GetItemsByUserAndTags returns a user's items carrying at least one of the
// given tags
func (s *Store) GetItemsByUserAndTags(userID string, tags []string) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*models.Item{}
	if len(tags) == 0 {
		return results, nil
	}

	for _, item := range s.items {
		if item.UserID != userID {
			continue
		}
		if !hasAnyTag(item.Tags, tags) {
			continue
		}
		results = append(results, copyItem(item))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DateResolved.Before(results[j].DateResolved)
	})

	return results, nil
}

// DeleteItemByID deletes an item and its notes
func (s *Store) DeleteItemByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("no item found with id: %s", id)
	}
	delete(s.items, id)

	for noteID, note := range s.notes {
		if note.ItemID == id {
			delete(s.notes, noteID)
		}
	}

	return nil
}

// SaveNote inserts a note attached to an item
func (s *Store) SaveNote(note *models.ItemNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := *note
	s.notes[n.ID] = &n
	return nil
}

// ListNotes returns a user's notes ordered by creation date, paginated by
// offset and page size. A note belongs to the user owning its item.
func (s *Store) ListNotes(userID string, from, size int) ([]*models.ItemNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedNotes(func(note *models.ItemNote) bool {
		item, ok := s.items[note.ItemID]
		return ok && item.UserID == userID
	})

	if from >= len(all) {
		return []*models.ItemNote{}, nil
	}
	all = all[from:]
	if size > 0 && len(all) > size {
		all = all[:size]
	}

	return all, nil
}

// SearchNotesByURL returns a user's notes whose item URL contains the given
// fragment
func (s *Store) SearchNotesByURL(userID, urlFragment string) ([]*models.ItemNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedNotes(func(note *models.ItemNote) bool {
		item, ok := s.items[note.ItemID]
		return ok && item.UserID == userID && strings.Contains(item.URL, urlFragment)
	}), nil
}

// SearchNotesByTag returns a user's notes attached to items carrying the
// given tag
func (s *Store) SearchNotesByTag(userID, tag string) ([]*models.ItemNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedNotes(func(note *models.ItemNote) bool {
		item, ok := s.items[note.ItemID]
		return ok && item.UserID == userID && hasAnyTag(item.Tags, []string{tag})
	}), nil
}

func (s *Store) sortedNotes(keep func(*models.ItemNote) bool) []*models.ItemNote {
	results := []*models.ItemNote{}
	for _, note := range s.notes {
		if keep(note) {
			n := *note
			results = append(results, &n)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DateOfNote.Equal(results[j].DateOfNote) {
			return results[i].ID < results[j].ID
		}
		return results[i].DateOfNote.Before(results[j].DateOfNote)
	})

	return results
}

func copyItem(item *models.Item) *models.Item {
	out := *item
	out.Tags = append([]string(nil), item.Tags...)
	return &out
}

func hasAnyTag(tags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range tags {
			if t == w {
				return true
			}
		}
	}
	return false
}
