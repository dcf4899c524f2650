package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pagemark/later"
	"github.com/pagemark/later/models"
)

// maxNoteLength caps note text
const maxNoteLength = 2000

// AddNote attaches a free-text note to an existing item
func (s *Service) AddNote(req models.NoteRequest) (*models.ItemNote, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, later.E(later.KindInvalidArgument, "note text is required")
	}
	if len(req.Text) > maxNoteLength {
		return nil, later.E(later.KindInvalidArgument, "note text exceeds %d characters", maxNoteLength)
	}

	item, err := s.store.GetItemByID(req.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, later.E(later.KindItemNotFound, "no saved item found with id: %s", req.ItemID)
	}

	note := &models.ItemNote{
		ID:         uuid.New().String(),
		ItemID:     item.ID,
		Text:       req.Text,
		DateOfNote: time.Now().UTC(),
	}

	if err := s.store.SaveNote(note); err != nil {
		return nil, err
	}

	return note, nil
}

// ListNotes returns a user's notes in creation order, paginated by offset
// and page size
func (s *Service) ListNotes(userID string, from, size int) ([]*models.ItemNote, error) {
	if from < 0 || size <= 0 {
		return nil, later.E(later.KindInvalidArgument, "invalid pagination: from=%d size=%d", from, size)
	}
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}

	return s.store.ListNotes(userID, from, size)
}

// SearchNotesByURL returns a user's notes whose item URL contains the given
// fragment
func (s *Service) SearchNotesByURL(userID, urlFragment string) ([]*models.ItemNote, error) {
	if urlFragment == "" {
		return nil, later.E(later.KindInvalidArgument, "url fragment is required")
	}
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}

	return s.store.SearchNotesByURL(userID, urlFragment)
}

// SearchNotesByTag returns a user's notes attached to items carrying the
// given tag
func (s *Service) SearchNotesByTag(userID, tag string) ([]*models.ItemNote, error) {
	if tag == "" {
		return nil, later.E(later.KindInvalidArgument, "tag is required")
	}
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}

	return s.store.SearchNotesByTag(userID, tag)
}
