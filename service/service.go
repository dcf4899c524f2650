// Package service implements the application logic on top of a data store
// and a URL resolver. Handlers stay thin; every rule lives here.
package service

import (
	"context"

	"github.com/pagemark/later"
	"github.com/pagemark/later/models"
)

// UserStore persists user accounts
type UserStore interface {
	SaveUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	ListUsers() ([]*models.User, error)
}

// ItemStore persists saved items and their tags
type ItemStore interface {
	SaveItem(item *models.Item) error
	GetItemByID(id string) (*models.Item, error)
	GetItemByResolvedURL(resolvedURL string) (*models.Item, error)
	SearchItems(req models.SearchRequest) ([]*models.Item, error)
	GetItemsByUserAndTags(userID string, tags []string) ([]*models.Item, error)
	DeleteItemByID(id string) error
}

// NoteStore persists item notes
type NoteStore interface {
	SaveNote(note *models.ItemNote) error
	ListNotes(userID string, from, size int) ([]*models.ItemNote, error)
	SearchNotesByURL(userID, urlFragment string) ([]*models.ItemNote, error)
	SearchNotesByTag(userID, tag string) ([]*models.ItemNote, error)
}

// Store is the full data access surface the service needs. Both the
// PostgreSQL store and the in-memory store satisfy it.
type Store interface {
	UserStore
	ItemStore
	NoteStore
}

// URLResolver turns a submitted URL into metadata
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) (*models.URLMetadata, error)
}

// Service wires the store and resolver together
type Service struct {
	store    Store
	resolver URLResolver
}

// New creates a new Service instance
func New(store Store, resolver URLResolver) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
	}
}

// checkUser fails with a user-not-found error when no account exists for id
func (s *Service) checkUser(id string) error {
	user, err := s.store.GetUserByID(id)
	if err != nil {
		return err
	}
	if user == nil {
		return later.E(later.KindUserNotFound, "no user found with id: %s", id)
	}
	return nil
}
