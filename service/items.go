package service

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/pagemark/later"
	"github.com/pagemark/later/metrics"
	"github.com/pagemark/later/models"
)

// AddItem resolves the submitted URL and saves it for the user. When the
// resolved URL already identifies a saved item, the existing item absorbs
// the submitted tags and nothing else changes; the item keeps its original
// owner and metadata.
func (s *Service) AddItem(ctx context.Context, userID string, req models.AddItemRequest) (*models.Item, error) {
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}

	md, err := s.resolver.Resolve(ctx, req.URL)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("none", later.KindOf(err).String()).Inc()
		return nil, err
	}
	metrics.ResolutionsTotal.WithLabelValues(md.MimeType, "ok").Inc()

	existing, err := s.store.GetItemByResolvedURL(md.ResolvedURL)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Tags = mergeTags(existing.Tags, req.Tags)
		if err := s.store.SaveItem(existing); err != nil {
			return nil, err
		}
		metrics.IngestTotal.WithLabelValues("merged").Inc()
		log.Printf("Merged tags into existing item %s for resolved URL %s", existing.ID, existing.ResolvedURL)
		return existing, nil
	}

	item := &models.Item{
		ID:           uuid.New().String(),
		UserID:       userID,
		URL:          md.NormalURL,
		ResolvedURL:  md.ResolvedURL,
		MimeType:     md.MimeType,
		Title:        md.Title,
		HasImage:     md.HasImage,
		HasVideo:     md.HasVideo,
		DateResolved: md.DateResolved,
		Unread:       true,
		Tags:         mergeTags(nil, req.Tags),
	}

	if err := s.store.SaveItem(item); err != nil {
		return nil, err
	}
	metrics.IngestTotal.WithLabelValues("created").Inc()
	log.Printf("Saved new item %s for user %s: %s", item.ID, userID, item.ResolvedURL)

	return item, nil
}

// Search returns the user's items matching every criterion in the request
func (s *Service) Search(req models.SearchRequest) ([]*models.Item, error) {
	if err := s.checkUser(req.UserID); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		return nil, later.E(later.KindInvalidArgument, "limit must be positive, got %d", req.Limit)
	}

	return s.store.SearchItems(req)
}

// FindByTags returns the user's items carrying at least one of the given tags
func (s *Service) FindByTags(userID string, tags []string) ([]*models.Item, error) {
	if len(tags) == 0 {
		return nil, later.E(later.KindInvalidArgument, "at least one tag is required")
	}
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}

	return s.store.GetItemsByUserAndTags(userID, tags)
}

// Modify updates the read state and tags of one of the user's items.
// Submitted tags join the existing set unless the request asks for the set
// to be replaced, in which case the old tags are dropped first.
func (s *Service) Modify(userID string, req models.ModifyRequest) (*models.Item, error) {
	item, err := s.findAndCheckPermission(userID, req.ItemID)
	if err != nil {
		return nil, err
	}

	item.Unread = req.Unread
	if req.ReplaceTags {
		item.Tags = nil
	}
	if req.HasTags() {
		item.Tags = mergeTags(item.Tags, req.Tags)
	}

	if err := s.store.SaveItem(item); err != nil {
		return nil, err
	}

	return item, nil
}

// Delete removes one of the user's items
func (s *Service) Delete(userID, itemID string) error {
	if _, err := s.findAndCheckPermission(userID, itemID); err != nil {
		return err
	}

	return s.store.DeleteItemByID(itemID)
}

// findAndCheckPermission verifies the caller's account exists, then loads
// the item and verifies the caller owns it
func (s *Service) findAndCheckPermission(userID, itemID string) (*models.Item, error) {
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}

	item, err := s.store.GetItemByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, later.E(later.KindItemNotFound, "no saved item found with id: %s", itemID)
	}
	if item.UserID != userID {
		return nil, later.E(later.KindNotAuthorized, "user %s does not own item %s", userID, itemID)
	}
	return item, nil
}

// mergeTags unions two tag lists, dropping blank entries and duplicates.
// The result is sorted so stored tag sets stay deterministic.
func mergeTags(existing, added []string) []string {
	seen := make(map[string]bool)
	merged := []string{}
	for _, tag := range append(append([]string{}, existing...), added...) {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		merged = append(merged, tag)
	}
	sort.Strings(merged)
	return merged
}
