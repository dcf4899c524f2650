package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemark/later"
	"github.com/pagemark/later/memstore"
	"github.com/pagemark/later/models"
)

// fakeResolver returns canned metadata instead of going to the network
type fakeResolver struct {
	md  *models.URLMetadata
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, rawURL string) (*models.URLMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	md := *f.md
	md.NormalURL = rawURL
	md.DateResolved = time.Now().UTC()
	return &md, nil
}

func newTestService(t *testing.T, resolver URLResolver) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return New(store, resolver), store
}

func createTestUser(t *testing.T, svc *Service) *models.User {
	t.Helper()
	user, err := svc.CreateUser(models.User{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.com",
	})
	require.NoError(t, err)
	return user
}

func articleMetadata(resolvedURL string) *models.URLMetadata {
	return &models.URLMetadata{
		ResolvedURL: resolvedURL,
		MimeType:    "text",
		Title:       "An article",
		HasImage:    true,
	}
}

func TestAddItemCreatesNewItem(t *testing.T) {
	svc, _ := newTestService(t, &fakeResolver{md: articleMetadata("http://example.com/post/")})
	user := createTestUser(t, svc)

	item, err := svc.AddItem(context.Background(), user.ID, models.AddItemRequest{
		URL:  "http://example.com/post",
		Tags: []string{"tech", "reading", "tech", " "},
	})
	require.NoError(t, err)

	assert.Equal(t, user.ID, item.UserID)
	assert.Equal(t, "http://example.com/post", item.URL)
	assert.Equal(t, "http://example.com/post/", item.ResolvedURL)
	assert.Equal(t, "text", item.MimeType)
	assert.Equal(t, "An article", item.Title)
	assert.True(t, item.Unread)
	assert.True(t, item.HasImage)
	assert.False(t, item.HasVideo)
	assert.Equal(t, []string{"reading", "tech"}, item.Tags)
}

func TestAddItemMergesDuplicate(t *testing.T) {
	svc, _ := newTestService(t, &fakeResolver{md: articleMetadata("http://example.com/post/")})
	owner := createTestUser(t, svc)
	other, err := svc.CreateUser(models.User{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"})
	require.NoError(t, err)

	first, err := svc.AddItem(context.Background(), owner.ID, models.AddItemRequest{
		URL:  "http://example.com/post",
		Tags: []string{"tech"},
	})
	require.NoError(t, err)

	// A different user saving a URL that resolves to the same address does
	// not create a second item; the first one absorbs the tags.
	merged, err := svc.AddItem(context.Background(), other.ID, models.AddItemRequest{
		URL:  "http://example.com/post?utm=x",
		Tags: []string{"reading"},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, owner.ID, merged.UserID)
	assert.Equal(t, first.URL, merged.URL)
	assert.Equal(t, []string{"reading", "tech"}, merged.Tags)
}

func TestAddItemUnknownUser(t *testing.T) {
	svc, _ := newTestService(t, &fakeResolver{md: articleMetadata("http://example.com/")})

	_, err := svc.AddItem(context.Background(), "missing", models.AddItemRequest{URL: "http://example.com/"})
	require.Error(t, err)
	assert.Equal(t, later.KindUserNotFound, later.KindOf(err))
}

func TestAddItemResolutionFailure(t *testing.T) {
	svc, _ := newTestService(t, &fakeResolver{err: later.E(later.KindRetrievalFailed, "boom")})
	user := createTestUser(t, svc)

	_, err := svc.AddItem(context.Background(), user.ID, models.AddItemRequest{URL: "http://example.com/"})
	require.Error(t, err)
	assert.Equal(t, later.KindRetrievalFailed, later.KindOf(err))
}

func seedItems(t *testing.T, store *memstore.Store, userID string) {
	t.Helper()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []*models.Item{
		{ID: "i1", UserID: userID, ResolvedURL: "http://a/", MimeType: "text", Title: "charlie", DateResolved: base, Unread: true, Tags: []string{"tech"}},
		{ID: "i2", UserID: userID, ResolvedURL: "http://b/", MimeType: "image", Title: "alpha", DateResolved: base.Add(time.Hour), Unread: false, Tags: []string{"photos"}},
		{ID: "i3", UserID: userID, ResolvedURL: "http://c/", MimeType: "video", Title: "bravo", DateResolved: base.Add(2 * time.Hour), Unread: true},
	}
	for _, item := range seed {
		require.NoError(t, store.SaveItem(item))
	}
}

func TestSearchFiltersAndSort(t *testing.T) {
	svc, store := newTestService(t, &fakeResolver{})
	user := createTestUser(t, svc)
	seedItems(t, store, user.ID)

	tests := []struct {
		name    string
		req     models.SearchRequest
		wantIDs []string
	}{
		{
			name:    "unread newest is oldest-first",
			req:     models.SearchRequest{UserID: user.ID, State: models.StateUnread, ContentType: models.ContentAll, Sort: models.SortNewest, Limit: 10},
			wantIDs: []string{"i1", "i3"},
		},
		{
			name:    "oldest sort is newest-first",
			req:     models.SearchRequest{UserID: user.ID, State: models.StateAll, ContentType: models.ContentAll, Sort: models.SortOldest, Limit: 10},
			wantIDs: []string{"i3", "i2", "i1"},
		},
		{
			name:    "title sort",
			req:     models.SearchRequest{UserID: user.ID, State: models.StateAll, ContentType: models.ContentAll, Sort: models.SortTitle, Limit: 10},
			wantIDs: []string{"i2", "i3", "i1"},
		},
		{
			name:    "content type filter",
			req:     models.SearchRequest{UserID: user.ID, State: models.StateAll, ContentType: models.ContentImage, Sort: models.SortNewest, Limit: 10},
			wantIDs: []string{"i2"},
		},
		{
			name:    "tag filter matches any",
			req:     models.SearchRequest{UserID: user.ID, State: models.StateAll, ContentType: models.ContentAll, Sort: models.SortNewest, Limit: 10, Tags: []string{"photos", "missing"}},
			wantIDs: []string{"i2"},
		},
		{
			name:    "limit truncates",
			req:     models.SearchRequest{UserID: user.ID, State: models.StateAll, ContentType: models.ContentAll, Sort: models.SortNewest, Limit: 2},
			wantIDs: []string{"i1", "i2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := svc.Search(tt.req)
			require.NoError(t, err)

			ids := make([]string, len(items))
			for i, item := range items {
				ids[i] = item.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestSearchInvalidLimit(t *testing.T) {
	svc, _ := newTestService(t, &fakeResolver{})
	user := createTestUser(t, svc)

	_, err := svc.Search(models.SearchRequest{UserID: user.ID, State: models.StateAll, ContentType: models.ContentAll, Sort: models.SortNewest, Limit: 0})
	require.Error(t, err)
	assert.Equal(t, later.KindInvalidArgument, later.KindOf(err))

	// The account check runs first, so an unknown caller with a bad limit
	// still surfaces as a missing user
	_, err = svc.Search(models.SearchRequest{UserID: "no-such-user", State: models.StateAll, ContentType: models.ContentAll, Sort: models.SortNewest, Limit: 0})
	require.Error(t, err)
	assert.Equal(t, later.KindUserNotFound, later.KindOf(err))
}

func TestFindByTags(t *testing.T) {
	svc, store := newTestService(t, &fakeResolver{})
	user := createTestUser(t, svc)
	seedItems(t, store, user.ID)

	items, err := svc.FindByTags(user.ID, []string{"tech"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "i1", items[0].ID)

	_, err = svc.FindByTags(user.ID, nil)
	require.Error(t, err)
	assert.Equal(t, later.KindInvalidArgument, later.KindOf(err))
}

func TestModify(t *testing.T) {
	svc, store := newTestService(t, &fakeResolver{})
	user := createTestUser(t, svc)
	seedItems(t, store, user.ID)

	// Mark read and merge a tag
	item, err := svc.Modify(user.ID, models.ModifyRequest{ItemID: "i1", Unread: false, Tags: []string{"go"}})
	require.NoError(t, err)
	assert.False(t, item.Unread)
	assert.Equal(t, []string{"go", "tech"}, item.Tags)

	// Replace the tag set entirely
	item, err = svc.Modify(user.ID, models.ModifyRequest{ItemID: "i1", Unread: false, Tags: []string{"new"}, ReplaceTags: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, item.Tags)

	// Replace with no tags clears the set
	item, err = svc.Modify(user.ID, models.ModifyRequest{ItemID: "i1", Unread: true, ReplaceTags: true})
	require.NoError(t, err)
	assert.Empty(t, item.Tags)
	assert.True(t, item.Unread)
}

func TestModifyPermissions(t *testing.T) {
	svc, store := newTestService(t, &fakeResolver{})
	owner := createTestUser(t, svc)
	other, err := svc.CreateUser(models.User{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"})
	require.NoError(t, err)
	seedItems(t, store, owner.ID)

	_, err = svc.Modify(other.ID, models.ModifyRequest{ItemID: "i1", Unread: false})
	require.Error(t, err)
	assert.Equal(t, later.KindNotAuthorized, later.KindOf(err))

	_, err = svc.Modify(owner.ID, models.ModifyRequest{ItemID: "missing", Unread: false})
	require.Error(t, err)
	assert.Equal(t, later.KindItemNotFound, later.KindOf(err))

	// An unknown caller fails on the account check before the item is
	// looked at, whether the item exists or not
	_, err = svc.Modify("no-such-user", models.ModifyRequest{ItemID: "i1", Unread: false})
	require.Error(t, err)
	assert.Equal(t, later.KindUserNotFound, later.KindOf(err))

	_, err = svc.Modify("no-such-user", models.ModifyRequest{ItemID: "missing", Unread: false})
	require.Error(t, err)
	assert.Equal(t, later.KindUserNotFound, later.KindOf(err))
}

func TestDelete(t *testing.T) {
	svc, store := newTestService(t, &fakeResolver{})
	owner := createTestUser(t, svc)
	other, err := svc.CreateUser(models.User{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"})
	require.NoError(t, err)
	seedItems(t, store, owner.ID)

	err = svc.Delete(other.ID, "i1")
	require.Error(t, err)
	assert.Equal(t, later.KindNotAuthorized, later.KindOf(err))

	err = svc.Delete("no-such-user", "i1")
	require.Error(t, err)
	assert.Equal(t, later.KindUserNotFound, later.KindOf(err))

	require.NoError(t, svc.Delete(owner.ID, "i1"))

	got, err := store.GetItemByID("i1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
