package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pagemark/later"
	"github.com/pagemark/later/memstore"
	"github.com/pagemark/later/models"
	"github.com/pagemark/later/service"
)

// fakeResolver returns canned metadata or a canned error
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

func setupTestServer(t *testing.T, resolver service.URLResolver) (*Server, *memstore.Store, *models.User) {
	t.Helper()

	store := memstore.New()
	svc := service.New(store, resolver)
	server := NewServer(Config{Addr: ":0", CORSEnabled: false}, svc)

	user, err := svc.CreateUser(models.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"})
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return server, store, user
}

func doRequest(t *testing.T, server *Server, method, target, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var bodyBytes []byte
	if body != nil {
		if str, ok := body.(string); ok {
			bodyBytes = []byte(str)
		} else {
			var err error
			bodyBytes, err = json.Marshal(body)
			if err != nil {
				t.Fatalf("Failed to marshal body: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(bodyBytes))
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func decodeItem(t *testing.T, w *httptest.ResponseRecorder) *models.Item {
	t.Helper()
	var item models.Item
	if err := json.NewDecoder(w.Body).Decode(&item); err != nil {
		t.Fatalf("Failed to decode item: %v", err)
	}
	return &item
}

func TestHandleAddItem(t *testing.T) {
	md := &models.URLMetadata{
		ResolvedURL: "http://example.com/post/",
		MimeType:    "text",
		Title:       "A post",
		HasImage:    true,
	}

	tests := []struct {
		name           string
		resolver       service.URLResolver
		userID         func(u *models.User) string
		body           interface{}
		wantStatusCode int
	}{
		{
			name:           "valid request",
			resolver:       &fakeResolver{md: md},
			userID:         func(u *models.User) string { return u.ID },
			body:           models.AddItemRequest{URL: "http://example.com/post", Tags: []string{"tech"}},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing user header",
			resolver:       &fakeResolver{md: md},
			userID:         func(u *models.User) string { return "" },
			body:           models.AddItemRequest{URL: "http://example.com/post"},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing url",
			resolver:       &fakeResolver{md: md},
			userID:         func(u *models.User) string { return u.ID },
			body:           models.AddItemRequest{},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			resolver:       &fakeResolver{md: md},
			userID:         func(u *models.User) string { return u.ID },
			body:           "not json",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "unknown user",
			resolver:       &fakeResolver{md: md},
			userID:         func(u *models.User) string { return "missing" },
			body:           models.AddItemRequest{URL: "http://example.com/post"},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "malformed URL",
			resolver:       &fakeResolver{err: later.E(later.KindMalformedURL, "the URL is malformed")},
			userID:         func(u *models.User) string { return u.ID },
			body:           models.AddItemRequest{URL: "::"},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "access denied",
			resolver:       &fakeResolver{err: later.E(later.KindAccessDenied, "no access")},
			userID:         func(u *models.User) string { return u.ID },
			body:           models.AddItemRequest{URL: "http://example.com/secret"},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "retrieval failed",
			resolver:       &fakeResolver{err: later.E(later.KindRetrievalFailed, "cannot retrieve")},
			userID:         func(u *models.User) string { return u.ID },
			body:           models.AddItemRequest{URL: "http://down.example.com/"},
			wantStatusCode: http.StatusBadGateway,
		},
		{
			name:           "unsupported content type",
			resolver:       &fakeResolver{err: later.E(later.KindUnsupportedContentType, "not supported")},
			userID:         func(u *models.User) string { return u.ID },
			body:           models.AddItemRequest{URL: "http://example.com/app.bin"},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _, user := setupTestServer(t, tt.resolver)

			w := doRequest(t, server, http.MethodPost, "/api/items", tt.userID(user), tt.body)
			if w.Code != tt.wantStatusCode {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestHandleAddItemResponseBody(t *testing.T) {
	server, _, user := setupTestServer(t, &fakeResolver{md: &models.URLMetadata{
		ResolvedURL: "http://example.com/post/",
		MimeType:    "text",
		Title:       "A post",
		HasImage:    true,
	}})

	w := doRequest(t, server, http.MethodPost, "/api/items", user.ID, models.AddItemRequest{
		URL:  "http://example.com/post",
		Tags: []string{"tech"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	item := decodeItem(t, w)
	if item.ID == "" {
		t.Error("expected item ID to be assigned")
	}
	if item.UserID != user.ID {
		t.Errorf("UserID = %s, want %s", item.UserID, user.ID)
	}
	if !item.Unread {
		t.Error("new item should be unread")
	}
	if item.Title != "A post" || !item.HasImage || item.HasVideo {
		t.Errorf("unexpected metadata: %+v", item)
	}
}

func seedSearchItems(t *testing.T, store *memstore.Store, userID string) {
	t.Helper()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []*models.Item{
		{ID: "i1", UserID: userID, ResolvedURL: "http://a/", MimeType: "text", Title: "charlie", DateResolved: base, Unread: true, Tags: []string{"tech"}},
		{ID: "i2", UserID: userID, ResolvedURL: "http://b/", MimeType: "image", Title: "alpha", DateResolved: base.Add(time.Hour), Unread: false, Tags: []string{"photos"}},
		{ID: "i3", UserID: userID, ResolvedURL: "http://c/", MimeType: "video", Title: "bravo", DateResolved: base.Add(2 * time.Hour), Unread: true},
	}
	for _, item := range seed {
		if err := store.SaveItem(item); err != nil {
			t.Fatalf("Failed to seed item: %v", err)
		}
	}
}

func TestHandleSearchItems(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		wantStatusCode int
		wantIDs        []string
	}{
		{
			name:           "defaults return unread",
			query:          "",
			wantStatusCode: http.StatusOK,
			wantIDs:        []string{"i1", "i3"},
		},
		{
			name:           "read items",
			query:          "?state=read",
			wantStatusCode: http.StatusOK,
			wantIDs:        []string{"i2"},
		},
		{
			name:           "content type filter",
			query:          "?state=all&contentType=video",
			wantStatusCode: http.StatusOK,
			wantIDs:        []string{"i3"},
		},
		{
			name:           "tag filter",
			query:          "?state=all&tags=photos,missing",
			wantStatusCode: http.StatusOK,
			wantIDs:        []string{"i2"},
		},
		{
			name:           "limit",
			query:          "?state=all&limit=1",
			wantStatusCode: http.StatusOK,
			wantIDs:        []string{"i1"},
		},
		{
			name:           "oldest sort reverses",
			query:          "?state=all&sort=oldest",
			wantStatusCode: http.StatusOK,
			wantIDs:        []string{"i3", "i2", "i1"},
		},
		{
			name:           "invalid state",
			query:          "?state=pending",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid sort",
			query:          "?sort=relevance",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "zero limit rejected",
			query:          "?limit=0",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "trailing garbage in limit rejected",
			query:          "?limit=10abc",
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, store, user := setupTestServer(t, &fakeResolver{})
			seedSearchItems(t, store, user.ID)

			w := doRequest(t, server, http.MethodGet, "/api/items"+tt.query, user.ID, nil)
			if w.Code != tt.wantStatusCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if tt.wantIDs == nil {
				return
			}

			var items []*models.Item
			if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
				t.Fatalf("Failed to decode items: %v", err)
			}
			ids := make([]string, len(items))
			for i, item := range items {
				ids[i] = item.ID
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestHandleModifyItem(t *testing.T) {
	server, store, user := setupTestServer(t, &fakeResolver{})
	seedSearchItems(t, store, user.ID)

	w := doRequest(t, server, http.MethodPatch, "/api/items", user.ID, models.ModifyRequest{
		ItemID: "i1",
		Unread: false,
		Tags:   []string{"go"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	item := decodeItem(t, w)
	if item.Unread {
		t.Error("item should be read after modify")
	}
	if len(item.Tags) != 2 {
		t.Errorf("tags = %v, want merged set of 2", item.Tags)
	}

	w = doRequest(t, server, http.MethodPatch, "/api/items", user.ID, models.ModifyRequest{ItemID: "gone", Unread: true})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleModifyItemNotOwned(t *testing.T) {
	server, store, user := setupTestServer(t, &fakeResolver{})
	seedSearchItems(t, store, user.ID)

	other := &models.User{ID: "other", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", State: models.UserActive, RegistrationDate: time.Now()}
	if err := store.SaveUser(other); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	w := doRequest(t, server, http.MethodPatch, "/api/items", other.ID, models.ModifyRequest{ItemID: "i1", Unread: false})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}

	// An unregistered caller fails on the account check, not ownership
	w = doRequest(t, server, http.MethodPatch, "/api/items", "nobody", models.ModifyRequest{ItemID: "i1", Unread: false})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown caller: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleDeleteItem(t *testing.T) {
	server, store, user := setupTestServer(t, &fakeResolver{})
	seedSearchItems(t, store, user.ID)

	w := doRequest(t, server, http.MethodDelete, "/api/items/i1", user.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	got, err := store.GetItemByID("i1")
	if err != nil {
		t.Fatalf("GetItemByID() error = %v", err)
	}
	if got != nil {
		t.Error("item still present after delete")
	}

	w = doRequest(t, server, http.MethodDelete, "/api/items/i1", user.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("deleting missing item: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleFindByTags(t *testing.T) {
	server, store, user := setupTestServer(t, &fakeResolver{})
	seedSearchItems(t, store, user.ID)

	w := doRequest(t, server, http.MethodGet, "/api/items/find?tags=tech", user.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var items []*models.Item
	if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
		t.Fatalf("Failed to decode items: %v", err)
	}
	if len(items) != 1 || items[0].ID != "i1" {
		t.Errorf("items = %v, want [i1]", items)
	}

	w = doRequest(t, server, http.MethodGet, "/api/items/find", user.ID, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing tags: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleUsers(t *testing.T) {
	server, _, _ := setupTestServer(t, &fakeResolver{})

	w := doRequest(t, server, http.MethodPost, "/api/users", "", models.User{
		FirstName: "Alan", LastName: "Turing", Email: "alan@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var created models.User
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode user: %v", err)
	}
	if created.ID == "" || created.State != models.UserActive {
		t.Errorf("unexpected user: %+v", created)
	}

	w = doRequest(t, server, http.MethodPost, "/api/users", "", models.User{FirstName: "No", LastName: "Email"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing email: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = doRequest(t, server, http.MethodGet, "/api/users", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var users []*models.User
	if err := json.NewDecoder(w.Body).Decode(&users); err != nil {
		t.Fatalf("Failed to decode users: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("users = %d, want 2", len(users))
	}
}

func TestHandleNotes(t *testing.T) {
	server, store, user := setupTestServer(t, &fakeResolver{})
	seedSearchItems(t, store, user.ID)

	w := doRequest(t, server, http.MethodPost, "/api/notes", user.ID, models.NoteRequest{
		ItemID: "i1", Text: "read on the train",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, server, http.MethodPost, "/api/notes", "", models.NoteRequest{ItemID: "i1", Text: "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing user header: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = doRequest(t, server, http.MethodPost, "/api/notes", user.ID, models.NoteRequest{ItemID: "missing", Text: "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("note on missing item: status = %d, want %d", w.Code, http.StatusNotFound)
	}

	w = doRequest(t, server, http.MethodPost, "/api/notes", user.ID, models.NoteRequest{ItemID: "i1", Text: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty note: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = doRequest(t, server, http.MethodGet, "/api/notes?from=0&size=10abc", user.ID, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("garbage size: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = doRequest(t, server, http.MethodGet, "/api/notes?from=0&size=10", user.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var notes []*models.ItemNote
	if err := json.NewDecoder(w.Body).Decode(&notes); err != nil {
		t.Fatalf("Failed to decode notes: %v", err)
	}
	if len(notes) != 1 {
		t.Errorf("notes = %d, want 1", len(notes))
	}

	w = doRequest(t, server, http.MethodGet, "/api/notes/search?url=a", user.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = doRequest(t, server, http.MethodGet, "/api/notes/search?tag=tech", user.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = doRequest(t, server, http.MethodGet, "/api/notes/search", user.ID, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search without params: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleHealth(t *testing.T) {
	server, _, _ := setupTestServer(t, &fakeResolver{})

	w := doRequest(t, server, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}
