package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pagemark/later"
	"github.com/pagemark/later/metrics"
	"github.com/pagemark/later/models"
	"github.com/pagemark/later/service"
)

// userIDHeader carries the calling user's ID on item and search requests
const userIDHeader = "X-Later-User-Id"

// Search parameter defaults for GET /api/items
const (
	defaultSearchState = models.StateUnread
	defaultSearchKind  = models.ContentAll
	defaultSearchSort  = models.SortNewest
	defaultSearchLimit = 10
)

// Server represents the API server
type Server struct {
	svc         *service.Service
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	corsEnabled bool
}

// Config contains server configuration
type Config struct {
	Addr        string
	CORSEnabled bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		CORSEnabled: true,
	}
}

// NewServer creates a new API server on top of an assembled service
func NewServer(config Config, svc *service.Service) *Server {
	s := &Server{
		svc:         svc,
		addr:        config.Addr,
		mux:         http.NewServeMux(),
		corsEnabled: config.CORSEnabled,
	}

	// Register routes
	s.registerRoutes()

	// Create HTTP server
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.middleware(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Allow time for slow resolutions
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/api/users", s.handleUsers)
	s.mux.HandleFunc("/api/items", s.handleItems)
	s.mux.HandleFunc("/api/items/find", s.handleFindByTags)
	s.mux.HandleFunc("/api/items/", s.handleItem) // Handles /api/items/{id}
	s.mux.HandleFunc("/api/notes", s.handleNotes)
	s.mux.HandleFunc("/api/notes/search", s.handleNoteSearch)
}

// Handler returns the server's root handler, middleware included
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the API server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.server.Shutdown(ctx)
}

// middleware applies common middleware to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS headers
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+userIDHeader)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		// Logging (skip health checks to reduce noise)
		start := time.Now()
		if r.URL.Path != "/health" {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r)

		if r.URL.Path != "/health" {
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
			log.Printf("%s %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// handleUsers handles user listing and registration
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := s.svc.ListUsers()
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, users)

	case http.MethodPost:
		var user models.User
		if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := s.svc.CreateUser(user)
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)

	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleItems handles saving, searching and modifying items
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		respondError(w, http.StatusBadRequest, userIDHeader+" header is required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.handleAddItem(w, r, userID)
	case http.MethodGet:
		s.handleSearchItems(w, r, userID)
	case http.MethodPatch:
		s.handleModifyItem(w, r, userID)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAddItem resolves and saves a submitted URL
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	item, err := s.svc.AddItem(r.Context(), userID, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// handleSearchItems runs a filtered query over the user's items. Every
// parameter has a default: unread items of any content type, ten of them,
// in the service's standard order.
func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request, userID string) {
	req := models.SearchRequest{
		UserID:      userID,
		State:       defaultSearchState,
		ContentType: defaultSearchKind,
		Sort:        defaultSearchSort,
		Limit:       defaultSearchLimit,
	}

	q := r.URL.Query()
	var err error

	if v := q.Get("state"); v != "" {
		if req.State, err = models.ParseReadState(v); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := q.Get("contentType"); v != "" {
		if req.ContentType, err = models.ParseContentKind(v); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := q.Get("sort"); v != "" {
		if req.Sort, err = models.ParseSortOrder(v); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	if v := q.Get("tags"); v != "" {
		req.Tags = splitTags(v)
	}

	items, err := s.svc.Search(req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// handleModifyItem updates an item's read state and tags
func (s *Server) handleModifyItem(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.ModifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ItemID == "" {
		respondError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	item, err := s.svc.Modify(userID, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// handleFindByTags returns the user's items carrying any of the given tags
func (s *Server) handleFindByTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		respondError(w, http.StatusBadRequest, userIDHeader+" header is required")
		return
	}

	tags := splitTags(r.URL.Query().Get("tags"))
	items, err := s.svc.FindByTags(userID, tags)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// handleItem handles DELETE /api/items/{id}
func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		respondError(w, http.StatusBadRequest, userIDHeader+" header is required")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/items/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	if r.Method != http.MethodDelete {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.svc.Delete(userID, id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "item deleted successfully",
	})
}

// handleNotes handles note creation and listing
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		respondError(w, http.StatusBadRequest, userIDHeader+" header is required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req models.NoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		note, err := s.svc.AddNote(req)
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, note)

	case http.MethodGet:
		from, size := 0, defaultSearchLimit
		q := r.URL.Query()
		var err error
		if v := q.Get("from"); v != "" {
			if from, err = strconv.Atoi(v); err != nil {
				respondError(w, http.StatusBadRequest, "invalid from")
				return
			}
		}
		if v := q.Get("size"); v != "" {
			if size, err = strconv.Atoi(v); err != nil {
				respondError(w, http.StatusBadRequest, "invalid size")
				return
			}
		}

		notes, err := s.svc.ListNotes(userID, from, size)
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, notes)

	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleNoteSearch finds notes by item URL fragment or item tag
func (s *Server) handleNoteSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		respondError(w, http.StatusBadRequest, userIDHeader+" header is required")
		return
	}

	q := r.URL.Query()
	urlFragment := q.Get("url")
	tag := q.Get("tag")

	var (
		notes []*models.ItemNote
		err   error
	)
	switch {
	case urlFragment != "":
		notes, err = s.svc.SearchNotesByURL(userID, urlFragment)
	case tag != "":
		notes, err = s.svc.SearchNotesByTag(userID, tag)
	default:
		respondError(w, http.StatusBadRequest, "url or tag parameter is required")
		return
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, notes)
}

// respondServiceError maps an error kind to a status code and writes the
// error response. A cancelled resolution gets no body; the client is gone.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := later.KindOf(err)
	if kind == later.KindCancelled {
		log.Printf("%s %s - cancelled by client", r.Method, r.URL.Path)
		return
	}

	respondError(w, statusForKind(kind), err.Error())
}

// statusForKind maps error kinds to HTTP status codes
func statusForKind(kind later.Kind) int {
	switch kind {
	case later.KindMalformedURL, later.KindInvalidArgument, later.KindUnsupportedContentType:
		return http.StatusBadRequest
	case later.KindAccessDenied, later.KindNotAuthorized:
		return http.StatusForbidden
	case later.KindUserNotFound, later.KindItemNotFound:
		return http.StatusNotFound
	case later.KindRetrievalFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// splitTags parses a comma-separated tag list, dropping blank entries
func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
