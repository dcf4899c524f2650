package models

import (
	"fmt"
	"time"
)

// Item is a link a user saved for later reading.
type Item struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	URL          string    `json:"url"`
	ResolvedURL  string    `json:"resolved_url"`
	MimeType     string    `json:"mime_type,omitempty"`
	Title        string    `json:"title"`
	HasImage     bool      `json:"has_image"`
	HasVideo     bool      `json:"has_video"`
	DateResolved time.Time `json:"date_resolved"`
	Unread       bool      `json:"unread"`
	Tags         []string  `json:"tags"`
}

// URLMetadata is the result of resolving a submitted URL. It is never stored
// on its own; ingestion copies its fields onto a new Item.
type URLMetadata struct {
	NormalURL    string    `json:"normal_url"`
	ResolvedURL  string    `json:"resolved_url"`
	MimeType     string    `json:"mime_type"`
	Title        string    `json:"title"`
	HasImage     bool      `json:"has_image"`
	HasVideo     bool      `json:"has_video"`
	DateResolved time.Time `json:"date_resolved"`
}

// UserState describes the lifecycle state of a user account.
type UserState string

const (
	UserActive  UserState = "ACTIVE"
	UserBlocked UserState = "BLOCKED"
	UserDeleted UserState = "DELETED"
)

// User owns saved items. Ownership never changes after creation.
type User struct {
	ID               string     `json:"id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Email            string     `json:"email"`
	State            UserState  `json:"state"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	RegistrationDate time.Time  `json:"registration_date"`
}

// ItemNote is a free-text annotation attached to a saved item.
type ItemNote struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	Text       string    `json:"text"`
	DateOfNote time.Time `json:"date_of_note"`
}

// ReadState filters items by their unread flag.
type ReadState string

const (
	StateAll    ReadState = "all"
	StateUnread ReadState = "unread"
	StateRead   ReadState = "read"
)

// ParseReadState maps a request parameter to a ReadState.
func ParseReadState(s string) (ReadState, error) {
	switch ReadState(s) {
	case StateAll, StateUnread, StateRead:
		return ReadState(s), nil
	}
	return "", fmt.Errorf("unknown read state: %q", s)
}

// ContentKind filters items by their resolved content category.
type ContentKind string

const (
	ContentAll     ContentKind = "all"
	ContentArticle ContentKind = "article"
	ContentImage   ContentKind = "image"
	ContentVideo   ContentKind = "video"
)

// MimeType returns the stored top-level media type the kind selects, or ""
// when the kind does not constrain the query.
func (c ContentKind) MimeType() string {
	switch c {
	case ContentArticle:
		return "text"
	case ContentImage:
		return "image"
	case ContentVideo:
		return "video"
	}
	return ""
}

// ParseContentKind maps a request parameter to a ContentKind.
func ParseContentKind(s string) (ContentKind, error) {
	switch ContentKind(s) {
	case ContentAll, ContentArticle, ContentImage, ContentVideo:
		return ContentKind(s), nil
	}
	return "", fmt.Errorf("unknown content type: %q", s)
}

// SortOrder selects how search results are ordered.
//
// SortNewest orders ascending by resolution time and SortOldest descending.
// That is the literal behavior this service has always had; clients depend
// on it, so it stays.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortTitle  SortOrder = "title"
)

// ParseSortOrder maps a request parameter to a SortOrder.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case SortNewest, SortOldest, SortTitle:
		return SortOrder(s), nil
	}
	return "", fmt.Errorf("unknown sort order: %q", s)
}

// AddItemRequest is the payload for saving a new link.
type AddItemRequest struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags,omitempty"`
}

// SearchRequest carries the criteria for a filtered item query.
type SearchRequest struct {
	UserID      string      `json:"user_id"`
	State       ReadState   `json:"state"`
	ContentType ContentKind `json:"content_type"`
	Sort        SortOrder   `json:"sort"`
	Limit       int         `json:"limit"`
	Tags        []string    `json:"tags,omitempty"`
}

// HasTags reports whether the request constrains results by tags. An empty
// tag list means "no tag filter", not "match nothing".
func (r SearchRequest) HasTags() bool {
	return len(r.Tags) > 0
}

// ModifyRequest updates the read state and tags of an existing item.
type ModifyRequest struct {
	ItemID      string   `json:"item_id"`
	Unread      bool     `json:"unread"`
	Tags        []string `json:"tags,omitempty"`
	ReplaceTags bool     `json:"replace_tags"`
}

// HasTags reports whether the request carries tags to apply.
func (r ModifyRequest) HasTags() bool {
	return len(r.Tags) > 0
}

// NoteRequest is the payload for attaching a note to an item.
type NoteRequest struct {
	ItemID string `json:"item_id"`
	Text   string `json:"text"`
}
