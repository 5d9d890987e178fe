// Package store is the client side of the external platform: an identity
// service, a document database and a blob store. Workflows depend only on the
// interfaces here; backends are chosen at wiring time.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is an identity record held by the identity service.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFilter narrows IdentityService.List. Empty fields match everything.
type UserFilter struct {
	Email string
}

// IdentityService creates and looks up users. Create returns ErrConflict when
// the email is already registered.
type IdentityService interface {
	Create(ctx context.Context, id, email, phone, name string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]User, error)
	Get(ctx context.Context, id string) (*User, error)
}

// Document is a schemaless record in a collection.
type Document struct {
	ID         string
	Collection string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Fields     map[string]any
}

// DocumentList is one listing snapshot. Total always equals len(Documents).
type DocumentList struct {
	Total     int
	Documents []Document
}

// Filter matches documents whose field equals Value.
type Filter struct {
	Field string
	Value string
}

// Equal builds an equality filter.
func Equal(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// Order selects the listing order by creation time.
type Order int

const (
	OrderCreatedAsc Order = iota
	OrderCreatedDesc
)

// Query describes a listing. Filters are ANDed.
type Query struct {
	Filters []Filter
	Order   Order
}

// DocumentStore is bound to one database; collections are addressed per call.
// UpdateDocument merges the given fields into the stored document and returns
// ErrNotFound when the document does not exist.
type DocumentStore interface {
	CreateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
	GetDocument(ctx context.Context, collection, id string) (*Document, error)
	ListDocuments(ctx context.Context, collection string, q Query) (*DocumentList, error)
	UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
}

// File is an upload held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileRef identifies a stored blob.
type FileRef struct {
	ID          string `json:"id"`
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// BlobStore stores files in buckets.
type BlobStore interface {
	CreateFile(ctx context.Context, bucket, id string, file File) (*FileRef, error)
}

// NewID returns a fresh unique identifier for documents, users and files.
func NewID() string {
	return uuid.NewString()
}

// system fields live on Document itself, never inside Fields.
var systemFields = []string{"id", "created_at", "updated_at"}

// Encode converts a JSON-tagged record into document fields.
func Encode(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode fields: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("store: encode fields: %w", err)
	}
	for _, key := range systemFields {
		delete(fields, key)
	}
	return fields, nil
}

// Decode fills a JSON-tagged record from a document, including id and timestamps.
func Decode(doc *Document, v any) error {
	if doc == nil {
		return fmt.Errorf("store: decode nil document")
	}
	merged := make(map[string]any, len(doc.Fields)+3)
	for k, val := range doc.Fields {
		merged[k] = val
	}
	merged["id"] = doc.ID
	merged["created_at"] = doc.CreatedAt
	merged["updated_at"] = doc.UpdatedAt

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("store: decode document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode document %s: %w", doc.ID, err)
	}
	return nil
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
