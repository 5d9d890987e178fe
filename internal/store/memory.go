package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryDocumentStore is an in-process DocumentStore for development and tests.
type MemoryDocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*Document
	now         func() time.Time
}

// NewMemoryDocumentStore creates an empty store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		collections: make(map[string]map[string]*Document),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source.
func (s *MemoryDocumentStore) WithClock(now func() time.Time) *MemoryDocumentStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryDocumentStore) CreateDocument(_ context.Context, collection, id string, fields map[string]any) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]*Document)
		s.collections[collection] = docs
	}
	if _, exists := docs[id]; exists {
		return nil, ErrConflict
	}
	now := s.now()
	doc := &Document{
		ID:         id,
		Collection: collection,
		CreatedAt:  now,
		UpdatedAt:  now,
		Fields:     cloneFields(fields),
	}
	docs[id] = doc
	return copyDocument(doc), nil
}

func (s *MemoryDocumentStore) GetDocument(_ context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDocument(doc), nil
}

func (s *MemoryDocumentStore) ListDocuments(_ context.Context, collection string, q Query) (*DocumentList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, doc := range s.collections[collection] {
		if matches(doc.Fields, q.Filters) {
			out = append(out, *copyDocument(doc))
		}
	}
	sortDocuments(out, q.Order)
	return &DocumentList{Total: len(out), Documents: out}, nil
}

func (s *MemoryDocumentStore) UpdateDocument(_ context.Context, collection, id string, fields map[string]any) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range fields {
		doc.Fields[k] = v
	}
	doc.UpdatedAt = s.now()
	return copyDocument(doc), nil
}

func matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field].(string)
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}

func sortDocuments(docs []Document, order Order) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == OrderCreatedDesc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if order == OrderCreatedDesc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}

func copyDocument(doc *Document) *Document {
	cp := *doc
	cp.Fields = cloneFields(doc.Fields)
	return &cp
}

// MemoryIdentityService keeps users in memory with unique, case-insensitive emails.
type MemoryIdentityService struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
}

// NewMemoryIdentityService creates an empty identity service.
func NewMemoryIdentityService() *MemoryIdentityService {
	return &MemoryIdentityService{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryIdentityService) Create(_ context.Context, id, email, phone, name string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(email))
	if _, taken := s.byEmail[key]; taken {
		return nil, ErrConflict
	}
	if _, taken := s.users[id]; taken {
		return nil, ErrConflict
	}
	user := &User{ID: id, Name: name, Email: email, Phone: phone, CreatedAt: time.Now().UTC()}
	s.users[id] = user
	s.byEmail[key] = id
	cp := *user
	return &cp, nil
}

func (s *MemoryIdentityService) List(_ context.Context, filter UserFilter) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []User
	if filter.Email != "" {
		if id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(filter.Email))]; ok {
			out = append(out, *s.users[id])
		}
		return out, nil
	}
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryIdentityService) Get(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *user
	return &cp, nil
}

// MemoryBlobStore keeps uploaded files in memory.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	files map[string]File
	calls int
}

// NewMemoryBlobStore creates an empty blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{files: make(map[string]File)}
}

func (s *MemoryBlobStore) CreateFile(_ context.Context, bucket, id string, file File) (*FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	key := bucket + "/" + id
	if _, exists := s.files[key]; exists {
		return nil, ErrConflict
	}
	data := append([]byte(nil), file.Data...)
	s.files[key] = File{Name: file.Name, ContentType: file.ContentType, Data: data}
	return &FileRef{
		ID:          id,
		Bucket:      bucket,
		Name:        file.Name,
		ContentType: file.ContentType,
		SizeBytes:   int64(len(data)),
	}, nil
}

// Calls reports how many CreateFile calls were made.
func (s *MemoryBlobStore) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// File returns a stored file.
func (s *MemoryBlobStore) File(bucket, id string) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[bucket+"/"+id]
	return f, ok
}
