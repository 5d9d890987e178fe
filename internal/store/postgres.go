package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// pgxDB is satisfied by *pgxpool.Pool and pgxmock pools.
type pgxDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// classify maps driver errors onto the store taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrConflict
	}
	return remote(op, err)
}

// PostgresDocumentStore keeps documents as JSONB rows in the documents table.
type PostgresDocumentStore struct {
	db         pgxDB
	databaseID string
}

// NewPostgresDocumentStore binds the store to one logical database id.
func NewPostgresDocumentStore(db pgxDB, databaseID string) *PostgresDocumentStore {
	if db == nil {
		panic("store: pgx pool required")
	}
	if strings.TrimSpace(databaseID) == "" {
		panic("store: database id required")
	}
	return &PostgresDocumentStore{db: db, databaseID: databaseID}
}

func (s *PostgresDocumentStore) CreateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("store: marshal document: %w", err)
	}
	query := `
		INSERT INTO documents (database_id, collection_id, id, data)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := s.db.QueryRow(ctx, query, s.databaseID, collection, id, data).Scan(&createdAt, &updatedAt); err != nil {
		return nil, classify("create document", err)
	}
	return &Document{
		ID:         id,
		Collection: collection,
		CreatedAt:  createdAt.UTC(),
		UpdatedAt:  updatedAt.UTC(),
		Fields:     cloneFields(fields),
	}, nil
}

func (s *PostgresDocumentStore) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE database_id = $1 AND collection_id = $2 AND id = $3
	`
	doc, err := scanDocument(s.db.QueryRow(ctx, query, s.databaseID, collection, id), collection)
	if err != nil {
		return nil, classify("get document", err)
	}
	return doc, nil
}

func (s *PostgresDocumentStore) ListDocuments(ctx context.Context, collection string, q Query) (*DocumentList, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, data, created_at, updated_at FROM documents WHERE database_id = $1 AND collection_id = $2`)
	args := []any{s.databaseID, collection}
	for _, f := range q.Filters {
		args = append(args, f.Field, f.Value)
		fmt.Fprintf(&b, " AND data->>$%d = $%d", len(args)-1, len(args))
	}
	if q.Order == OrderCreatedDesc {
		b.WriteString(" ORDER BY created_at DESC, id DESC")
	} else {
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	}

	rows, err := s.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, remote("list documents", err)
	}
	defer rows.Close()

	list := &DocumentList{}
	for rows.Next() {
		doc, err := scanDocument(rows, collection)
		if err != nil {
			return nil, remote("list documents", err)
		}
		list.Documents = append(list.Documents, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, remote("list documents", err)
	}
	list.Total = len(list.Documents)
	return list, nil
}

func (s *PostgresDocumentStore) UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("store: marshal document: %w", err)
	}
	query := `
		UPDATE documents
		SET data = data || $4::jsonb, updated_at = now()
		WHERE database_id = $1 AND collection_id = $2 AND id = $3
		RETURNING id, data, created_at, updated_at
	`
	doc, err := scanDocument(s.db.QueryRow(ctx, query, s.databaseID, collection, id, data), collection)
	if err != nil {
		return nil, classify("update document", err)
	}
	return doc, nil
}

func scanDocument(row pgx.Row, collection string) (*Document, error) {
	var (
		doc  Document
		data []byte
	)
	if err := row.Scan(&doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Collection = collection
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	doc.Fields = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
		}
	}
	return &doc, nil
}

// PostgresIdentityService stores users with a unique email constraint.
type PostgresIdentityService struct {
	db pgxDB
}

// NewPostgresIdentityService initializes the service backed by pgx.
func NewPostgresIdentityService(db pgxDB) *PostgresIdentityService {
	if db == nil {
		panic("store: pgx pool required")
	}
	return &PostgresIdentityService{db: db}
}

func (s *PostgresIdentityService) Create(ctx context.Context, id, email, phone, name string) (*User, error) {
	query := `
		INSERT INTO users (id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := s.db.QueryRow(ctx, query, id, name, email, phone).Scan(&createdAt); err != nil {
		return nil, classify("create user", err)
	}
	return &User{ID: id, Name: name, Email: email, Phone: phone, CreatedAt: createdAt.UTC()}, nil
}

func (s *PostgresIdentityService) List(ctx context.Context, filter UserFilter) ([]User, error) {
	query := `SELECT id, name, email, phone, created_at FROM users`
	var args []any
	if filter.Email != "" {
		query += ` WHERE lower(email) = lower($1)`
		args = append(args, filter.Email)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, remote("list users", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.CreatedAt); err != nil {
			return nil, remote("list users", err)
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, remote("list users", err)
	}
	return users, nil
}

func (s *PostgresIdentityService) Get(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, name, email, phone, created_at FROM users WHERE id = $1`
	var u User
	if err := s.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.CreatedAt); err != nil {
		return nil, classify("get user", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
