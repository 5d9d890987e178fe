package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	appconfig "github.com/wolfman30/carepulse/internal/config"
	"github.com/wolfman30/carepulse/internal/store"
	"github.com/wolfman30/carepulse/pkg/logging"
)

// AWSConfigFunc lazily loads the shared AWS configuration. It is only called
// when a selected backend needs AWS.
type AWSConfigFunc func() (aws.Config, error)

// Backends are the remote platform clients the workflows run against.
type Backends struct {
	Identities store.IdentityService
	Documents  store.DocumentStore
	Blobs      store.BlobStore

	pool *pgxpool.Pool
}

// Close releases any pooled connections.
func (b *Backends) Close() {
	if b != nil && b.pool != nil {
		b.pool.Close()
	}
}

// BuildBackends selects the identity, document and blob backends from config.
// Identities live in Postgres whenever DATABASE_URL is set, independent of the
// document backend.
func BuildBackends(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigFunc, logger *logging.Logger) (*Backends, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	b := &Backends{}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		b.pool = pool
		b.Identities = store.NewPostgresIdentityService(pool)
	} else {
		logger.Warn("DATABASE_URL not set; users are kept in memory")
		b.Identities = store.NewMemoryIdentityService()
	}

	switch cfg.StoreBackend {
	case "postgres":
		if b.pool == nil {
			return nil, fmt.Errorf("bootstrap: STORE_BACKEND=postgres requires DATABASE_URL")
		}
		b.Documents = store.NewPostgresDocumentStore(b.pool, cfg.DatabaseID)
	case "dynamodb":
		awsCfg, err := awsConfig(loadAWS)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Documents = store.NewDynamoDocumentStore(dynamodb.NewFromConfig(awsCfg), cfg.DocumentsTable, cfg.DatabaseID)
	case "", "memory":
		b.Documents = store.NewMemoryDocumentStore()
	default:
		b.Close()
		return nil, fmt.Errorf("bootstrap: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.BlobBackend {
	case "s3":
		awsCfg, err := awsConfig(loadAWS)
		if err != nil {
			b.Close()
			return nil, err
		}
		pathStyle := strings.TrimSpace(cfg.AWSEndpointOverride) != ""
		b.Blobs = store.NewS3BlobStore(s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = pathStyle
		}))
	case "", "memory":
		b.Blobs = store.NewMemoryBlobStore()
	default:
		b.Close()
		return nil, fmt.Errorf("bootstrap: unknown BLOB_BACKEND %q", cfg.BlobBackend)
	}

	logger.Info("store backends ready",
		"documents", backendName(cfg.StoreBackend),
		"blobs", backendName(cfg.BlobBackend),
		"identities_in_postgres", b.pool != nil,
	)
	return b, nil
}

// OpenAuditDB opens the database/sql handle the audit trail writes through.
// It returns nil without DATABASE_URL, which disables auditing.
func OpenAuditDB(cfg *appconfig.Config) (*sql.DB, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open audit db: %w", err)
	}
	db.SetMaxOpenConns(4)
	return db, nil
}

func awsConfig(load AWSConfigFunc) (aws.Config, error) {
	if load == nil {
		return aws.Config{}, fmt.Errorf("bootstrap: aws config loader required")
	}
	cfg, err := load()
	if err != nil {
		return aws.Config{}, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return cfg, nil
}

func backendName(name string) string {
	if name == "" {
		return "memory"
	}
	return name
}
