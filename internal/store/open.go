package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// DataDir holds the SQLite database file.
	DataDir string
	// DynamoTable and Owner configure the DynamoDB backend.
	DynamoTable string
	Owner       string
	// S3Bucket holds DynamoDB documents too large for an item.
	S3Bucket string
}

// Open creates the configured backend wrapped in BestEffort. A backend that
// cannot be opened yields an unavailable store rather than an error, so the
// studio keeps working without persistence.
func Open(ctx context.Context, opts Options) *BestEffort {
	inner, err := openBackend(ctx, opts)
	if err != nil {
		log.Warn().Err(err).Str("backend", opts.Backend).Msg("Session store unavailable, continuing without persistence")
		return Unavailable(err)
	}
	return NewBestEffort(inner)
}

func openBackend(ctx context.Context, opts Options) (SessionStore, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendSQLite:
		return OpenSQLite(filepath.Join(opts.DataDir, SQLiteFileName))
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendDynamoDB:
		if opts.DynamoTable == "" {
			return nil, fmt.Errorf("%w: dynamodb backend needs a table name", ErrUnavailable)
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		ds := NewDynamoStore(dynamodb.NewFromConfig(cfg), opts.DynamoTable, opts.Owner)
		if opts.S3Bucket != "" {
			ds = ds.WithBlobs(s3.NewFromConfig(cfg), opts.S3Bucket)
		} else {
			log.Warn().Msg("No S3 bucket configured: sessions larger than the DynamoDB item limit will not be saved")
		}
		return ds, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnavailable, opts.Backend)
	}
}
