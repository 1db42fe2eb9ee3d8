package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/luxstudio/internal/studio"
)

// DynamoDB key constants.
const (
	pkPrefix = "STUDIO#"
	skMeta   = "SESSION"
)

// MaxInlineDocumentBytes is the largest document kept inside the DynamoDB
// item. DynamoDB rejects items over 400 KB; larger documents go to S3.
const MaxInlineDocumentBytes = 350 * 1024

// ErrDocumentTooLarge is returned when a document exceeds
// MaxInlineDocumentBytes and no S3 bucket is configured.
var ErrDocumentTooLarge = errors.New("session document exceeds the DynamoDB item limit and no S3 bucket is configured")

// Shared zstd codecs; EncodeAll and DecodeAll are safe for concurrent use.
var (
	docEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	docDecoder, _ = zstd.NewReader(nil)
)

// BlobAPI is the subset of *s3.Client used for oversized documents.
type BlobAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore keeps the session document in a DynamoDB table keyed by
// PK (STUDIO#<owner>) and SK (SESSION).
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	owner     string

	blobs  BlobAPI
	bucket string
}

// Compile-time interface check.
var _ SessionStore = (*DynamoStore)(nil)

// dynamoRecord is the item shape. The document is stored as a JSON string
// so the result union keeps its tagged encoding. When it is too large for
// an item, DocumentKey names the zstd-compressed copy in S3 instead.
type dynamoRecord struct {
	Document    string `dynamodbav:"document,omitempty"`
	DocumentKey string `dynamodbav:"documentKey,omitempty"`
	UpdatedAt   int64  `dynamodbav:"updatedAt"`
}

// NewDynamoStore creates a DynamoStore for table. owner separates the
// records of different users sharing one table.
func NewDynamoStore(client DynamoAPI, tableName, owner string) *DynamoStore {
	if owner == "" {
		owner = "default"
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		owner:     owner,
	}
}

// WithBlobs stores documents larger than MaxInlineDocumentBytes in bucket.
func (s *DynamoStore) WithBlobs(client BlobAPI, bucket string) *DynamoStore {
	s.blobs = client
	s.bucket = bucket
	return s
}

func (s *DynamoStore) blobKey() string {
	return "sessions/" + s.owner + "/" + RecordKey + ".json.zst"
}

func (s *DynamoStore) pk() string {
	return pkPrefix + s.owner
}

// putItem marshals a domain object and writes it with PK and SK.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data interface{}) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem reads a single item and unmarshals it into out.
// Returns false if the item does not exist (out is not modified).
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

// Put replaces the record. Documents over MaxInlineDocumentBytes are
// written to S3 first and the item keeps only the object key.
func (s *DynamoStore) Put(ctx context.Context, session *studio.Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	rec := dynamoRecord{UpdatedAt: time.Now().Unix()}
	if len(doc) <= MaxInlineDocumentBytes {
		rec.Document = string(doc)
	} else {
		key, err := s.putBlob(ctx, doc)
		if err != nil {
			return err
		}
		rec.DocumentKey = key
	}
	if err := s.putItem(ctx, s.pk(), skMeta, rec); err != nil {
		return err
	}
	log.Debug().
		Str("table", s.tableName).
		Int("bytes", len(doc)).
		Bool("offloaded", rec.DocumentKey != "").
		Msg("Session written to DynamoDB")
	return nil
}

func (s *DynamoStore) Get(ctx context.Context) (*studio.Session, error) {
	var rec dynamoRecord
	found, err := s.getItem(ctx, s.pk(), skMeta, &rec)
	if err != nil || !found {
		return nil, err
	}
	doc := []byte(rec.Document)
	if rec.DocumentKey != "" {
		if doc, err = s.getBlob(ctx, rec.DocumentKey); err != nil {
			return nil, err
		}
	}
	var session studio.Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, fmt.Errorf("decode session (updatedAt=%s): %w", strconv.FormatInt(rec.UpdatedAt, 10), err)
	}
	return &session, nil
}

func (s *DynamoStore) putBlob(ctx context.Context, doc []byte) (string, error) {
	if s.blobs == nil || s.bucket == "" {
		return "", fmt.Errorf("%w (%d bytes)", ErrDocumentTooLarge, len(doc))
	}
	key := s.blobKey()
	compressed := docEncoder.EncodeAll(doc, nil)
	_, err := s.blobs.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(compressed),
		ContentType: aws.String("application/zstd"),
	})
	if err != nil {
		return "", fmt.Errorf("upload session to s3://%s/%s: %w", s.bucket, key, err)
	}
	log.Debug().Str("key", key).Int("bytes", len(doc)).Int("compressed", len(compressed)).Msg("Session document offloaded to S3")
	return key, nil
}

func (s *DynamoStore) getBlob(ctx context.Context, key string) ([]byte, error) {
	if s.blobs == nil || s.bucket == "" {
		return nil, fmt.Errorf("session stored in S3 at %s but no bucket is configured", key)
	}
	out, err := s.blobs.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download session from s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()
	compressed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read session from s3://%s/%s: %w", s.bucket, key, err)
	}
	doc, err := docDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress session: %w", err)
	}
	return doc, nil
}
