package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fpang/luxstudio/internal/media"
	"github.com/fpang/luxstudio/internal/studio"
)

func sampleSession() *studio.Session {
	return &studio.Session{
		Mode:          studio.ModeGenerate,
		UploadedImage: media.NewDataURI("image/jpeg", []byte("jpeg")),
		Result: studio.ImagesResult{Images: []media.DataURI{
			media.NewDataURI("image/png", []byte("one")),
		}},
		Prompt:      "studio portrait",
		AspectRatio: studio.Ratio9x16,
		ImageSize:   studio.Size2K,
	}
}

// fakeDynamo stores items keyed by PK+SK.
type fakeDynamo struct {
	items  map[string]map[string]types.AttributeValue
	putErr error
}

func itemKey(key map[string]types.AttributeValue) string {
	pk := key["PK"].(*types.AttributeValueMemberS).Value
	sk := key["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	if size := itemSize(in.Item); size > dynamoItemLimit {
		return nil, fmt.Errorf("ValidationException: Item size has exceeded the maximum allowed size (%d bytes)", size)
	}
	if f.items == nil {
		f.items = make(map[string]map[string]types.AttributeValue)
	}
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

const dynamoItemLimit = 400 * 1024

// itemSize approximates DynamoDB's item size: attribute names plus values.
func itemSize(item map[string]types.AttributeValue) int {
	n := 0
	for name, v := range item {
		n += len(name)
		switch v := v.(type) {
		case *types.AttributeValueMemberS:
			n += len(v.Value)
		case *types.AttributeValueMemberN:
			n += len(v.Value)
		case *types.AttributeValueMemberB:
			n += len(v.Value)
		}
	}
	return n
}

// fakeBlobs is an in-memory S3 bucket.
type fakeBlobs struct {
	objects map[string][]byte
}

func (f *fakeBlobs) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBlobs) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

// largeSession is a photoshoot session well above the DynamoDB item limit.
func largeSession() *studio.Session {
	photo := func(seed byte) media.DataURI {
		data := make([]byte, 300*1024)
		for i := range data {
			data[i] = byte(i*31) ^ seed
		}
		return media.NewDataURI("image/png", data)
	}
	return &studio.Session{
		Mode:          studio.ModeGenerate,
		UploadedImage: photo(1),
		Result:        studio.ImagesResult{Images: []media.DataURI{photo(2), photo(3), photo(4)}},
		Prompt:        "three angle photoshoot",
		AspectRatio:   studio.Ratio3x4,
		ImageSize:     studio.Size1K,
	}
}

func backends(t *testing.T) map[string]SessionStore {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", SQLiteFileName))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]SessionStore{
		"sqlite":   sqlite,
		"memory":   NewMemoryStore(),
		"dynamodb": NewDynamoStore(&fakeDynamo{}, "sessions", "tester"),
	}
}

func TestBackends_GetAbsent(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(context.Background())
			if err != nil || got != nil {
				t.Errorf("Get on empty store = %v, %v; want nil, nil", got, err)
			}
		})
	}
}

func TestBackends_PutReplaces(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Put(ctx, &studio.Session{Prompt: "first", Result: studio.TextResult{Text: "old"}}); err != nil {
				t.Fatalf("Put: %v", err)
			}
			want := sampleSession()
			if err := s.Put(ctx, want); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := s.Get(ctx)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Get = %+v, want %+v", got, want)
			}
		})
	}
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), SQLiteFileName)
	ctx := context.Background()

	s1, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Put(ctx, sampleSession()); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, err := s2.Get(ctx)
	if err != nil || got == nil || got.Prompt != "studio portrait" {
		t.Errorf("Get after reopen = %+v, %v", got, err)
	}
}

func TestDynamo_LargeSessionOffloadedToS3(t *testing.T) {
	ctx := context.Background()
	db := &fakeDynamo{}
	blobs := &fakeBlobs{}
	s := NewDynamoStore(db, "sessions", "tester").WithBlobs(blobs, "lux-bucket")

	big := largeSession()
	if err := s.Put(ctx, big); err != nil {
		t.Fatalf("Put large session: %v", err)
	}
	if len(blobs.objects) != 1 {
		t.Fatalf("S3 objects = %d, want 1", len(blobs.objects))
	}
	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, big) {
		t.Error("large session did not round trip")
	}

	// A later small session is stored inline again and wins over the S3 copy.
	if err := s.Put(ctx, sampleSession()); err != nil {
		t.Fatalf("Put small session: %v", err)
	}
	got, err = s.Get(ctx)
	if err != nil || got == nil || got.Prompt != "studio portrait" {
		t.Errorf("Get after shrink = %+v, %v", got, err)
	}
}

func TestDynamo_LargeSessionWithoutBucket(t *testing.T) {
	s := NewDynamoStore(&fakeDynamo{}, "sessions", "tester")
	if err := s.Put(context.Background(), largeSession()); !errors.Is(err, ErrDocumentTooLarge) {
		t.Errorf("Put = %v, want ErrDocumentTooLarge", err)
	}
}

func TestSQLite_UndecodableResultKeepsSession(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), SQLiteFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions (key, document, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		RecordKey, `{"mode":"EDIT","prompt":"keep me","aspectRatio":"3:4","result":{"type":"audio","content":"x"}}`)
	if err != nil {
		t.Fatal(err)
	}

	b := NewBestEffort(s)
	got := b.Get(ctx)
	if got == nil || got.Prompt != "keep me" || got.Mode != studio.ModeEdit || got.Result != nil {
		t.Fatalf("Get = %+v", got)
	}
	if h, err := b.Health(); h != HealthOK {
		t.Errorf("Health = %s, %v", h, err)
	}
}

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, *studio.Session) error   { return f.err }
func (f failingStore) Get(context.Context) (*studio.Session, error) { return nil, f.err }

func TestBestEffort_Degrades(t *testing.T) {
	cause := errors.New("disk full")
	b := NewBestEffort(failingStore{err: cause})

	b.Put(context.Background(), sampleSession())
	if h, err := b.Health(); h != HealthDegraded || !errors.Is(err, cause) {
		t.Errorf("Health after failed Put = %s, %v", h, err)
	}
	if got := b.Get(context.Background()); got != nil {
		t.Errorf("Get = %+v, want nil", got)
	}
}

func TestBestEffort_Recovers(t *testing.T) {
	dyn := &fakeDynamo{putErr: errors.New("throttled")}
	b := NewBestEffort(NewDynamoStore(dyn, "t", ""))

	b.Put(context.Background(), sampleSession())
	if h, _ := b.Health(); h != HealthDegraded {
		t.Fatalf("Health = %s, want degraded", h)
	}
	dyn.putErr = nil
	b.Put(context.Background(), sampleSession())
	if h, err := b.Health(); h != HealthOK || err != nil {
		t.Errorf("Health = %s, %v, want ok", h, err)
	}
}

func TestBestEffort_Unavailable(t *testing.T) {
	b := NewBestEffort(nil)
	b.Put(context.Background(), sampleSession())
	if got := b.Get(context.Background()); got != nil {
		t.Errorf("Get = %+v, want nil", got)
	}
	if h, err := b.Health(); h != HealthUnavailable || !errors.Is(err, ErrUnavailable) {
		t.Errorf("Health = %s, %v", h, err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts Options
		want Health
	}{
		{"default sqlite", Options{DataDir: t.TempDir()}, HealthOK},
		{"memory", Options{Backend: "memory"}, HealthOK},
		{"dynamodb without table", Options{Backend: "dynamodb"}, HealthUnavailable},
		{"unknown", Options{Backend: "redis"}, HealthUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h, _ := Open(ctx, tt.opts).Health(); h != tt.want {
				t.Errorf("Health = %s, want %s", h, tt.want)
			}
		})
	}
}
