package export

import (
	"context"
	"errors"
	"io"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minio/minio-go/v7"
)

// ExecCall records one Exec on MockPgPool
type ExecCall struct {
	SQL  string
	Args []any
}

// MockPgPool implements PgPool for testing
type MockPgPool struct {
	Calls []ExecCall
	Err   error
}

func (m *MockPgPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.Calls = append(m.Calls, ExecCall{SQL: sql, Args: args})
	if m.Err != nil {
		return pgconn.CommandTag{}, m.Err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

// MockClickHouseConn implements driver.Conn for testing
type MockClickHouseConn struct {
	driver.Conn
	Queries   []string
	Execs     []string
	Batches   []*MockBatch
	AppendErr error
}

func (m *MockClickHouseConn) Exec(ctx context.Context, query string, args ...any) error {
	m.Execs = append(m.Execs, query)
	return nil
}

func (m *MockClickHouseConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	m.Queries = append(m.Queries, query)
	b := &MockBatch{appendErr: m.AppendErr}
	m.Batches = append(m.Batches, b)
	return b, nil
}

// MockBatch implements driver.Batch, keeping appended rows
type MockBatch struct {
	driver.Batch
	Appended  [][]any
	Sent      bool
	Aborted   bool
	appendErr error
}

func (m *MockBatch) Append(v ...any) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.Appended = append(m.Appended, append([]any(nil), v...))
	return nil
}

func (m *MockBatch) Send() error {
	m.Sent = true
	return nil
}

func (m *MockBatch) Abort() error {
	m.Aborted = true
	return nil
}

// MockObjectStore implements ObjectStore in memory
type MockObjectStore struct {
	Buckets      map[string]bool
	Objects      map[string][]byte
	ContentTypes map[string]string
	Made         []string
}

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{
		Buckets:      make(map[string]bool),
		Objects:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
	}
}

func (m *MockObjectStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.Buckets[bucket], nil
}

func (m *MockObjectStore) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	m.Buckets[bucket] = true
	m.Made = append(m.Made, bucket)
	return nil
}

func (m *MockObjectStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if !m.Buckets[bucket] {
		return minio.UploadInfo{}, errors.New("NoSuchBucket")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.Objects[bucket+"/"+key] = data
	m.ContentTypes[bucket+"/"+key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}
