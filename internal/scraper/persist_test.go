package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeImageFetcher struct {
	data map[string][]byte
	err  error
}

func (f *fakeImageFetcher) Bytes(_ context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.data[url]
	if !ok {
		return nil, fmt.Errorf("no image at %s", url)
	}
	return data, nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (s *fakeBlobStore) PutObject(_ context.Context, path, _ string, data io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = body
	return "mem://" + path, nil
}

type fakeRecordStore struct {
	mu        sync.Mutex
	rows      map[string]RecipeRecord
	ensured   int
	ensureErr error
	insertErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{rows: map[string]RecipeRecord{}}
}

func (s *fakeRecordStore) EnsureTable(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured++
	return s.ensureErr
}

func (s *fakeRecordStore) InsertIfAbsent(_ context.Context, rec RecipeRecord) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[rec.RecipeURL]; exists {
		return false, nil
	}
	s.rows[rec.RecipeURL] = rec
	return true, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	payloads []any
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, payload any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return "msg-1", nil
}

func fullRecord() RecipeRecord {
	return RecipeRecord{
		UUID:        "3f8e8f60-9a06-4f6e-9f57-0d9e94a3e6c1",
		SKU:         "APPLE-PIE",
		Name:        "Apple Pie",
		Description: "Classic.",
		Ingredients: []string{"APPLES", "SUGAR"},
		Time:        "1 hour",
		ImageURL:    "https://cdn.example.com/apple-pie.jpg",
		RecipeURL:   "https://food.example.com/recipes/apple_pie_1",
	}
}

func TestPersistWritesImageSnapshotsAndRow(t *testing.T) {
	t.Parallel()

	images := &fakeImageFetcher{data: map[string][]byte{
		"https://cdn.example.com/apple-pie.jpg": []byte("jpegbytes"),
	}}
	staging := newFakeBlobStore()
	cloud := newFakeBlobStore()
	records := newFakeRecordStore()
	pub := &fakePublisher{}

	g := NewGateway(images, staging, cloud, records, pub,
		GatewayConfig{Topic: "recipes.persisted"}, nil)

	rec, inserted, err := g.Persist(context.Background(), fullRecord())
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, "mem://APPLE-PIE_image.jpg", rec.ImageStorageURL)

	require.Contains(t, cloud.objects, "APPLE-PIE_image.jpg")
	require.Contains(t, cloud.objects, "APPLE-PIE_data.json")
	require.Contains(t, staging.objects, "APPLE-PIE/data.json")
	require.Len(t, records.rows, 1)
	require.Len(t, pub.payloads, 1)
}

func TestPersistIsIdempotentPerRecipeURL(t *testing.T) {
	t.Parallel()

	records := newFakeRecordStore()
	g := NewGateway(nil, nil, newFakeBlobStore(), records, nil, GatewayConfig{}, nil)

	_, first, err := g.Persist(context.Background(), fullRecord())
	require.NoError(t, err)
	require.True(t, first)

	_, second, err := g.Persist(context.Background(), fullRecord())
	require.NoError(t, err)
	require.False(t, second)

	require.Len(t, records.rows, 1)
	require.Equal(t, 1, records.ensured)
}

func TestPersistImageFailureIsFailSoft(t *testing.T) {
	t.Parallel()

	images := &fakeImageFetcher{err: errors.New("connection reset")}
	records := newFakeRecordStore()
	g := NewGateway(images, nil, newFakeBlobStore(), records, nil, GatewayConfig{}, nil)

	rec, inserted, err := g.Persist(context.Background(), fullRecord())
	require.NoError(t, err)
	require.True(t, inserted)
	require.Empty(t, rec.ImageStorageURL)
	require.Len(t, records.rows, 1)
}

func TestPersistSkipsKeyedStepsWithoutSKUButStillInserts(t *testing.T) {
	t.Parallel()

	rec := fullRecord()
	rec.Name = ""
	rec.SKU = ""

	cloud := newFakeBlobStore()
	staging := newFakeBlobStore()
	records := newFakeRecordStore()
	g := NewGateway(&fakeImageFetcher{}, staging, cloud, records, nil, GatewayConfig{}, nil)

	out, inserted, err := g.Persist(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Empty(t, out.ImageStorageURL)
	require.Empty(t, cloud.objects)
	require.Empty(t, staging.objects)
	require.Len(t, records.rows, 1)
}

func TestPersistRelationalFailurePropagates(t *testing.T) {
	t.Parallel()

	records := newFakeRecordStore()
	records.insertErr = errors.New("connection refused")
	g := NewGateway(nil, nil, nil, records, nil, GatewayConfig{}, nil)

	_, _, err := g.Persist(context.Background(), fullRecord())
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert record")
}

func TestPersistEnsureTableFailurePropagates(t *testing.T) {
	t.Parallel()

	records := newFakeRecordStore()
	records.ensureErr = errors.New("permission denied")
	g := NewGateway(nil, nil, nil, records, nil, GatewayConfig{}, nil)

	_, _, err := g.Persist(context.Background(), fullRecord())
	require.Error(t, err)
	require.Contains(t, err.Error(), "ensure records table")

	// The failed initialization is not retried; the run is considered dead.
	_, _, err = g.Persist(context.Background(), fullRecord())
	require.Error(t, err)
	require.Equal(t, 1, records.ensured)
}

func TestPersistPublishFailureIsFailSoft(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{err: errors.New("topic gone")}
	records := newFakeRecordStore()
	g := NewGateway(nil, nil, nil, records, pub, GatewayConfig{Topic: "recipes.persisted"}, nil)

	_, inserted, err := g.Persist(context.Background(), fullRecord())
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestPersistPrefixesCloudKeys(t *testing.T) {
	t.Parallel()

	images := &fakeImageFetcher{data: map[string][]byte{
		"https://cdn.example.com/apple-pie.jpg": []byte("jpegbytes"),
	}}
	cloud := newFakeBlobStore()
	g := NewGateway(images, nil, cloud, newFakeRecordStore(), nil,
		GatewayConfig{Prefix: "recipes"}, nil)

	rec, _, err := g.Persist(context.Background(), fullRecord())
	require.NoError(t, err)
	require.Equal(t, "mem://recipes/APPLE-PIE_image.jpg", rec.ImageStorageURL)
	require.Contains(t, cloud.objects, "recipes/APPLE-PIE_data.json")
}
