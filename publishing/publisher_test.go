package publishing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeti47/eight/auth"
	"github.com/yeti47/eight/blob"
	filemanagement "github.com/yeti47/eight/file-management"
	"github.com/yeti47/eight/store"
)

type fakeThumbnails struct {
	dir string
	err error
}

func (f *fakeThumbnails) Generate(ctx context.Context, videoPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	p := filepath.Join(f.dir, "thumbnail_test.jpg")
	return p, os.WriteFile(p, []byte{0xFF, 0xD8, 0xFF}, 0644)
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	fail map[string]error
}

func (f *fakeUploader) Upload(ctx context.Context, filePath, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[filepath.Ext(key)]; err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "https://blobs.test/" + key, nil
}

type fakeDemuxer struct{ d time.Duration }

func (f fakeDemuxer) Duration(ctx context.Context, path string) (time.Duration, error) {
	return f.d, nil
}

func newTestPublisher(t *testing.T, up *fakeUploader) (*Publisher, *store.VideoRepository, string) {
	t.Helper()
	db, err := store.NewInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	docs, err := store.NewSQLiteDocumentStore(db)
	require.NoError(t, err)
	repo := store.NewVideoRepository(docs)

	dir := t.TempDir()
	p := NewPublisher(Options{
		Auth:       auth.NewStaticProvider("u1"),
		Thumbnails: &fakeThumbnails{dir: dir},
		Uploader:   up,
		Demuxer:    fakeDemuxer{d: 7500 * time.Millisecond},
		Videos:     repo,
		Files:      filemanagement.NewLocalFileTracker(dir, nil),
	})
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return p, repo, dir
}

func TestPublisher_PublishOriginal(t *testing.T) {
	up := &fakeUploader{}
	p, repo, dir := newTestPublisher(t, up)

	edited := filepath.Join(dir, "edited.mp4")
	source := filepath.Join(dir, "recording.mp4")
	require.NoError(t, os.WriteFile(edited, []byte("edited"), 0644))
	require.NoError(t, os.WriteFile(source, []byte("source"), 0644))

	video, err := p.Publish(context.Background(), Request{
		VideoID:        "v1",
		VideoPath:      edited,
		EditedText:     "  hello  ",
		TransientFiles: []string{edited, source},
	})
	require.NoError(t, err)

	text := "hello"
	want := store.VideoRecord{
		ID:           "v1",
		UserID:       "u1",
		VideoURL:     "https://blobs.test/videos/u1/v1.mp4",
		ThumbnailURL: "https://blobs.test/thumbnails/u1/v1.jpg",
		Duration:     7.5,
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		EditedText:   &text,
	}
	if diff := cmp.Diff(want, *video); diff != "" {
		t.Errorf("published record mismatch (-want +got):\n%s", diff)
	}

	stored, err := repo.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	if diff := cmp.Diff(want, *stored, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("stored record mismatch (-want +got):\n%s", diff)
	}

	assert.ElementsMatch(t, []string{"videos/u1/v1.mp4", "thumbnails/u1/v1.jpg"}, up.keys)
	for _, f := range []string{edited, source, filepath.Join(dir, "thumbnail_test.jpg")} {
		_, err := os.Stat(f)
		assert.True(t, os.IsNotExist(err), f)
	}
}

func TestPublisher_PublishResponseCountsOnParent(t *testing.T) {
	up := &fakeUploader{}
	p, repo, dir := newTestPublisher(t, up)
	ctx := context.Background()

	edited := filepath.Join(dir, "a.mp4")
	require.NoError(t, os.WriteFile(edited, []byte("x"), 0644))
	_, err := p.Publish(ctx, Request{VideoID: "parent", VideoPath: edited})
	require.NoError(t, err)

	parentID := "parent"
	require.NoError(t, os.WriteFile(edited, []byte("x"), 0644))
	reply, err := p.Publish(ctx, Request{VideoPath: edited, ParentVideoID: &parentID})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.ID)
	assert.True(t, reply.IsResponse())
	assert.Nil(t, reply.EditedText)

	parent, err := repo.GetByID(ctx, "parent")
	require.NoError(t, err)
	assert.Equal(t, 1, parent.ResponseCount)
}

func TestPublisher_UploadFailureKeepsFiles(t *testing.T) {
	upErr := blob.NewRecoverableUploadError(errors.New("connection reset"))
	up := &fakeUploader{fail: map[string]error{".jpg": upErr}}
	p, repo, dir := newTestPublisher(t, up)

	edited := filepath.Join(dir, "edited.mp4")
	require.NoError(t, os.WriteFile(edited, []byte("x"), 0644))

	_, err := p.Publish(context.Background(), Request{VideoID: "v2", VideoPath: edited, TransientFiles: []string{edited}})
	require.Error(t, err)
	assert.True(t, blob.IsRecoverableUploadError(err))

	_, statErr := os.Stat(edited)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dir, "thumbnail_test.jpg"))
	assert.True(t, os.IsNotExist(statErr))

	stored, err := repo.GetByID(context.Background(), "v2")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestPublisher_RequiresUser(t *testing.T) {
	p, _, dir := newTestPublisher(t, &fakeUploader{})
	p.auth = auth.NewStaticProvider("")

	_, err := p.Publish(context.Background(), Request{VideoPath: filepath.Join(dir, "x.mp4")})
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "videos/u/v.mp4", VideoKey("u", "v"))
	assert.Equal(t, "thumbnails/u/v.jpg", ThumbnailKey("u", "v"))
}
