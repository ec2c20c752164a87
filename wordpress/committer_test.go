package wordpress

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
)

type fakeBackend struct {
	updateErr error
	uploadErr error
	updates   []int64
	uploads   []MediaUpload
}

func (f *fakeBackend) UpdatePost(_ context.Context, id int64, _ string, _ int64) error {
	f.updates = append(f.updates, id)
	return f.updateErr
}

func (f *fakeBackend) UploadMedia(_ context.Context, m MediaUpload) (Media, error) {
	f.uploads = append(f.uploads, m)
	if f.uploadErr != nil {
		return Media{}, f.uploadErr
	}
	return Media{ID: 7, SourceURL: "https://blog/uploads/" + m.Filename}, nil
}

func TestCommit(t *testing.T) {
	b := &fakeBackend{}
	c := &Committer{Backend: b}
	assert.True(t, c.Commit(context.Background(), 3, "<p>x</p>", 0))

	b.updateErr = apperr.New(apperr.KindPublish, "test", errors.New("status 500"))
	assert.False(t, c.Commit(context.Background(), 4, "<p>x</p>", 9))
	assert.Equal(t, []int64{3, 4}, b.updates)
}

func TestPublish(t *testing.T) {
	b := &fakeBackend{}
	c := &Committer{Backend: b}
	m, err := c.Publish(context.Background(), MediaUpload{Filename: "a.jpg", Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.ID)

	b.uploadErr = apperr.New(apperr.KindPublish, "test", errors.New("rejected"))
	_, err = c.Publish(context.Background(), MediaUpload{Filename: "b.jpg"})
	assert.True(t, apperr.Is(err, apperr.KindPublish))
}
