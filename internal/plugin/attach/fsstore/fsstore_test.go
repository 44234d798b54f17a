package fsstore

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	registryattach "github.com/firedesk/records-service/internal/registry/attach"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
)

func TestStoreAndRetrieve(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	stored, err := s.Store(ctx, "plan.PDF", strings.NewReader("blueprint"), 1024)
	require.NoError(t, err)
	require.EqualValues(t, len("blueprint"), stored.Size)
	require.True(t, strings.HasSuffix(stored.Filename, ".pdf"))
	require.NotEqual(t, "plan.PDF", stored.Filename)

	r, err := s.Retrieve(ctx, stored.Filename)
	require.NoError(t, err)
	defer r.Close()
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "blueprint", string(content))

	t.Run("stored names never collide", func(t *testing.T) {
		other, err := s.Store(ctx, "plan.pdf", strings.NewReader("blueprint"), 1024)
		require.NoError(t, err)
		require.NotEqual(t, stored.Filename, other.Filename)
	})
}

func TestStoreSizeCap(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Store(ctx, "big.pdf", strings.NewReader("0123456789"), 9)
	require.ErrorContains(t, err, "exceeds maximum size")

	// At exactly the cap the upload is accepted.
	stored, err := s.Store(ctx, "fits.pdf", strings.NewReader("0123456789"), 10)
	require.NoError(t, err)
	require.EqualValues(t, 10, stored.Size)
}

func TestRetrieveMissing(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	var notFound *registrystore.NotFoundError
	_, err = s.Retrieve(ctx, "1700000000000-abcdef123456.pdf")
	require.ErrorAs(t, err, &notFound)
}

func TestTraversalGuard(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	var notFound *registrystore.NotFoundError
	for _, name := range []string{"../secret.pdf", "a/b.pdf", "..", ""} {
		_, err := s.Retrieve(ctx, name)
		require.ErrorAs(t, err, &notFound, "filename %q", name)
		err = s.Delete(ctx, name)
		require.ErrorAs(t, err, &notFound, "filename %q", name)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	stored, err := s.Store(ctx, "doc.pdf", strings.NewReader("x"), 1024)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, stored.Filename))
	// Deleting a missing file is not an error.
	require.NoError(t, s.Delete(ctx, stored.Filename))

	var notFound *registrystore.NotFoundError
	_, err = s.Retrieve(ctx, stored.Filename)
	require.ErrorAs(t, err, &notFound)
}

func TestSignedURLUnsupported(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = s.SignedURL(context.Background(), "x.pdf", time.Minute)
	require.ErrorIs(t, err, registryattach.ErrSignedURLUnsupported)
}
