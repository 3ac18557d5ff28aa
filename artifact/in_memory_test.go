package artifact

import (
	"context"
	"testing"

	"github.com/agentloop/agentloop/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.ArtifactService = (*InMemoryService)(nil)

func TestInMemoryService_SaveAndLoad(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	v1, err := svc.Save(ctx, "app", "user", "sess", "report.txt", core.Artifact{Data: []byte("one"), MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, 1, v1)

	v2, err := svc.Save(ctx, "app", "user", "sess", "report.txt", core.Artifact{Data: []byte("two"), MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, 2, v2)

	latest, err := svc.Load(ctx, "app", "user", "sess", "report.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), latest.Data)

	first, err := svc.Load(ctx, "app", "user", "sess", "report.txt", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), first.Data)

	_, err = svc.Load(ctx, "app", "user", "sess", "report.txt", 3)
	assert.ErrorIs(t, err, core.ErrArtifactNotFound)

	_, err = svc.Load(ctx, "app", "user", "sess", "missing.txt", 0)
	assert.ErrorIs(t, err, core.ErrArtifactNotFound)
}

func TestInMemoryService_DataIsolation(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	data := []byte("original")
	_, err := svc.Save(ctx, "app", "user", "sess", "f.bin", core.Artifact{Data: data})
	require.NoError(t, err)
	data[0] = 'X'

	loaded, err := svc.Load(ctx, "app", "user", "sess", "f.bin", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), loaded.Data)

	loaded.Data[0] = 'Y'
	again, err := svc.Load(ctx, "app", "user", "sess", "f.bin", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again.Data)
}

func TestInMemoryService_UserScope(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	_, err := svc.Save(ctx, "app", "user", "sess-1", "user:prefs.json", core.Artifact{Data: []byte("{}")})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "app", "user", "sess-1", "local.txt", core.Artifact{Data: []byte("x")})
	require.NoError(t, err)

	// The user-scoped file is visible from another session of the same user.
	fromOther, err := svc.Load(ctx, "app", "user", "sess-2", "user:prefs.json", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), fromOther.Data)

	_, err = svc.Load(ctx, "app", "user", "sess-2", "local.txt", 0)
	assert.ErrorIs(t, err, core.ErrArtifactNotFound)

	names, err := svc.List(ctx, "app", "user", "sess-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:prefs.json"}, names)

	names, err = svc.List(ctx, "app", "user", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"local.txt", "user:prefs.json"}, names)
}

func TestInMemoryService_Versions(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Save(ctx, "app", "user", "sess", "f.txt", core.Artifact{Data: []byte{byte(i)}})
		require.NoError(t, err)
	}

	versions, err := svc.Versions(ctx, "app", "user", "sess", "f.txt")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, versions)

	_, err = svc.Versions(ctx, "app", "user", "sess", "missing.txt")
	assert.ErrorIs(t, err, core.ErrArtifactNotFound)
}

func TestInMemoryService_Delete(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	_, err := svc.Save(ctx, "app", "user", "sess", "f.txt", core.Artifact{Data: []byte("x")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "app", "user", "sess", "f.txt"))
	_, err = svc.Load(ctx, "app", "user", "sess", "f.txt", 0)
	assert.ErrorIs(t, err, core.ErrArtifactNotFound)

	assert.NoError(t, svc.Delete(ctx, "app", "user", "sess", "f.txt"), "deleting an absent file is a no-op")
}

func TestInMemoryService_InvalidFilenames(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	for _, name := range []string{"", "a/b", `a\b`} {
		_, err := svc.Save(ctx, "app", "user", "sess", name, core.Artifact{})
		assert.ErrorIs(t, err, core.ErrInvalidFilename, "filename %q", name)
	}
}
