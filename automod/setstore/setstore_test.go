package setstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemSetStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	ss := NewMemSetStore()

	ok, err := ss.InSet(ctx, "bad-domains", "evil.example")
	assert.NoError(err)
	assert.False(ok)

	ss.AddToSet("bad-domains", "evil.example", "scam.example")
	ok, err = ss.InSet(ctx, "bad-domains", "evil.example")
	assert.NoError(err)
	assert.True(ok)

	members, err := ss.Members(ctx, "bad-domains")
	assert.NoError(err)
	assert.Equal([]string{"evil.example", "scam.example"}, members)
}

func TestMemSetStoreLoadJSON(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "sets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bad-words": ["alpha", "beta"]}`), 0644))

	ss := NewMemSetStore()
	assert.NoError(ss.LoadFromFileJSON(path))
	ok, err := ss.InSet(ctx, "bad-words", "alpha")
	assert.NoError(err)
	assert.True(ok)
}
