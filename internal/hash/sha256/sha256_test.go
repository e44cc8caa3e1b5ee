package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsStableHex(t *testing.T) {
	t.Parallel()

	h := New()
	digest := h.Hash([]byte("hello"))
	require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", digest)
	require.Equal(t, digest, h.Hash([]byte("hello")))
	require.NotEqual(t, digest, h.Hash([]byte("hello!")))
}

func TestShortHashPrefixes(t *testing.T) {
	t.Parallel()

	h := New()
	data := []byte(`{"shotmap":[]}`)
	require.Len(t, h.ShortHash(data), 12)
	require.Equal(t, h.Hash(data)[:12], h.ShortHash(data))
}
