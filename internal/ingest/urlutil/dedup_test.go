package urlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeduplicator_URLs(t *testing.T) {
	t.Parallel()
	dedup := NewDeduplicator()

	require.False(t, dedup.SeenURL("http://example.com/page"))
	dedup.MarkURL("http://example.com/page")
	require.True(t, dedup.SeenURL("http://example.com/page"))

	// Canonical variants count as seen.
	require.True(t, dedup.SeenURL("http://example.com/page?utm_source=x"))
	require.True(t, dedup.SeenURL("http://example.com/page/"))

	require.False(t, dedup.SeenURL("http://example.com/other"))
	require.Equal(t, 1, dedup.URLCount())
}

func TestDeduplicator_Content(t *testing.T) {
	t.Parallel()
	dedup := NewDeduplicator()

	require.False(t, dedup.SeenContent([]byte("x")))
	hash := dedup.MarkContent([]byte("x"))
	require.Equal(t, ContentHash([]byte("x")), hash)
	require.True(t, dedup.SeenContent([]byte("x")))
	require.False(t, dedup.SeenContent([]byte("y")))
	require.Equal(t, 1, dedup.ContentCount())
}

func TestDeduplicator_Record(t *testing.T) {
	t.Parallel()
	dedup := NewDeduplicator()

	urlNew, contentNew := dedup.Record("http://example.com/a", []byte("x"))
	require.True(t, urlNew)
	require.True(t, contentNew)

	// Same content under a different URL: URL is new, content is not.
	urlNew, contentNew = dedup.Record("http://example.com/b", []byte("x"))
	require.True(t, urlNew)
	require.False(t, contentNew)

	// Same URL again: neither is new.
	urlNew, contentNew = dedup.Record("http://example.com/a", []byte("x"))
	require.False(t, urlNew)
	require.False(t, contentNew)

	// No content provided leaves the content sets untouched.
	urlNew, contentNew = dedup.Record("http://example.com/c", nil)
	require.True(t, urlNew)
	require.True(t, contentNew)
	require.Equal(t, 1, dedup.ContentCount())
}
