package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Daily Wire Service</title>
  <item>
    <title>Parliament passes budget</title>
    <link>https://news.example/budget</link>
    <guid>budget-2025</guid>
    <pubDate>Mon, 15 Sep 2025 10:00:00 GMT</pubDate>
    <description><![CDATA[<p>The budget passed <em>late</em> on Monday.</p>]]></description>
  </item>
  <item>
    <title>Heatwave eases</title>
    <link>https://news.example/heat</link>
    <description>Temperatures dropped overnight.</description>
  </item>
  <item>
    <title></title>
    <guid>no-title</guid>
    <description>Dropped.</description>
  </item>
</channel>
</rss>`

func TestFeedParserDocuments(t *testing.T) {
	now := time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC)
	p := NewFeedParser()
	p.now = func() time.Time { return now }

	docs, err := p.ParseString(rssFixture, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	first := docs[0]
	assert.Equal(t, "budget-2025", first.ID)
	assert.Equal(t, "Parliament passes budget", first.Title)
	assert.Equal(t, "The budget passed _late_ on Monday.", first.Content)
	assert.Equal(t, "https://news.example/budget", first.Metadata["url"])
	assert.Equal(t, "Daily Wire Service", first.Metadata["source"])
	assert.True(t, first.Timestamp.Equal(time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)))

	second := docs[1]
	assert.Equal(t, "https://news.example/heat", second.ID)
	assert.Equal(t, now, second.Timestamp)
}

func TestFeedParserLimit(t *testing.T) {
	docs, err := NewFeedParser().ParseString(rssFixture, 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
	for _, name := range []string{"a/one.md", "a/b/two.md", "a/b/three.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := ExpandGlobs(filepath.Join(dir, "**", "*.md"), filepath.Join(dir, "a", "*.md"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "b", "two.md"),
		filepath.Join(dir, "a", "one.md"),
	}, files)
}
