package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul4469/socialear/internal/models"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>"ai" - Google News</title>
    <item>
      <title>AI startup raises record round - Example Times</title>
      <link>https://example.com/a</link>
      <pubDate>Fri, 14 Jun 2024 08:00:00 GMT</pubDate>
      <description>&lt;a href="https://example.com/a"&gt;AI startup&lt;/a&gt;&amp;nbsp;&amp;nbsp;&lt;font&gt;Example Times&lt;/font&gt;</description>
    </item>
    <item>
      <title>Old story - Archive</title>
      <link>https://example.com/old</link>
      <pubDate>Mon, 01 Jan 2024 08:00:00 GMT</pubDate>
      <description>old</description>
    </item>
    <item>
      <title>Chip shortage eases</title>
      <link>https://example.com/b</link>
      <pubDate>Wed, 12 Jun 2024 08:00:00 GMT</pubDate>
      <description>Supply improves</description>
    </item>
  </channel>
</rss>`

func TestRSSService_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		assert.Equal(t, "ai after:2024-06-10 before:2024-06-16", q)
		assert.Equal(t, "en-US", r.URL.Query().Get("hl"))

		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeed)
	}))
	defer srv.Close()

	svc := NewRSSService(RSSConfig{SearchURL: srv.URL})

	articles, err := svc.Search(context.Background(), "ai", testRange(t))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "AI startup raises record round", articles[0].Title)
	assert.Equal(t, "Example Times", articles[0].Source)
	assert.NotContains(t, articles[0].Description, "<")
	assert.Contains(t, articles[0].Description, "AI startup")

	assert.Equal(t, "Chip shortage eases", articles[1].Title)
	assert.Equal(t, `"ai" - Google News`, articles[1].Source)
}

func TestRSSService_Errors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewRSSService(RSSConfig{SearchURL: srv.URL}).Search(context.Background(), "ai", testRange(t))
		assert.ErrorIs(t, err, models.ErrUpstream)
	})

	t.Run("nothing in range", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, strings.Replace(testFeed, "Jun 2024", "Mar 2024", -1))
		}))
		defer srv.Close()

		_, err := NewRSSService(RSSConfig{SearchURL: srv.URL}).Search(context.Background(), "ai", testRange(t))
		assert.ErrorIs(t, err, models.ErrNoArticlesFound)
	})

	t.Run("query too short", func(t *testing.T) {
		_, err := NewRSSService(RSSConfig{SearchURL: "http://127.0.0.1:1"}).Search(context.Background(), "x", testRange(t))
		assert.ErrorIs(t, err, models.ErrQueryTooShort)
	})
}

func TestSplitSource(t *testing.T) {
	title, source := splitSource("Markets rally - Reuters")
	assert.Equal(t, "Markets rally", title)
	assert.Equal(t, "Reuters", source)

	title, source = splitSource("No publisher here")
	assert.Equal(t, "No publisher here", title)
	assert.Empty(t, source)

	title, source = splitSource("Q&A - part two - The Verge")
	assert.Equal(t, "Q&A - part two", title)
	assert.Equal(t, "The Verge", source)
}
