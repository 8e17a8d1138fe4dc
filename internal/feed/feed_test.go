package feed

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
	"github.com/starford/blockpress/internal/testutil"
)

func siteMap(socialBase string) *models.SiteMap {
	pm := models.NewPageMap()
	for i := 1; i <= 3; i++ {
		pm.Add(testutil.ID(i), testutil.Record(testutil.PageBlock(testutil.ID(i), "P")))
	}
	sm := models.NewSiteMap(models.SiteConfig{
		Name:            "My Blog",
		Domain:          "blog.example.com",
		Author:          "Sam Doe",
		Description:     "Notes",
		RootPageID:      pageid.Compact(testutil.ID(1)),
		SocialImageBase: socialBase,
	}, pm)
	created := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	sm.Insert(models.CanonicalPageData{PageID: testutil.ID(1), CanonicalPageID: "home", Title: "Home"})
	sm.Insert(models.CanonicalPageData{PageID: testutil.ID(3), CanonicalPageID: "second", Title: "Second"})
	sm.Insert(models.CanonicalPageData{PageID: testutil.ID(2), CanonicalPageID: "first", Title: "First & Best", CreatedTime: &created})
	return sm
}

type parsed struct {
	Channel struct {
		Title     string `xml:"title"`
		Copyright string `xml:"copyright"`
		WebMaster string `xml:"webMaster"`
		Items     []struct {
			Title     string `xml:"title"`
			Link      string `xml:"link"`
			GUID      string `xml:"guid"`
			PubDate   string `xml:"pubDate"`
			Enclosure *struct {
				URL  string `xml:"url,attr"`
				Type string `xml:"type,attr"`
			} `xml:"enclosure"`
		} `xml:"item"`
	} `xml:"channel"`
}

func TestBuild(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out, err := Build(siteMap("https://img.example.com/social/"), Options{Now: now})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), xml.Header))
	assert.Contains(t, string(out), "<link>https://blog.example.com</link>")
	assert.Contains(t, string(out), `<atom:link href="https://blog.example.com/feed.xml" rel="self" type="application/rss+xml"></atom:link>`)

	var doc parsed
	require.NoError(t, xml.Unmarshal(out, &doc))
	assert.Equal(t, "My Blog", doc.Channel.Title)
	assert.Equal(t, "2025 Sam Doe", doc.Channel.Copyright)
	assert.Equal(t, "Sam Doe", doc.Channel.WebMaster)

	require.Len(t, doc.Channel.Items, 2, "root page is skipped")
	second, first := doc.Channel.Items[0], doc.Channel.Items[1]
	assert.Equal(t, "https://blog.example.com/second", second.Link)
	assert.Empty(t, second.PubDate)
	assert.Equal(t, "First & Best", first.Title)
	assert.Equal(t, testutil.ID(2), first.GUID)
	assert.Equal(t, "Sat, 03 Feb 2024 04:05:06 +0000", first.PubDate)
	require.NotNil(t, first.Enclosure)
	assert.Equal(t, "https://img.example.com/social?id="+pageid.Compact(testutil.ID(2)), first.Enclosure.URL)
	assert.Equal(t, "image/jpeg", first.Enclosure.Type)
}

func TestBuild_NoSocialImages(t *testing.T) {
	out, err := Build(siteMap(""), Options{Describe: func(id string) string { return "about " + pageid.Compact(id) }})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<enclosure")
	assert.Contains(t, string(out), "<description>about "+pageid.Compact(testutil.ID(2))+"</description>")
}
