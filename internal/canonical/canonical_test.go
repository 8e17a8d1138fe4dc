package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
	"github.com/starford/blockpress/internal/testutil"
)

const collectionID = "c0c0c0c0-0000-4000-8000-000000000002"

func TestResolve_Title(t *testing.T) {
	page := testutil.PageBlock(testutil.ID(1), "Hello, World!")
	rm := testutil.Record(page)
	r := NewResolver(nil)

	assert.Equal(t, "hello-world", r.Resolve(page.ID, rm, Options{}))
	assert.Equal(t, "hello-world-"+pageid.Compact(page.ID), r.Resolve(page.ID, rm, Options{EmbedRawID: true}))
}

func TestResolve_EmbedRawIDDistinguishesTwins(t *testing.T) {
	a := testutil.PageBlock(testutil.ID(1), "Same")
	b := testutil.PageBlock(testutil.ID(2), "Same")
	rm := testutil.Record(a, b)
	r := NewResolver(nil)

	assert.Equal(t, r.Resolve(a.ID, rm, Options{}), r.Resolve(b.ID, rm, Options{}))
	assert.NotEqual(t, r.Resolve(a.ID, rm, Options{EmbedRawID: true}), r.Resolve(b.ID, rm, Options{EmbedRawID: true}))
}

func TestResolve_SlugProperty(t *testing.T) {
	post := testutil.PageBlock(testutil.ID(3), "A long title",
		testutil.Parent(collectionID, "collection"),
		testutil.Prop("s", testutil.Text("Short Name")))
	rm := testutil.WithCollection(testutil.Record(post), testutil.Collection(collectionID, "Posts", map[string]models.SchemaProperty{
		"s": {Name: "Slug", Type: "text"},
	}))

	assert.Equal(t, "short-name", NewResolver(nil).Resolve(post.ID, rm, Options{}))
}

func TestResolve_Override(t *testing.T) {
	page := testutil.PageBlock(testutil.ID(4), "About me")
	rm := testutil.Record(page)
	r := NewResolver(map[string]string{"/about/": pageid.Compact(page.ID)})

	assert.Equal(t, "about", r.Resolve(page.ID, rm, Options{}))
	assert.Equal(t, "about", r.Resolve(page.ID, rm, Options{EmbedRawID: true}))
}

func TestResolve_FallsBackToCompactID(t *testing.T) {
	untitled := testutil.PageBlock(testutil.ID(5), "")
	rm := testutil.Record(untitled)
	r := NewResolver(nil)

	assert.Equal(t, pageid.Compact(untitled.ID), r.Resolve(untitled.ID, rm, Options{}))
	assert.Equal(t, pageid.Compact(untitled.ID), r.Resolve(untitled.ID, rm, Options{EmbedRawID: true}))
	assert.Equal(t, pageid.Compact(testutil.ID(6)), r.Resolve(testutil.ID(6), rm, Options{}), "page not in record map")
}

func TestResolve_Deterministic(t *testing.T) {
	page := testutil.PageBlock(testutil.ID(7), "Crème brûlée recipes")
	rm := testutil.Record(page)
	r := NewResolver(nil)
	first := r.Resolve(page.ID, rm, Options{})
	for range 5 {
		assert.Equal(t, first, r.Resolve(page.ID, rm, Options{}))
	}
	assert.Equal(t, "creme-brulee-recipes", first)
}
