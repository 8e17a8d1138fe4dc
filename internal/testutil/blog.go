package testutil

import (
	"time"

	"github.com/starford/blockpress/internal/models"
)

// Ids of the blog fixture.
const (
	BlogCollectionID = "c0c0c0c0-0000-4000-8000-0000000000d1"
	BlogViewID       = "d0d0d0d0-0000-4000-8000-0000000000d2"
)

// BlogSite is the site configuration of the blog fixture.
func BlogSite() models.SiteConfig {
	return models.SiteConfig{
		Name:        "Field Notes",
		Domain:      "notes.example.com",
		Author:      "Sam Doe",
		Description: "A blog",
		Language:    "en",
		RootPageID:  ID(1),
	}
}

// BlogSnapshot returns a small blog: the root page "Home" with an intro
// paragraph and a gallery of two posts tagged Go and Rust.
func BlogSnapshot() map[string]*models.RecordMap {
	blog := Collection(BlogCollectionID, "Blog", map[string]models.SchemaProperty{
		"tg": {Name: "Tags", Type: "multi_select", Options: []models.SelectOption{{Value: "Go"}, {Value: "Rust"}}},
	})
	gallery := Block(ID(2), models.BlockTypeCollectionView)
	gallery.CollectionID = BlogCollectionID
	gallery.ViewIDs = []string{BlogViewID}

	root := PageBlock(ID(1), "Home", Children(ID(3), ID(2)))
	intro := Block(ID(3), "text", Title("Welcome to the blog."))
	first := PageBlock(ID(10), "First Post",
		Parent(BlogCollectionID, "collection"),
		Prop("tg", Text("Go")),
		Created(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		Children(ID(12)))
	body := Block(ID(12), "text", Title("Hello from Go."))
	second := PageBlock(ID(11), "Second Post",
		Parent(BlogCollectionID, "collection"),
		Prop("tg", Text("Rust")))

	rootRM := Record(root, intro, gallery, first, second)
	WithCollection(rootRM, blog)
	WithView(rootRM, &models.CollectionView{ID: BlogViewID, Type: "gallery"})
	WithQuery(rootRM, BlogCollectionID, BlogViewID, ID(10), ID(11))

	return map[string]*models.RecordMap{
		ID(1):  rootRM,
		ID(10): WithCollection(Record(first, body), blog),
		ID(11): WithCollection(Record(second), blog),
	}
}
