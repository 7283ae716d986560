package navigator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ngenohkevin/hivedeck-drive/internal/models"
)

func folder(id int64) models.Entry {
	return models.Entry{ID: id, Name: "f", Kind: models.KindFolder}
}

func TestKnownTreeDescendants(t *testing.T) {
	tree := newKnownTree()

	// 1 -> 2 -> 3 -> 4, 1 -> 5
	tree.recordListing(nil, []models.Entry{folder(1)})
	tree.recordListing(models.ID(1), []models.Entry{folder(2), folder(5)})
	tree.recordListing(models.ID(2), []models.Entry{folder(3)})
	tree.recordListing(models.ID(3), []models.Entry{folder(4)})

	assert.True(t, tree.isDescendant(4, 1))
	assert.True(t, tree.isDescendant(4, 2))
	assert.True(t, tree.isDescendant(5, 1))
	assert.False(t, tree.isDescendant(5, 2))
	assert.False(t, tree.isDescendant(1, 4))
	assert.False(t, tree.isDescendant(1, 1))
	assert.False(t, tree.isDescendant(99, 1), "unknown entries are not descendants")
}

func TestKnownTreeListingIsAuthoritative(t *testing.T) {
	tree := newKnownTree()
	tree.recordListing(models.ID(1), []models.Entry{folder(2), folder(3)})

	// 3 moved away; re-listing 1 forgets it
	tree.recordListing(models.ID(1), []models.Entry{folder(2)})
	_, ok := tree.parentOf(3)
	assert.False(t, ok)

	// A child whose payload names another parent is filed under the listed folder
	stray := folder(7)
	stray.ParentID = models.ID(42)
	tree.recordListing(models.ID(2), []models.Entry{stray})
	parent, ok := tree.parentOf(7)
	assert.True(t, ok)
	assert.Equal(t, int64(2), *parent)
}

func TestKnownTreeTrail(t *testing.T) {
	tree := newKnownTree()
	tree.recordTrail([]Crumb{{Name: "root"}, {FolderID: models.ID(10), Name: "a"}, {FolderID: models.ID(11), Name: "b"}})

	assert.True(t, tree.isDescendant(11, 10))
	e, ok := tree.lookup(11)
	assert.True(t, ok)
	assert.Equal(t, "b", e.Name)
	assert.True(t, e.IsFolder())
}

func TestKnownTreeSurvivesLoops(t *testing.T) {
	tree := newKnownTree()
	tree.noteMoved(1, models.ID(2))
	tree.noteMoved(2, models.ID(1))

	assert.True(t, tree.isDescendant(1, 2))
	assert.False(t, tree.isDescendant(1, 3))
}
