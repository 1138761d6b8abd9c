package queryengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaManagerHasTable(t *testing.T) {
	sm := NewSchemaManager(map[string][]string{"articles": {"id", "title"}})
	assert.True(t, sm.HasTable("articles"))
	assert.False(t, sm.HasTable("ghosts"))
	assert.ElementsMatch(t, []string{"id", "title"}, sm.Columns("articles"))
	assert.Nil(t, sm.Columns("ghosts"))
}

func TestSchemaManagerIsolatesCallerSlices(t *testing.T) {
	cols := []string{"id"}
	sm := NewSchemaManager(map[string][]string{"articles": cols})
	cols[0] = "mutated"
	assert.Equal(t, []string{"id"}, sm.Columns("articles"))
}
