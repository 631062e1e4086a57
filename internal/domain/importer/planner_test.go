package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanChunks_SplitsProductsByPage(t *testing.T) {
	chunks := PlanChunks("job-1", 237, 0, 0, 50)

	// ceil(237/50) pages.
	assert.Len(t, chunks, 5)
	for i, c := range chunks {
		assert.Equal(t, KindProducts, c.Kind)
		assert.Equal(t, i+1, c.Page)
		assert.Equal(t, 50, c.PageSize)
		assert.Equal(t, ChunkPending, c.Status)
	}
}

func TestPlanChunks_CategoriesSingleChunkFirst(t *testing.T) {
	chunks := PlanChunks("job-1", 60, 12, 0, 50)

	assert.Len(t, chunks, 3)
	assert.Equal(t, KindCategories, chunks[0].Kind)
	assert.Equal(t, KindProducts, chunks[1].Kind)
}

func TestPlanChunks_ExactMultiple(t *testing.T) {
	chunks := PlanChunks("job-1", 100, 0, 0, 50)
	assert.Len(t, chunks, 2)
}

func TestPlanChunks_Empty(t *testing.T) {
	assert.Empty(t, PlanChunks("job-1", 0, 0, 0, 50))
}

func TestPlanChunks_PostsPaged(t *testing.T) {
	chunks := PlanChunks("job-1", 0, 0, 51, 50)
	assert.Len(t, chunks, 2)
	assert.Equal(t, KindPosts, chunks[0].Kind)
}
