package importer

// PlanChunks lays out the chunk set for discovered counts. Categories fit
// one chunk; products and posts are split into page-sized chunks. Variation
// chunks are not planned here: they are appended as variable products are
// seen during product chunk processing.
func PlanChunks(jobID string, products, categories, posts, pageSize int) []*ImportChunk {
	var chunks []*ImportChunk

	if categories > 0 {
		chunks = append(chunks, &ImportChunk{
			ImportJobID: jobID,
			Kind:        KindCategories,
			Page:        1,
			PageSize:    pageSize,
			Status:      ChunkPending,
		})
	}
	for page := 1; page <= pages(products, pageSize); page++ {
		chunks = append(chunks, &ImportChunk{
			ImportJobID: jobID,
			Kind:        KindProducts,
			Page:        page,
			PageSize:    pageSize,
			Status:      ChunkPending,
		})
	}
	for page := 1; page <= pages(posts, pageSize); page++ {
		chunks = append(chunks, &ImportChunk{
			ImportJobID: jobID,
			Kind:        KindPosts,
			Page:        page,
			PageSize:    pageSize,
			Status:      ChunkPending,
		})
	}
	return chunks
}

// pages is ceil(total/pageSize).
func pages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
