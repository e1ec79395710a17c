package tasks

// PageSize is the fixed window width for task list pagination.
const PageSize = 10

// Page returns the zero-based page of items plus whether neighbouring pages
// exist. Out-of-range indices yield an empty window.
func Page(items []Task, index, size int) (window []Task, hasPrev, hasNext bool) {
	if size <= 0 {
		size = PageSize
	}
	if index < 0 {
		index = 0
	}
	start := index * size
	if start >= len(items) {
		return nil, index > 0, false
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], index > 0, end < len(items)
}
