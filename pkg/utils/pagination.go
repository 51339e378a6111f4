package utils

// CalculateTotalPages returns 0 for an empty result or a non-positive page size.
func CalculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// CalculateOffset treats any page below 1 as the first page.
func CalculateOffset(page, perPage int) int {
	if page < 1 || perPage <= 0 {
		return 0
	}
	return (page - 1) * perPage
}
