package server

import "github.com/gin-gonic/gin"

type pageQuery struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

// parsePagination reads page and per_page. Missing, malformed or
// non-positive values fall back to page 1 and defaultPerPage.
func parsePagination(c *gin.Context, defaultPerPage, maxPerPage int) (int, int) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		q = pageQuery{}
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if maxPerPage > 0 && q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	return q.Page, q.PerPage
}

// pageBounds returns the slice bounds of a page over total items.
func pageBounds(total, page, perPage int) (int, int) {
	start := min((page-1)*perPage, total)
	return start, min(start+perPage, total)
}
