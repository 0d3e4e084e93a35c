package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PageBounds limits offset/limit paging over a bounded in-memory list.
type PageBounds struct {
	DefaultLimit int
	// MaxLimit is also the list capacity: no page can hold more entries.
	MaxLimit int
}

// AuditPageBounds pages the secrets audit ring, whose capacity is capacity.
func AuditPageBounds(capacity int) PageBounds {
	return PageBounds{DefaultLimit: min(50, capacity), MaxLimit: capacity}
}

// ParsePagination reads the offset and limit query parameters.
//
// An offset at or past MaxLimit can never select an entry and is rejected, as
// is a limit outside 1..MaxLimit.
func ParsePagination(c *gin.Context, bounds PageBounds) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 || offset >= bounds.MaxLimit {
		return 0, 0, fmt.Errorf("invalid offset parameter: must be between 0 and %d", bounds.MaxLimit-1)
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(bounds.DefaultLimit)))
	if err != nil || limit < 1 || limit > bounds.MaxLimit {
		return 0, 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", bounds.MaxLimit)
	}

	return offset, limit, nil
}
