package util

import (
	"strconv"
)

// ParseID 解析路径中的正整数 id
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ParsePagination 解析 page/limit，非法值回退到默认值
func ParsePagination(pageStr, limitStr string, defaultLimit int) (page, limit int) {
	page, limit = 1, defaultLimit
	if v, err := strconv.Atoi(pageStr); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
		limit = v
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// ParseOptionalID 查询参数中的可选 id，空串返回 0
func ParseOptionalID(s string) (uint, bool) {
	if s == "" {
		return 0, true
	}
	return ParseID(s)
}
