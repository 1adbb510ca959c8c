package repository

import "gorm.io/gorm"

// maxRepoPageSize 仓库层分页上限，卡密等大表查询的最后防线。
const maxRepoPageSize = 500

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxRepoPageSize {
		pageSize = maxRepoPageSize
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}
