package repository

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page         int
	PageSize     int
	CategoryID   string
	Search       string
	OnlyActive   bool
	WithCategory bool
}

// ReviewListFilter 查询评价列表的过滤条件
type ReviewListFilter struct {
	Page        int
	PageSize    int
	ProductID   uint
	Status      string
	WithProduct bool
}
