package domain

// CartItem is a checkout line. Price is the unit price in whole VND.
type CartItem struct {
	ProductID    string `json:"productId" binding:"required"`
	Name         string `json:"name"`
	Price        int64  `json:"price" binding:"gte=0"`
	Quantity     int    `json:"quantity" binding:"gte=1"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	InStock      bool   `json:"inStock"`
}
