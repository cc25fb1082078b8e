package domain

// ProductSummary is the browse-facing slice of a product. Stock is shown
// as-is; it is advisory here just like the soft check at reservation time.
type ProductSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	PriceCents int64  `json:"price"`
	Stock      int    `json:"stock"`
}

type Page struct {
	Items  []ProductSummary `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}
