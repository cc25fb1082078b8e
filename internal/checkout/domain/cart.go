package domain

// Per-line quantity bounds enforced on every cart write.
const (
	MinLineQty = 1
	MaxLineQty = 5
)

type CartLine struct {
	UserID    string
	ProductID string
	Qty       int
}

func ValidQty(qty int) bool {
	return qty >= MinLineQty && qty <= MaxLineQty
}

// CartView is the cart joined against current product data, priced at
// whatever the products cost right now. Reservation snapshots, not the
// view, are what protect the customer from later price changes.
type CartView struct {
	Items      []CartViewItem
	TotalCents int64
}

type CartViewItem struct {
	ProductID  string
	Name       string
	PriceCents int64
	Stock      int
	Qty        int
}
