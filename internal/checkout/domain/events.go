package domain

type OrderSettled struct {
	OrderID       string
	ReservationID string
	UserID        string
	TotalCents    int64
}

type LowStockAlertRaised struct {
	AlertID   string
	ProductID string
	Stock     int
	Threshold int
}
