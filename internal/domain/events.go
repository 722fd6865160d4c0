package domain

import "time"

const EventTypeOrderPlaced = "order.placed"

type OrderPlacedEvent struct {
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	Products    []OrderLine `json:"products"`
	TotalAmount float64     `json:"total_amount"`
	Address     string      `json:"address"`
	CreatedAt   time.Time   `json:"created_at"`
}

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Products:    o.Products,
		TotalAmount: o.TotalAmount,
		Address:     o.Address,
		CreatedAt:   o.CreatedAt,
	}
}
