package domain

import "time"

type PlacementMode string

const (
	// PlacementTransaction inserts the order and clears the cart in one MongoDB transaction.
	PlacementTransaction PlacementMode = "transaction"
	// PlacementTwoPhase inserts the order, then clears the cart in a separate write.
	// An interrupted clear is finished by the outbox recovery loop.
	PlacementTwoPhase PlacementMode = "two-phase"
)

func (m PlacementMode) Valid() bool {
	return m == PlacementTransaction || m == PlacementTwoPhase
}

// OrderLine is a snapshot of one product/quantity pair taken at placement time.
type OrderLine struct {
	ProductID int64 `bson:"product_id" json:"productId" validate:"gt=0"`
	Quantity  int   `bson:"quantity" json:"quantity" validate:"gt=0"`
}

type Order struct {
	ID          string      `bson:"_id" json:"id"`
	UserID      string      `bson:"user" json:"user"`
	Products    []OrderLine `bson:"products" json:"products"`
	TotalAmount float64     `bson:"total_amount" json:"total_amount"`
	Address     string      `bson:"address" json:"address"`
	CreatedAt   time.Time   `bson:"created_at" json:"createdAt"`

	// outbox bookkeeping
	CartCleared bool       `bson:"cart_cleared" json:"-"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"-"`
}
