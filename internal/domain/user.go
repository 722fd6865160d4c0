package domain

import "time"

type User struct {
	ID         string     `bson:"_id" json:"id"`
	Name       string     `bson:"name" json:"name"`
	Email      string     `bson:"email" json:"email"`
	Password   string     `bson:"password" json:"-"`
	Img        string     `bson:"img,omitempty" json:"img,omitempty"`
	Cart       []CartLine `bson:"cart" json:"cart"`
	Favourites []int64    `bson:"favourites" json:"favourites"`
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updatedAt"`
}

// CartLine is the persisted form of a cart entry: a product reference and its quantity.
// Quantity is always >= 1 once stored.
type CartLine struct {
	ProductID int64     `bson:"product_id" json:"productId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
}

// Line returns the cart line for productID, or nil when the product is not in the cart.
func (u *User) Line(productID int64) *CartLine {
	for i := range u.Cart {
		if u.Cart[i].ProductID == productID {
			return &u.Cart[i]
		}
	}
	return nil
}

func (u *User) HasFavourite(productID int64) bool {
	for _, id := range u.Favourites {
		if id == productID {
			return true
		}
	}
	return false
}
