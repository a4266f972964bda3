package domain

import "time"

// User is the persisted aggregate: one account plus its embedded product ledger.
// Email doubles as the external username key.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password" json:"-"`
	Products     []Product `bson:"products" json:"products"`
	Version      int64     `bson:"version" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Product is a single ledger line item. It lives inside its owning User
// document and is never stored on its own.
type Product struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"productName" json:"productName"`
	Qty       float64   `bson:"productQty" json:"productQty"`
	Rate      float64   `bson:"productRate" json:"productRate"`
	Total     float64   `bson:"productTotal" json:"productTotal"`
	GST       float64   `bson:"productGST" json:"productGST"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
