// internal/domain/models/bank.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bank is a bank account held by a group.
type Bank struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	GroupID        primitive.ObjectID `bson:"group_id" json:"group_id"`
	BankName       string             `bson:"bank_name" json:"bank_name"`
	Branch         string             `bson:"branch,omitempty" json:"branch,omitempty"`
	AccountNumber  string             `bson:"account_number" json:"account_number"`
	IFSC           string             `bson:"ifsc,omitempty" json:"ifsc,omitempty"`
	AccountHolder  string             `bson:"account_holder,omitempty" json:"account_holder,omitempty"`
	OpeningBalance float64            `bson:"opening_balance" json:"opening_balance"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
