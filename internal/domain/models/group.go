// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a self-help group that meets once or twice a month to collect
// savings and loan recoveries from its members.
//
// NOTE:
//   - Members are not embedded on Group; they live in the members
//     collection and reference the group by group_id.
//   - Code is assigned at registration and never changes afterwards.
//   - MeetingDay1/MeetingDay2 are days of the month (1-31). A nil day is
//     "not configured"; a group with neither configured may meet any day.
type Group struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Name    string             `bson:"name" json:"name"`
	NameCI  string             `bson:"name_ci" json:"-"`
	Code    string             `bson:"code" json:"code"`
	Village string             `bson:"village,omitempty" json:"village,omitempty"`
	Address string             `bson:"address,omitempty" json:"address,omitempty"`

	MeetingDay1  *int   `bson:"meeting_date_1_day,omitempty" json:"meeting_date_1_day,omitempty"`
	MeetingDay2  *int   `bson:"meeting_date_2_day,omitempty" json:"meeting_date_2_day,omitempty"`
	MeetingTime1 string `bson:"meeting_time_1,omitempty" json:"meeting_time_1,omitempty"` // "HH:MM"
	MeetingTime2 string `bson:"meeting_time_2,omitempty" json:"meeting_time_2,omitempty"`

	SavingPerMember  float64 `bson:"saving_per_member" json:"saving_per_member"`
	LoanInterestRate float64 `bson:"loan_interest_rate" json:"loan_interest_rate"`
	FDInterestRate   float64 `bson:"fd_interest_rate" json:"fd_interest_rate"`

	BankIDs []primitive.ObjectID `bson:"bank_ids,omitempty" json:"bank_ids,omitempty"`

	Status string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
