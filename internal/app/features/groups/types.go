package groups

import (
	"bytes"
	"encoding/json"

	"github.com/dalemusser/shgledger/internal/domain/models"
)

type createRequest struct {
	Name             string  `json:"name" validate:"required,max=200"`
	Code             string  `json:"code" validate:"required,max=50"`
	Village          string  `json:"village" validate:"max=200"`
	Address          string  `json:"address" validate:"max=500"`
	MeetingDay1      *int    `json:"meeting_date_1_day" validate:"omitempty,min=1,max=31"`
	MeetingDay2      *int    `json:"meeting_date_2_day" validate:"omitempty,min=1,max=31"`
	MeetingTime1     string  `json:"meeting_time_1" validate:"omitempty,hhmm"`
	MeetingTime2     string  `json:"meeting_time_2" validate:"omitempty,hhmm"`
	SavingPerMember  float64 `json:"saving_per_member" validate:"gte=0"`
	LoanInterestRate float64 `json:"loan_interest_rate" validate:"gte=0,lte=100"`
	FDInterestRate   float64 `json:"fd_interest_rate" validate:"gte=0,lte=100"`
}

func (c createRequest) group() models.Group {
	return models.Group{
		Name:             c.Name,
		Code:             c.Code,
		Village:          c.Village,
		Address:          c.Address,
		MeetingDay1:      c.MeetingDay1,
		MeetingDay2:      c.MeetingDay2,
		MeetingTime1:     c.MeetingTime1,
		MeetingTime2:     c.MeetingTime2,
		SavingPerMember:  c.SavingPerMember,
		LoanInterestRate: c.LoanInterestRate,
		FDInterestRate:   c.FDInterestRate,
	}
}

// optionalDay tells an absent meeting day apart from an explicit null,
// which clears it.
type optionalDay struct {
	Set   bool
	Value *int
}

func (o *optionalDay) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o optionalDay) valid() bool {
	return !o.Set || o.Value == nil || (*o.Value >= 1 && *o.Value <= 31)
}

func (o optionalDay) update() **int {
	if !o.Set {
		return nil
	}
	return &o.Value
}

// updateRequest lists the editable fields. Code is decoded only so a
// change can be refused with a clear message.
type updateRequest struct {
	Name             *string     `json:"name" validate:"omitempty,min=1,max=200"`
	Code             *string     `json:"code"`
	Village          *string     `json:"village" validate:"omitempty,max=200"`
	Address          *string     `json:"address" validate:"omitempty,max=500"`
	MeetingDay1      optionalDay `json:"meeting_date_1_day"`
	MeetingDay2      optionalDay `json:"meeting_date_2_day"`
	MeetingTime1     *string     `json:"meeting_time_1" validate:"omitempty,hhmm"`
	MeetingTime2     *string     `json:"meeting_time_2" validate:"omitempty,hhmm"`
	SavingPerMember  *float64    `json:"saving_per_member" validate:"omitempty,gte=0"`
	LoanInterestRate *float64    `json:"loan_interest_rate" validate:"omitempty,gte=0,lte=100"`
	FDInterestRate   *float64    `json:"fd_interest_rate" validate:"omitempty,gte=0,lte=100"`
}
