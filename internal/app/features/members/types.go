package members

import (
	"github.com/dalemusser/shgledger/internal/app/system/htmlsanitize"
	"github.com/dalemusser/shgledger/internal/domain/models"
)

type loanDetailsRequest struct {
	Amount            float64 `json:"amount" validate:"gte=0"`
	TimePeriod        int     `json:"time_period" validate:"gte=0,lte=600"`
	InstallmentAmount float64 `json:"installment_amount" validate:"gte=0"`
	OverdueInterest   float64 `json:"overdue_interest" validate:"gte=0"`
}

func (l loanDetailsRequest) model() models.LoanDetails {
	return models.LoanDetails(l)
}

type createRequest struct {
	Name                string             `json:"name" validate:"required,max=200"`
	Phone               string             `json:"phone" validate:"omitempty,numeric,min=10,max=13"`
	Address             string             `json:"address" validate:"max=500"`
	OpeningSaving       float64            `json:"opening_saving" validate:"gte=0"`
	SavingQuotaSnapshot *float64           `json:"saving_quota_snapshot" validate:"omitempty,gte=0"`
	LoanDetails         loanDetailsRequest `json:"loan_details"`
	OverdueInterest     float64            `json:"overdue_interest" validate:"gte=0"`
	FDAmount            float64            `json:"fd_amount" validate:"gte=0"`
}

func (c createRequest) member() models.Member {
	return models.Member{
		Name:                htmlsanitize.PlainText(c.Name),
		Phone:               c.Phone,
		Address:             htmlsanitize.PlainText(c.Address),
		OpeningSaving:       c.OpeningSaving,
		SavingQuotaSnapshot: c.SavingQuotaSnapshot,
		LoanDetails:         c.LoanDetails.model(),
		OverdueInterest:     c.OverdueInterest,
		FDAmount:            c.FDAmount,
	}
}

type updateRequest struct {
	Name                *string             `json:"name" validate:"omitempty,min=1,max=200"`
	Phone               *string             `json:"phone" validate:"omitempty,numeric,min=10,max=13"`
	Address             *string             `json:"address" validate:"omitempty,max=500"`
	OpeningSaving       *float64            `json:"opening_saving" validate:"omitempty,gte=0"`
	SavingQuotaSnapshot *float64            `json:"saving_quota_snapshot" validate:"omitempty,gte=0"`
	LoanDetails         *loanDetailsRequest `json:"loan_details"`
	OverdueInterest     *float64            `json:"overdue_interest" validate:"omitempty,gte=0"`
	Status              *string             `json:"status" validate:"omitempty,oneof=active inactive"`
}
