package inputval

import (
	"testing"
	"time"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
)

type sample struct {
	Name    string  `json:"name" validate:"required,max=10"`
	GroupID string  `json:"group_id" validate:"omitempty,objectid"`
	Time    string  `json:"meeting_time" validate:"omitempty,hhmm"`
	Date    string  `json:"date" validate:"omitempty,ledgerdate"`
	Amount  float64 `json:"amount" validate:"gte=0"`
	Day     *int    `json:"day" validate:"omitempty,min=1,max=31"`
}

func TestValidateOK(t *testing.T) {
	day := 20
	err := Validate(sample{
		Name:    "Lakshmi",
		GroupID: "65f0c2a1b3e4d5f6a7b8c9d0",
		Time:    "09:30",
		Date:    "05/03/2024",
		Amount:  10,
		Day:     &day,
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	day := 32
	err := Validate(sample{
		GroupID: "not-an-id",
		Time:    "25:00",
		Date:    "31/02/2024",
		Amount:  -1,
		Day:     &day,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if apperr.KindOf(err) != apperr.KindInvalid {
		t.Errorf("kind = %v, want invalid", apperr.KindOf(err))
	}
	fe, ok := Fields(err)
	if !ok {
		t.Fatalf("Fields(%v) not found", err)
	}
	want := FieldErrors{
		"name":         "required",
		"group_id":     "objectid",
		"meeting_time": "hhmm",
		"date":         "ledgerdate",
		"amount":       "gte",
		"day":          "max",
	}
	for k, tag := range want {
		if fe[k] != tag {
			t.Errorf("field %s = %q, want %q", k, fe[k], tag)
		}
	}
	if len(fe) != len(want) {
		t.Errorf("got %d field errors, want %d: %v", len(fe), len(want), fe)
	}
}

func TestMessageIsSorted(t *testing.T) {
	fe := FieldErrors{"b": "required", "a": "min"}
	if got := fe.Message(); got != "invalid input: a: min; b: required" {
		t.Errorf("Message = %q", got)
	}
}

func TestSetLocation(t *testing.T) {
	t.Cleanup(func() { SetLocation(nil) })
	if Location() != time.UTC {
		t.Fatalf("default location = %v, want UTC", Location())
	}

	ist := time.FixedZone("IST", 5*3600+30*60)
	SetLocation(ist)
	if Location() != ist {
		t.Errorf("Location() = %v, want IST", Location())
	}
	if err := Validate(sample{Name: "Lakshmi", Date: "05/03/2024"}); err != nil {
		t.Errorf("Validate in IST: %v", err)
	}
	if err := Validate(sample{Name: "Lakshmi", Date: "31/02/2024"}); err == nil {
		t.Error("expected impossible date to fail in IST")
	}

	SetLocation(nil)
	if Location() != time.UTC {
		t.Errorf("after reset = %v, want UTC", Location())
	}
}
