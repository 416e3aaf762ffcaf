// Package inputval validates decoded request bodies with struct tags.
//
// Besides the stock go-playground tags it registers:
//   - objectid: a 24-char hex Mongo ObjectID
//   - hhmm: a 24-hour "HH:MM" meeting time
//   - ledgerdate: a date string dateparse accepts in the ledger's zone (see SetLocation)
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/dateparse"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	once sync.Once
	v    *validator.Validate
	loc  atomic.Pointer[time.Location]
)

// SetLocation sets the zone ledgerdate parses in. It should match the zone
// the recovery engine parses dates in. nil restores UTC.
func SetLocation(l *time.Location) {
	loc.Store(l)
}

// Location returns the zone ledgerdate parses in.
func Location() *time.Location {
	if l := loc.Load(); l != nil {
		return l
	}
	return time.UTC
}

func get() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON names, not Go field names.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("15:04", fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("ledgerdate", func(fl validator.FieldLevel) bool {
			_, err := dateparse.Parse(fl.Field().String(), Location())
			return err == nil
		})
	})
	return v
}

// FieldErrors maps a JSON field name to the rule it failed.
type FieldErrors map[string]string

// Validate checks s against its `validate` tags. Failures come back as an
// apperr invalid error wrapping FieldErrors.
func Validate(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	fe := make(FieldErrors, len(ves))
	for _, ve := range ves {
		fe[ve.Field()] = ve.Tag()
	}
	return apperr.Wrap(apperr.KindInvalid, fe.Message(), fe)
}

func (fe FieldErrors) Error() string { return fe.Message() }

// Message renders the failures in field order, e.g. "code: required; phone: numeric".
func (fe FieldErrors) Message() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Fields extracts FieldErrors from an error returned by Validate.
func Fields(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
