package recovery

import (
	"fmt"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
)

var (
	ErrGroupNotFound    = apperr.NotFound("group not found")
	ErrMemberNotFound   = apperr.NotFound("member not found")
	ErrSessionNotFound  = apperr.NotFound("no recovery session exists for this date")
	ErrEntryNotFound    = apperr.NotFound("member has no entry in this recovery session")
	ErrSessionExists    = apperr.Conflict("a recovery session already exists for this date")
	ErrConcurrentUpdate = apperr.Conflict("the recovery session was changed by someone else, please retry")
)

func invalidf(format string, args ...any) error {
	return apperr.Invalid(fmt.Sprintf(format, args...))
}
