package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	notFound := NotFound("group not found")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error", base, KindInternal},
		{"invalid", Invalid("bad date"), KindInvalid},
		{"wrapped not found", fmt.Errorf("resolve: %w", notFound), KindNotFound},
		{"conflict wrapping cause", Wrap(KindConflict, "busy", base), KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSentinelIdentity(t *testing.T) {
	sentinel := NotFound("member not found")
	err := fmt.Errorf("upsert: %w", sentinel)
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to match the sentinel")
	}
}

func TestWrap_MessageFallsBackToCause(t *testing.T) {
	cause := errors.New("17/03/2024 is not a meeting day")
	err := Wrap(KindInvalid, "", cause)
	if err.Error() != cause.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
}
