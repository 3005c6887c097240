package appointment

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestEffectReportRecordsSteps(t *testing.T) {
	r := newEffectReport(zerolog.Nop())

	r.Run("first", func() error { return nil })
	r.Run("second", func() error { return errors.New("boom") })
	r.Run("third", func() error { return nil })

	if len(r.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(r.Steps))
	}
	if r.Steps[0].Name != "first" || r.Steps[2].Name != "third" {
		t.Error("steps must keep execution order")
	}

	failed := r.Failed()
	if len(failed) != 1 || failed[0] != "second" {
		t.Errorf("failed = %v, want [second]", failed)
	}
}

func TestEffectReportAllClean(t *testing.T) {
	r := newEffectReport(zerolog.Nop())
	r.Run("only", func() error { return nil })

	if failed := r.Failed(); failed != nil {
		t.Errorf("failed = %v, want nil", failed)
	}
}
