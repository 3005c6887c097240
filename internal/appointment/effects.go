package appointment

import "github.com/rs/zerolog"

// EffectStep is one named best-effort side effect and its outcome.
type EffectStep struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// EffectReport collects the outcomes of the best-effort steps that follow
// a committed primary write. A failed step never unwinds the primary
// change; callers inspect the report to see what did not land.
type EffectReport struct {
	Steps []EffectStep
	log   zerolog.Logger
}

func newEffectReport(log zerolog.Logger) *EffectReport {
	return &EffectReport{log: log}
}

// Run executes one named step, recording and logging any failure.
func (r *EffectReport) Run(name string, fn func() error) {
	err := fn()
	r.Steps = append(r.Steps, EffectStep{Name: name, Err: err})
	if err != nil {
		r.log.Warn().Err(err).Str("step", name).Msg("best-effort step failed")
	}
}

// Failed returns the names of the steps that errored.
func (r *EffectReport) Failed() []string {
	var failed []string
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s.Name)
		}
	}
	return failed
}
