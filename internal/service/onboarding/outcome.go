package onboarding

import "fmt"

// Severity separates failures that halt a run from those that are skipped.
type Severity int

// Severities.
const (
	Fatal Severity = iota
	Advisory
)

func (s Severity) String() string {
	if s == Advisory {
		return "advisory"
	}
	return "fatal"
}

// Outcome is the result of one side effect.
type Outcome struct {
	Step     string
	Severity Severity
	Err      error
}

// OK reports whether the side effect succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

func (o Outcome) String() string {
	if o.OK() {
		return o.Step + ": ok"
	}
	return fmt.Sprintf("%s: %s failure: %v", o.Step, o.Severity, o.Err)
}

// Report collects the outcomes of a run.
type Report struct {
	Outcomes []Outcome
}

// Failures returns the failed outcomes of the given severity.
func (r Report) Failures(sev Severity) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() && o.Severity == sev {
			out = append(out, o)
		}
	}
	return out
}

func (r *Report) add(o Outcome) Outcome {
	r.Outcomes = append(r.Outcomes, o)
	return o
}
