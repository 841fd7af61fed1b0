package domain

import "time"

// Stage is a state of the query pipeline. A request moves strictly
// forward through the stages; Failed is terminal and reachable from any
// non-terminal state.
type Stage string

// Pipeline stages in execution order.
const (
	StageReceived        Stage = "received"
	StageMemoryAssembled Stage = "memory_assembled"
	StageRetrieved       Stage = "retrieved"
	StageReranked        Stage = "reranked"
	StageGenerated       Stage = "generated"
	StageCited           Stage = "cited"
	StagePersisted       Stage = "persisted"
	StageFailed          Stage = "failed"
)

// stageOrder fixes the legal forward sequence.
var stageOrder = []Stage{
	StageReceived,
	StageMemoryAssembled,
	StageRetrieved,
	StageReranked,
	StageGenerated,
	StageCited,
	StagePersisted,
}

// IsValid returns true if the stage is recognised.
func (s Stage) IsValid() bool {
	if s == StageFailed {
		return true
	}
	for _, st := range stageOrder {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal returns true for states with no outgoing transitions.
func (s Stage) Terminal() bool {
	return s == StagePersisted || s == StageFailed
}

// Next returns the stage that follows s in the pipeline.
// Terminal stages return themselves.
func (s Stage) Next() Stage {
	for i, st := range stageOrder {
		if st == s && i+1 < len(stageOrder) {
			return stageOrder[i+1]
		}
	}
	return s
}

// CanTransition reports whether moving from s to to is legal: one step
// forward, or to Failed from any non-terminal state.
func (s Stage) CanTransition(to Stage) bool {
	if s.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	return s.Next() == to
}

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// StageSpan records one stage transition for the observability sink.
// Spans are advisory and never affect pipeline behaviour.
type StageSpan struct {
	// Stage is the stage that completed.
	Stage Stage

	// Duration is how long the stage ran.
	Duration time.Duration

	// Err is the stage failure, nil on success.
	Err error

	// Degraded is set when the stage completed on a fallback path.
	Degraded bool
}
