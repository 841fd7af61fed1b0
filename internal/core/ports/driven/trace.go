package driven

import "github.com/custodia-labs/aska-cli/internal/core/domain"

// TraceSink receives one span per pipeline stage transition. It is
// purely advisory: implementations must not block and sink failures
// never affect pipeline behaviour.
type TraceSink interface {
	// RecordSpan reports a completed stage.
	RecordSpan(span domain.StageSpan)
}
