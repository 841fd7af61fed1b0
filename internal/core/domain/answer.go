package domain

// Citation is a verifiable link from a generated answer span to the
// source chunk that supports it. A citation may only reference a chunk
// from the evidence set shown to the generator for that turn.
type Citation struct {
	// ChunkID is the referenced evidence chunk.
	ChunkID string `json:"chunk_id"`

	// DocumentName is the display name of the source document.
	DocumentName string `json:"document_name"`

	// AnswerStart and AnswerEnd are the half-open byte span of the
	// answer text this citation supports.
	AnswerStart int `json:"answer_start"`
	AnswerEnd   int `json:"answer_end"`

	// SourceStart and SourceEnd are the chunk's token span in its
	// document, carried through for display.
	SourceStart int `json:"source_start"`
	SourceEnd   int `json:"source_end"`

	// Score is the evidence relevance score at generation time.
	Score float64 `json:"score"`

	// Snippet is a short excerpt of the cited chunk.
	Snippet string `json:"snippet,omitempty"`
}

// Answer is the result of one pipeline run.
type Answer struct {
	// ConversationID is the conversation the turn was appended to.
	ConversationID string `json:"conversation_id"`

	// Text is the generated answer.
	Text string `json:"text"`

	// Citations link answer spans to evidence chunks.
	Citations []Citation `json:"citations"`

	// Uncited is set when no valid citation survived resolution.
	// The answer is still returned.
	Uncited bool `json:"uncited"`

	// DegradedStages lists stages that fell back to a lower-quality
	// path (e.g. rerank). The request still succeeded.
	DegradedStages []Stage `json:"degraded_stages,omitempty"`

	// RetrievedCount and RerankedCount describe the evidence funnel.
	RetrievedCount int `json:"retrieved_count"`
	RerankedCount  int `json:"reranked_count"`
}

// Degraded reports whether any stage fell back during this run.
func (a *Answer) Degraded() bool {
	return len(a.DegradedStages) > 0
}
