package domain

import "fmt"

// ExtractionMethod names the strategy that produced a speech.
type ExtractionMethod string

const (
	MethodStructured ExtractionMethod = "structured"
	MethodPattern    ExtractionMethod = "pattern"
	MethodPage       ExtractionMethod = "page"
	MethodFailed     ExtractionMethod = "failed"
)

// ExtractionStatus describes how much of the speech was recovered.
type ExtractionStatus string

const (
	StatusComplete ExtractionStatus = "complete"
	StatusPartial  ExtractionStatus = "partial"
	StatusEmpty    ExtractionStatus = "empty"
)

// ExtractionMetadata is the quality label attached to every extracted
// speech. Confidence is comparable across strategies by fidelity tier:
// a complete structured extraction always outranks a pattern one.
type ExtractionMetadata struct {
	Method     ExtractionMethod `json:"method" bson:"method"`
	Status     ExtractionStatus `json:"status" bson:"status"`
	Confidence float64          `json:"confidence" bson:"confidence"`
	// Fallback marks best-effort output (page windows) that
	// quality-sensitive consumers should exclude.
	Fallback bool   `json:"fallback,omitempty" bson:"fallback,omitempty"`
	Note     string `json:"note,omitempty" bson:"note,omitempty"`
}

// FailedMetadata is the single valid shape for an unresolvable stub.
func FailedMetadata(note string) ExtractionMetadata {
	return ExtractionMetadata{
		Method:     MethodFailed,
		Status:     StatusEmpty,
		Confidence: 0,
		Note:       note,
	}
}

// Validate enforces the metadata invariant: method=failed, status=empty
// and confidence=0 imply each other, and confidence stays in [0,1].
func (m ExtractionMetadata) Validate() error {
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", m.Confidence)
	}
	failed := m.Method == MethodFailed
	empty := m.Status == StatusEmpty
	zero := m.Confidence == 0
	if failed != empty || failed != zero {
		return fmt.Errorf("inconsistent metadata: method=%s status=%s confidence=%v",
			m.Method, m.Status, m.Confidence)
	}
	switch m.Method {
	case MethodStructured, MethodPattern, MethodPage, MethodFailed:
	default:
		return fmt.Errorf("unknown method %q", m.Method)
	}
	switch m.Status {
	case StatusComplete, StatusPartial, StatusEmpty:
	default:
		return fmt.Errorf("unknown status %q", m.Status)
	}
	return nil
}
