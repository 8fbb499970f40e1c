// Package strategy implements the three extraction strategies and the
// selector that runs them in fidelity order. Strategies are pure
// transforms over in-memory content: they perform no I/O and resolve
// only the stubs they can, leaving the rest for the next tier.
package strategy

import (
	"time"

	"protocol-extractor/pkg/domain"
	"protocol-extractor/pkg/roster"
)

// Input carries every representation available for one protocol. Fields
// a representation could not be fetched for stay zero; strategies
// declare applicability against what is present.
type Input struct {
	Protocol *domain.Protocol

	// StructuredXML is the validated (or repaired) structured document,
	// nil when unavailable or unrepairable.
	StructuredXML []byte

	// PlainText is text recovered from any textual representation
	// (plain-text variant, HTML mirror, or PDF), empty when none exists.
	PlainText string

	// Roster is the known speaker set for the session.
	Roster *roster.Roster
}

// Strategy is one extraction algorithm. Extract returns speeches only
// for the stubs it resolves; each strategy self-assigns its method and
// computes per-result confidence.
type Strategy interface {
	Name() domain.ExtractionMethod
	Applicable(in *Input, pending []domain.SpeechStub) bool
	Extract(in *Input, pending []domain.SpeechStub) []*domain.ExtractedSpeech
}

// newSpeech fills the fields every strategy sets the same way.
func newSpeech(in *Input, stub domain.SpeechStub, md domain.ExtractionMetadata) *domain.ExtractedSpeech {
	sp := &domain.ExtractedSpeech{
		ID:          stub.ID,
		Speaker:     stub.Speaker,
		Title:       stub.Title,
		PageStart:   stub.PageStart,
		Metadata:    md,
		ExtractedAt: time.Now().UTC(),
	}
	if in.Protocol != nil {
		sp.ProtocolID = in.Protocol.ID
		sp.ProtocolNumber = in.Protocol.Number
		sp.Date = in.Protocol.Date
	}
	return sp
}
