package domain

import "time"

// Variant identifies one representation of a protocol document.
type Variant string

const (
	// VariantXML is the structured machine-readable encoding.
	VariantXML Variant = "xml"
	// VariantText is a loosely-structured plain-text rendition.
	VariantText Variant = "text"
	// VariantPDF is the scanned/published PDF rendition.
	VariantPDF Variant = "pdf"
)

// SourceURL is one candidate location for a document variant.
// Candidates are ordered by historical URL-pattern priority; the first
// successful fetch wins.
type SourceURL struct {
	Variant  Variant `json:"variant"`
	URL      string  `json:"url"`
	Priority int     `json:"priority"`
}

// Protocol represents a single parliamentary session document and the
// speeches expected inside it.
type Protocol struct {
	ID        int64              `json:"id" bson:"id"`
	Number    string             `json:"number" bson:"number"` // e.g. "20/123"
	Period    int                `json:"period" bson:"period"`
	Session   int                `json:"session" bson:"session"`
	Title     string             `json:"title,omitempty" bson:"title,omitempty"`
	Date      time.Time          `json:"date" bson:"date"`
	Sources   []SourceURL        `json:"sources,omitempty" bson:"-"`
	PDFURL    string             `json:"pdf_url,omitempty" bson:"pdf_url,omitempty"`
	UpdatedAt time.Time          `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
	FullText  string             `json:"-" bson:"-"`
	Speeches  []*ExtractedSpeech `json:"speeches,omitempty" bson:"-"`

	// rawXML holds the bytes of the structured representation, populated
	// lazily on first extraction need. Repairs produce repairedXML; the
	// original bytes stay untouched for audit.
	rawXML      []byte
	repairedXML []byte
}

// SetRawXML stores the fetched structured representation. It may be set
// at most once; later calls are ignored so the audit copy survives.
func (p *Protocol) SetRawXML(b []byte) {
	if p.rawXML == nil {
		p.rawXML = b
	}
}

// RawXML returns the original fetched bytes, nil if never fetched.
func (p *Protocol) RawXML() []byte { return p.rawXML }

// SetRepairedXML stores a validated repaired copy of the document.
func (p *Protocol) SetRepairedXML(b []byte) { p.repairedXML = b }

// StructuredXML returns the best structured representation available:
// the repaired copy when one exists, otherwise the raw bytes.
func (p *Protocol) StructuredXML() []byte {
	if p.repairedXML != nil {
		return p.repairedXML
	}
	return p.rawXML
}

// SourcesFor returns the candidate URLs for one variant, in priority order.
func (p *Protocol) SourcesFor(v Variant) []SourceURL {
	var out []SourceURL
	for _, s := range p.Sources {
		if s.Variant == v {
			out = append(out, s)
		}
	}
	return out
}

// Outcome is the terminal per-protocol result recorded in the checkpoint.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// ProtocolResult summarizes one finished protocol for downstream consumers.
type ProtocolResult struct {
	ProtocolID     int64                    `json:"protocol_id"`
	ProtocolNumber string                   `json:"protocol_number"`
	Outcome        Outcome                  `json:"outcome"`
	SpeechCount    int                      `json:"speech_count"`
	ByMethod       map[ExtractionMethod]int `json:"by_method,omitempty"`
	Error          string                   `json:"error,omitempty"`
}
