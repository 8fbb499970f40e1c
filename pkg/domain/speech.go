package domain

import "time"

// Speaker identifies a person on the session roster.
type Speaker struct {
	ID        int64  `json:"id" bson:"id"`
	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name" bson:"last_name"`
	Title     string `json:"title,omitempty" bson:"title,omitempty"`
	Party     string `json:"party,omitempty" bson:"party,omitempty"`
	Role      string `json:"role,omitempty" bson:"role,omitempty"`
}

// UnknownSpeaker is used when attribution stays below the fuzzy-match
// threshold. Extraction still proceeds; the speech is labeled partial.
var UnknownSpeaker = Speaker{ID: -1, LastName: "Unknown"}

// FullName returns "First Last", tolerating missing parts.
func (s Speaker) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	default:
		return s.FirstName + " " + s.LastName
	}
}

// SpeechStub is a placeholder for a speech expected to exist in a
// protocol, produced by the preliminary table-of-contents scan before any
// content extraction happens.
type SpeechStub struct {
	ID        int64   `json:"id"`
	Index     int     `json:"index"` // sequence position within the session
	Speaker   Speaker `json:"speaker"`
	PageStart string  `json:"page_start,omitempty"`
	Title     string  `json:"title,omitempty"`
}

// Paragraph is one text sub-unit of a speech, in document order.
type Paragraph struct {
	Index int    `json:"index" bson:"index"`
	Text  string `json:"text" bson:"text"`
	Kind  string `json:"kind,omitempty" bson:"kind,omitempty"` // source markup class, if any
}

// Comment is an interjection attributed to the floor rather than the
// speaker, e.g. applause or a heckle.
type Comment struct {
	Index int    `json:"index" bson:"index"`
	Text  string `json:"text" bson:"text"`
}

// ExtractedSpeech is the unit the engine emits: speech content plus the
// quality label describing how it was obtained. Exactly one is produced
// per SpeechStub.
type ExtractedSpeech struct {
	ID             int64              `json:"id" bson:"id"`
	ProtocolID     int64              `json:"protocol_id" bson:"protocol_id"`
	ProtocolNumber string             `json:"protocol_number" bson:"protocol_number"`
	Speaker        Speaker            `json:"speaker" bson:"speaker"`
	Title          string             `json:"title,omitempty" bson:"title,omitempty"`
	Text           string             `json:"text" bson:"text"`
	Paragraphs     []Paragraph        `json:"paragraphs,omitempty" bson:"paragraphs,omitempty"`
	Comments       []Comment          `json:"comments,omitempty" bson:"comments,omitempty"`
	PageStart      string             `json:"page_start,omitempty" bson:"page_start,omitempty"`
	Date           time.Time          `json:"date" bson:"date"`
	Metadata       ExtractionMetadata `json:"extraction" bson:"extraction"`
	ExtractedAt    time.Time          `json:"extracted_at" bson:"extracted_at"`
}
