package strategy

import (
	"regexp"
	"strings"

	"protocol-extractor/pkg/domain"
)

// Confidence band for the pattern tier. Scores are a function of
// boundary-marker presence, speaker-match similarity and length
// plausibility, and always stay strictly below the structured tier.
const (
	patternFloor = 0.3
	patternCeil  = 0.7
)

// speakerAnnouncement matches a speech opening line: an optional
// procedural role, a capitalized name, an optional party cue, a colon.
// Examples: "Olaf Scholz (SPD):", "Präsidentin Bärbel Bas:".
var speakerAnnouncement = regexp.MustCompile(
	`(?m)^[ \t]*((?:(?:Alters|Vize)?Präsident(?:in)?|Bundeskanzler(?:in)?|Bundesminister(?:in)?|Staatssekretär(?:in)?|Dr\.|Prof\.)[ \t]+)*` +
		`([A-ZÄÖÜ][\wäöüß\-.]+(?:[ \t]+[A-ZÄÖÜ][\wäöüß\-.]+){0,3})` +
		`[ \t]*(?:\(([^)\n]{2,40})\))?[ \t]*:[ \t]*$`)

// interjection matches a parenthetical aside standing alone on a line,
// attributed to the floor: applause, heckles, laughter.
var interjection = regexp.MustCompile(
	`(?m)^[ \t]*\((Beifall|Zuruf|Zurufe|Lachen|Heiterkeit|Widerspruch|Unruhe|Gegenruf)[^)]*\)[ \t]*$`)

// sessionEnd matches the procedural close of the sitting, the final
// end-of-speech marker when no next announcement follows.
var sessionEnd = regexp.MustCompile(`(?m)^[ \t]*\((?:Schluss|Schluß):.*\)[ \t]*$`)

// Pattern extracts speeches from recovered plain text by locating
// speaker-announcement boundaries and attributing each span through
// fuzzy roster matching.
type Pattern struct{}

// NewPattern returns the pattern-matching strategy.
func NewPattern() *Pattern { return &Pattern{} }

func (p *Pattern) Name() domain.ExtractionMethod { return domain.MethodPattern }

func (p *Pattern) Applicable(in *Input, _ []domain.SpeechStub) bool {
	return strings.TrimSpace(in.PlainText) != ""
}

// segment is one candidate speech span between boundary markers.
type segment struct {
	announcedName string
	party         string
	text          string
	closedByMark  bool // an end marker was found, not just end of input
	claimed       bool
}

func (p *Pattern) Extract(in *Input, pending []domain.SpeechStub) []*domain.ExtractedSpeech {
	segments := splitSegments(in.PlainText)
	if len(segments) == 0 {
		return nil
	}

	var out []*domain.ExtractedSpeech
	for _, stub := range pending {
		seg, score := claimSegment(in, stub, segments)
		if seg == nil {
			continue
		}
		out = append(out, buildPatternSpeech(in, stub, seg, score))
	}
	return out
}

// splitSegments cuts the text at speaker announcements. A segment ends
// at the next announcement or at the session-end marker; only then is
// it considered boundary-closed.
func splitSegments(text string) []*segment {
	matches := speakerAnnouncement.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	segs := make([]*segment, 0, len(matches))
	for i, m := range matches {
		start := m[1] // end of the announcement line
		end := len(text)
		closed := false
		if i+1 < len(matches) {
			end = matches[i+1][0]
			closed = true
		} else if loc := sessionEnd.FindStringIndex(text[start:]); loc != nil {
			end = start + loc[0]
			closed = true
		}
		segs = append(segs, &segment{
			announcedName: strings.TrimSpace(text[m[4]:m[5]]),
			party:         submatch(text, m, 3),
			text:          strings.TrimSpace(text[start:end]),
			closedByMark:  closed,
		})
	}
	return segs
}

func submatch(text string, m []int, group int) string {
	lo, hi := m[2*group], m[2*group+1]
	if lo < 0 {
		return ""
	}
	return strings.TrimSpace(text[lo:hi])
}

// claimSegment finds the best unclaimed segment for a stub by fuzzy
// speaker similarity, ties broken by highest score. Returns nil when no
// segment's announced speaker resolves to the stub's speaker.
func claimSegment(in *Input, stub domain.SpeechStub, segments []*segment) (*segment, float64) {
	// A stub whose speaker is already unknown takes the first span whose
	// announcement resolves to nobody on the roster.
	if stub.Speaker.ID == domain.UnknownSpeaker.ID {
		for _, seg := range segments {
			if seg.claimed {
				continue
			}
			if in.Roster != nil {
				if _, _, ok := in.Roster.Match(seg.announcedName); ok {
					continue
				}
			}
			seg.claimed = true
			return seg, 0
		}
		return nil, 0
	}

	var best *segment
	bestScore := 0.0
	for _, seg := range segments {
		if seg.claimed || in.Roster == nil {
			continue
		}
		speaker, score, ok := in.Roster.Match(seg.announcedName)
		if !ok || speaker.ID != stub.Speaker.ID {
			continue
		}
		if score > bestScore {
			best, bestScore = seg, score
		}
	}
	if best != nil {
		best.claimed = true
	}
	return best, bestScore
}

func buildPatternSpeech(in *Input, stub domain.SpeechStub, seg *segment, score float64) *domain.ExtractedSpeech {
	body, comments := stripInterjections(seg.text)

	md := domain.ExtractionMetadata{
		Method:     domain.MethodPattern,
		Status:     domain.StatusComplete,
		Confidence: patternConfidence(seg, score, len(body)),
	}
	if stub.Speaker.ID == domain.UnknownSpeaker.ID {
		md.Status = domain.StatusPartial
		md.Note = "speaker attribution below threshold"
	}

	sp := newSpeech(in, stub, md)
	sp.Text = body
	if seg.party != "" && sp.Speaker.Party == "" {
		sp.Speaker.Party = seg.party
	}
	for i, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			sp.Paragraphs = append(sp.Paragraphs, domain.Paragraph{Index: i, Text: para})
		}
	}
	sp.Comments = comments
	return sp
}

// stripInterjections removes floor interjections from the span and
// returns them separately, preserving order.
func stripInterjections(text string) (string, []domain.Comment) {
	var comments []domain.Comment
	body := interjection.ReplaceAllStringFunc(text, func(m string) string {
		comments = append(comments, domain.Comment{
			Index: len(comments),
			Text:  strings.TrimSpace(strings.Trim(strings.TrimSpace(m), "()")),
		})
		return ""
	})
	return strings.TrimSpace(body), comments
}

// patternConfidence scores a span inside [patternFloor, patternCeil]:
// both boundaries found raises it, strong speaker similarity raises it,
// implausibly short or long spans are penalized.
func patternConfidence(seg *segment, matchScore float64, length int) float64 {
	conf := patternFloor
	if seg.closedByMark {
		conf += 0.15
	}
	conf += 0.2 * matchScore
	if length < 200 || length > 50000 {
		conf -= 0.1
	}
	if conf < patternFloor {
		conf = patternFloor
	}
	if conf > patternCeil {
		conf = patternCeil
	}
	return conf
}
