// Package roster holds the known speaker list for a session and resolves
// free-text speaker announcements against it by fuzzy name similarity.
package roster

import (
	"strings"

	"github.com/agext/levenshtein"

	"protocol-extractor/pkg/domain"
)

// DefaultThreshold is the minimum similarity for an attribution to be
// accepted. Below it the speech is attributed to the unknown speaker.
const DefaultThreshold = 0.75

// Roster is the speaker set for one session.
type Roster struct {
	speakers  []domain.Speaker
	threshold float64
}

// New builds a roster; threshold <= 0 selects DefaultThreshold.
func New(speakers []domain.Speaker, threshold float64) *Roster {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Roster{speakers: speakers, threshold: threshold}
}

// Speakers returns the roster entries.
func (r *Roster) Speakers() []domain.Speaker { return r.speakers }

// Match resolves a free-text name against the roster. It returns the
// best-scoring speaker and the similarity score; ok is false when no
// speaker reaches the threshold (tie-break is highest score). Titles and
// honorifics are stripped before comparison.
func (r *Roster) Match(name string) (speaker domain.Speaker, score float64, ok bool) {
	name = normalizeName(name)
	if name == "" {
		return domain.UnknownSpeaker, 0, false
	}

	best := domain.UnknownSpeaker
	bestScore := 0.0
	for _, s := range r.speakers {
		candidate := normalizeName(s.FullName())
		sim := levenshtein.Similarity(name, candidate, nil)
		// Announcements often carry only the last name.
		if lastOnly := normalizeName(s.LastName); lastOnly != "" {
			if sim2 := levenshtein.Similarity(name, lastOnly, nil); sim2 > sim {
				sim = sim2
			}
		}
		if sim > bestScore {
			bestScore = sim
			best = s
		}
	}
	if bestScore < r.threshold {
		return domain.UnknownSpeaker, bestScore, false
	}
	return best, bestScore, true
}

var strippedPrefixes = []string{
	"dr.", "prof.", "abgeordneter", "abgeordnete",
	"präsidentin", "präsident", "vizepräsidentin", "vizepräsident",
	"bundesministerin", "bundesminister", "bundeskanzlerin", "bundeskanzler",
	"staatssekretärin", "staatssekretär", "alterspräsidentin", "alterspräsident",
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for changed := true; changed; {
		changed = false
		for _, p := range strippedPrefixes {
			if strings.HasPrefix(s, p) {
				s = strings.TrimSpace(s[len(p):])
				changed = true
			}
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
