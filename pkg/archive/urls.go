package archive

import (
	"fmt"
	"sort"

	"protocol-extractor/pkg/domain"
)

// The archive has changed its URL layout for structured documents over
// the years. Candidates are generated for every known pattern and tried
// in priority order; the first fetch that succeeds wins.
var defaultXMLPatterns = []func(period, session int) string{
	func(period, session int) string {
		return fmt.Sprintf("https://www.bundestag.de/resource/blob/plenarprotokolle/%02d%03d.xml", period, session)
	},
	func(period, session int) string {
		return fmt.Sprintf("https://www.bundestag.de/blob/plenarprotokolle/%02d/%02d%03d.xml", period, period, session)
	},
	func(period, session int) string {
		return fmt.Sprintf("https://dserver.bundestag.de/btp/%02d/%02d%03d.xml", period, period, session)
	},
}

// CandidateURLs builds the priority-ordered source list for one protocol
// variant. Explicit sources attached to the protocol keep their priority;
// pattern-derived candidates are appended after them.
func CandidateURLs(p *domain.Protocol, v domain.Variant) []string {
	sources := p.SourcesFor(v)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority < sources[j].Priority
	})

	seen := make(map[string]bool, len(sources))
	var out []string
	for _, s := range sources {
		if !seen[s.URL] {
			seen[s.URL] = true
			out = append(out, s.URL)
		}
	}

	if v == domain.VariantXML {
		for _, pat := range defaultXMLPatterns {
			u := pat(p.Period, p.Session)
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	if v == domain.VariantPDF && p.PDFURL != "" && !seen[p.PDFURL] {
		out = append(out, p.PDFURL)
	}
	return out
}
