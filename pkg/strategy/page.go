package strategy

import (
	"protocol-extractor/pkg/content"
	"protocol-extractor/pkg/domain"
)

// pageConfidence is the fixed low trust assigned to page windows. The
// output is always a labeled fallback so quality-sensitive consumers
// can exclude it.
const pageConfidence = 0.15

// Page is the lowest-fidelity strategy: when only a starting page is
// known for a stub, it extracts a bounded text window around that page
// as a best-effort approximation.
type Page struct {
	// Window is the text window size in characters; zero selects
	// content.DefaultPageWindow.
	Window int
}

// NewPage returns the page-reference strategy.
func NewPage() *Page { return &Page{} }

func (p *Page) Name() domain.ExtractionMethod { return domain.MethodPage }

func (p *Page) Applicable(in *Input, pending []domain.SpeechStub) bool {
	if in.PlainText == "" {
		return false
	}
	for _, stub := range pending {
		if stub.PageStart != "" {
			return true
		}
	}
	return false
}

func (p *Page) Extract(in *Input, pending []domain.SpeechStub) []*domain.ExtractedSpeech {
	var out []*domain.ExtractedSpeech
	for _, stub := range pending {
		if stub.PageStart == "" {
			continue
		}
		window, err := content.PageWindow(in.PlainText, stub.PageStart, p.Window)
		if err != nil {
			continue
		}
		sp := newSpeech(in, stub, domain.ExtractionMetadata{
			Method:     domain.MethodPage,
			Status:     domain.StatusPartial,
			Confidence: pageConfidence,
			Fallback:   true,
			Note:       "page window approximation",
		})
		sp.Text = window
		out = append(out, sp)
	}
	return out
}
