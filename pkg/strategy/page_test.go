package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-extractor/pkg/domain"
)

const pagedText = `Plenarprotokoll 20/123

S. 14501
Hier steht der Text, der auf Seite 14501 beginnt, die beste
Annäherung an die gesuchte Rede.

S. 14502
Und hier der Text von Seite 14502, ebenfalls nur ein Fenster.
`

func pageStubs() []domain.SpeechStub {
	return []domain.SpeechStub{
		{ID: 1, Index: 0, Speaker: domain.Speaker{ID: 1, LastName: "Scholz"}, PageStart: "14501"},
		{ID: 2, Index: 1, Speaker: domain.Speaker{ID: 2, LastName: "Merz"}, PageStart: "14502"},
	}
}

func TestPage_ExtractsWindows(t *testing.T) {
	in := &Input{Protocol: testProtocol(), PlainText: pagedText}
	st := NewPage()
	require.True(t, st.Applicable(in, pageStubs()))

	speeches := st.Extract(in, pageStubs())
	require.Len(t, speeches, 2)
	for _, sp := range speeches {
		assert.Equal(t, domain.MethodPage, sp.Metadata.Method)
		assert.Equal(t, domain.StatusPartial, sp.Metadata.Status)
		assert.LessOrEqual(t, sp.Metadata.Confidence, 0.2)
		assert.True(t, sp.Metadata.Fallback, "page output must be tagged as fallback")
	}
	assert.Contains(t, speeches[0].Text, "Seite 14501")
	assert.Contains(t, speeches[1].Text, "Seite 14502")
}

func TestPage_SkipsStubsWithoutPage(t *testing.T) {
	in := &Input{Protocol: testProtocol(), PlainText: pagedText}
	stubs := append(pageStubs(), domain.SpeechStub{ID: 3, Index: 2})

	speeches := NewPage().Extract(in, stubs)
	require.Len(t, speeches, 2)
}

func TestPage_NotApplicableWithoutTextOrPages(t *testing.T) {
	st := NewPage()
	assert.False(t, st.Applicable(&Input{Protocol: testProtocol()}, pageStubs()))
	assert.False(t, st.Applicable(&Input{Protocol: testProtocol(), PlainText: pagedText},
		[]domain.SpeechStub{{ID: 1}}))
}
