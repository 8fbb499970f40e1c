package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-extractor/pkg/domain"
	"protocol-extractor/pkg/roster"
)

const structuredDoc = `<?xml version="1.0" encoding="UTF-8"?>
<dbtplenarprotokoll wahlperiode="20" sitzung-nr="123">
  <sitzungsverlauf>
    <tagesordnungspunkt top-id="TOP 1">
      <rede id="ID2012300100">
        <p klasse="redner"><redner id="1"><name><vorname>Olaf</vorname><nachname>Scholz</nachname><fraktion>SPD</fraktion></name></redner>Olaf Scholz (SPD):</p>
        <p klasse="J">Frau Präsidentin! Meine Damen und Herren!</p>
        <kommentar>(Beifall bei der SPD)</kommentar>
        <p klasse="J_1">Die Bundesregierung legt heute einen Entwurf vor.</p>
      </rede>
      <rede id="ID2012300200">
        <p klasse="redner"><redner id="2"><name><vorname>Friedrich</vorname><nachname>Merz</nachname><fraktion>CDU/CSU</fraktion></name></redner>Friedrich Merz (CDU/CSU):</p>
        <p klasse="J">Das sehen wir anders.</p>
      </rede>
      <rede id="ID2012300300">
        <p klasse="redner"><redner id="3"><name><vorname>Annalena</vorname><nachname>Baerbock</nachname></name></redner>Annalena Baerbock:</p>
        <p klasse="J">Ich stimme dem Kollegen nicht zu.</p>
      </rede>
    </tagesordnungspunkt>
  </sitzungsverlauf>
</dbtplenarprotokoll>`

func testProtocol() *domain.Protocol {
	return &domain.Protocol{
		ID:      9001,
		Number:  "20/123",
		Period:  20,
		Session: 123,
		Date:    time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func testStubs() []domain.SpeechStub {
	return []domain.SpeechStub{
		{ID: 1, Index: 0, Speaker: domain.Speaker{ID: 1, FirstName: "Olaf", LastName: "Scholz"}},
		{ID: 2, Index: 1, Speaker: domain.Speaker{ID: 2, FirstName: "Friedrich", LastName: "Merz"}},
		{ID: 3, Index: 2, Speaker: domain.Speaker{ID: 3, FirstName: "Annalena", LastName: "Baerbock"}},
	}
}

func testRoster() *roster.Roster {
	return roster.New([]domain.Speaker{
		{ID: 1, FirstName: "Olaf", LastName: "Scholz", Party: "SPD"},
		{ID: 2, FirstName: "Friedrich", LastName: "Merz", Party: "CDU/CSU"},
		{ID: 3, FirstName: "Annalena", LastName: "Baerbock"},
	}, 0)
}

func TestStructured_CompleteDocument(t *testing.T) {
	in := &Input{Protocol: testProtocol(), StructuredXML: []byte(structuredDoc), Roster: testRoster()}
	st := NewStructured()
	require.True(t, st.Applicable(in, testStubs()))

	speeches := st.Extract(in, testStubs())
	require.Len(t, speeches, 3)
	for _, sp := range speeches {
		assert.Equal(t, domain.MethodStructured, sp.Metadata.Method)
		assert.Equal(t, domain.StatusComplete, sp.Metadata.Status)
		assert.Equal(t, 1.0, sp.Metadata.Confidence)
		assert.NotEmpty(t, sp.Text)
		assert.Equal(t, "20/123", sp.ProtocolNumber)
	}

	first := speeches[0]
	assert.Contains(t, first.Text, "Meine Damen und Herren")
	require.Len(t, first.Paragraphs, 2)
	require.Len(t, first.Comments, 1)
	assert.Contains(t, first.Comments[0].Text, "Beifall")
	assert.Equal(t, "SPD", first.Speaker.Party)
}

func TestStructured_PartialNodeIsMarkedDown(t *testing.T) {
	doc := `<root><sitzungsverlauf>
	  <rede id="ID1"><p klasse="J">Rede ohne Redner-Knoten.</p></rede>
	</sitzungsverlauf></root>`
	stubs := []domain.SpeechStub{
		{ID: 1, Index: 0, Speaker: domain.Speaker{ID: 1, FirstName: "Olaf", LastName: "Scholz"}},
	}
	in := &Input{Protocol: testProtocol(), StructuredXML: []byte(doc)}

	speeches := NewStructured().Extract(in, stubs)
	require.Len(t, speeches, 1)
	assert.Equal(t, domain.StatusPartial, speeches[0].Metadata.Status)
	assert.Equal(t, structuredPartial, speeches[0].Metadata.Confidence)
	assert.Less(t, speeches[0].Metadata.Confidence, structuredComplete)
}

func TestStructured_UnmatchedStubLeftPending(t *testing.T) {
	in := &Input{Protocol: testProtocol(), StructuredXML: []byte(structuredDoc)}
	stubs := append(testStubs(), domain.SpeechStub{
		ID: 4, Index: 3, Speaker: domain.Speaker{ID: 9, FirstName: "Nicht", LastName: "Vorhanden"},
	})

	speeches := NewStructured().Extract(in, stubs)
	require.Len(t, speeches, 3)
	for _, sp := range speeches {
		assert.NotEqual(t, int64(4), sp.ID)
	}
}

func TestStructured_NotApplicableWithoutDocument(t *testing.T) {
	in := &Input{Protocol: testProtocol()}
	assert.False(t, NewStructured().Applicable(in, testStubs()))
}
