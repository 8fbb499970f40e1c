package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-extractor/pkg/domain"
)

func TestSelector_ExactlyOneSpeechPerStub(t *testing.T) {
	// Structured document resolves the roster stubs, a page-only stub
	// falls to the page tier, and one stub nothing can resolve is
	// emitted as failed.
	stubs := append(testStubs(),
		domain.SpeechStub{ID: 4, Index: 3, Speaker: domain.Speaker{ID: 40, LastName: "Seitenredner"}, PageStart: "14501"},
		domain.SpeechStub{ID: 5, Index: 4, Speaker: domain.Speaker{ID: 50, LastName: "Spurlos"}},
	)
	in := &Input{
		Protocol:      testProtocol(),
		StructuredXML: []byte(structuredDoc),
		PlainText:     pagedText,
		Roster:        testRoster(),
	}

	speeches, state, err := NewSelector(nil).Run(in, stubs)
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	require.Len(t, speeches, len(stubs))

	seen := make(map[int64]int)
	for _, sp := range speeches {
		seen[sp.ID]++
	}
	for _, stub := range stubs {
		assert.Equal(t, 1, seen[stub.ID], "stub %d must map to exactly one speech", stub.ID)
	}

	byID := make(map[int64]*domain.ExtractedSpeech)
	for _, sp := range speeches {
		byID[sp.ID] = sp
	}
	assert.Equal(t, domain.MethodStructured, byID[1].Metadata.Method)
	assert.Equal(t, domain.MethodPage, byID[4].Metadata.Method)
	assert.Equal(t, domain.MethodFailed, byID[5].Metadata.Method)
	assert.Equal(t, domain.StatusEmpty, byID[5].Metadata.Status)
	assert.Zero(t, byID[5].Metadata.Confidence)
}

func TestSelector_FidelityOrderIsFixed(t *testing.T) {
	// With both a structured document and matching plain text, the
	// structured tier must win for every stub it can resolve.
	in := &Input{
		Protocol:      testProtocol(),
		StructuredXML: []byte(structuredDoc),
		PlainText:     plainTextProtocol,
		Roster:        testRoster(),
	}
	speeches, _, err := NewSelector(nil).Run(in, testStubs())
	require.NoError(t, err)
	for _, sp := range speeches {
		assert.Equal(t, domain.MethodStructured, sp.Metadata.Method)
	}
}

func TestSelector_FallsThroughToPattern(t *testing.T) {
	in := &Input{
		Protocol:  testProtocol(),
		PlainText: plainTextProtocol,
		Roster:    testRoster(),
	}
	speeches, _, err := NewSelector(nil).Run(in, testStubs()[:2])
	require.NoError(t, err)
	require.Len(t, speeches, 2)
	for _, sp := range speeches {
		assert.Equal(t, domain.MethodPattern, sp.Metadata.Method)
		assert.GreaterOrEqual(t, sp.Metadata.Confidence, 0.3)
		assert.LessOrEqual(t, sp.Metadata.Confidence, 0.7)
	}
}

func TestSelector_AllFailedWhenNothingAvailable(t *testing.T) {
	in := &Input{Protocol: testProtocol(), Roster: testRoster()}
	speeches, state, err := NewSelector(nil).Run(in, testStubs())
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	for _, sp := range speeches {
		assert.Equal(t, domain.MethodFailed, sp.Metadata.Method)
		require.NoError(t, sp.Metadata.Validate())
	}
}

func TestSelector_OutputPreservesStubOrder(t *testing.T) {
	in := &Input{
		Protocol:      testProtocol(),
		StructuredXML: []byte(structuredDoc),
		Roster:        testRoster(),
	}
	stubs := testStubs()
	speeches, _, err := NewSelector(nil).Run(in, stubs)
	require.NoError(t, err)
	require.Len(t, speeches, len(stubs))
	for i, sp := range speeches {
		assert.Equal(t, stubs[i].ID, sp.ID)
	}
}
