package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-extractor/pkg/domain"
)

func testSpeech(id int64, text string) *domain.ExtractedSpeech {
	return &domain.ExtractedSpeech{
		ID:             id,
		ProtocolID:     900,
		ProtocolNumber: "20/1",
		Speaker:        domain.Speaker{ID: 11001, FirstName: "Olaf", LastName: "Scholz"},
		Text:           text,
		Metadata: domain.ExtractionMetadata{
			Method:     domain.MethodStructured,
			Status:     domain.StatusComplete,
			Confidence: 1.0,
		},
	}
}

func TestFileSinkWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir)
	require.NoError(t, err)

	p := &domain.Protocol{ID: 900, Number: "20/1", Period: 20, Session: 1}
	speeches := []*domain.ExtractedSpeech{
		testSpeech(5001, "Erste Rede."),
		testSpeech(5002, "Zweite Rede."),
	}
	require.NoError(t, s.SaveSpeeches(context.Background(), p, speeches))

	f, err := os.Open(filepath.Join(dir, "speeches_20_1.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var got []domain.ExtractedSpeech
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var sp domain.ExtractedSpeech
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &sp))
		got = append(got, sp)
	}
	require.Len(t, got, 2)
	assert.Equal(t, int64(5001), got[0].ID)
	assert.Equal(t, "Zweite Rede.", got[1].Text)
	assert.Equal(t, domain.MethodStructured, got[0].Metadata.Method)
}

func TestFileSinkRewriteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir)
	require.NoError(t, err)

	p := &domain.Protocol{ID: 900, Number: "20/1", Period: 20, Session: 1}
	require.NoError(t, s.SaveSpeeches(context.Background(), p,
		[]*domain.ExtractedSpeech{testSpeech(5001, "alt"), testSpeech(5002, "alt")}))
	require.NoError(t, s.SaveSpeeches(context.Background(), p,
		[]*domain.ExtractedSpeech{testSpeech(5001, "neu")}))

	data, err := os.ReadFile(filepath.Join(dir, "speeches_20_1.jsonl"))
	require.NoError(t, err)

	var sp domain.ExtractedSpeech
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &sp))
	assert.Equal(t, "neu", sp.Text)
}
