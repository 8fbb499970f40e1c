package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-extractor/pkg/domain"
)

func exportFixture() []*domain.Protocol {
	date := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	return []*domain.Protocol{{
		ID:      900,
		Number:  "20/123",
		Period:  20,
		Session: 123,
		Date:    date,
		Speeches: []*domain.ExtractedSpeech{
			{
				ID:             5001,
				ProtocolID:     900,
				ProtocolNumber: "20/123",
				Speaker:        domain.Speaker{ID: 11001, FirstName: "Olaf", LastName: "Scholz", Party: "SPD"},
				Text:           "Sehr geehrte Damen und Herren.",
				Paragraphs: []domain.Paragraph{
					{Index: 0, Text: "Sehr geehrte Damen und Herren.", Kind: "J"},
				},
				Comments: []domain.Comment{{Index: 0, Text: "Beifall bei der SPD"}},
				Date:     date,
				Metadata: domain.ExtractionMetadata{
					Method: domain.MethodStructured, Status: domain.StatusComplete, Confidence: 1.0,
				},
			},
			{
				ID:             5002,
				ProtocolID:     900,
				ProtocolNumber: "20/123",
				Speaker:        domain.UnknownSpeaker,
				Text:           "Textfenster von Seite 14.",
				PageStart:      "14",
				Date:           date,
				Metadata: domain.ExtractionMetadata{
					Method: domain.MethodPage, Status: domain.StatusPartial,
					Confidence: 0.15, Fallback: true,
				},
			},
		},
	}}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVCarriesExtractionColumns(t *testing.T) {
	dir := t.TempDir()
	e, err := New(dir, nil)
	require.NoError(t, err)

	paths, err := e.CSV(exportFixture(), "")
	require.NoError(t, err)
	require.Len(t, paths, 4)

	rows := readCSV(t, filepath.Join(dir, "bundestag_wp20_speeches.csv"))
	require.Len(t, rows, 3)

	header := rows[0]
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q missing from header %v", name, header)
		return -1
	}

	assert.Equal(t, "structured", rows[1][col("extraction_method")])
	assert.Equal(t, "complete", rows[1][col("extraction_status")])
	assert.Equal(t, "1.00", rows[1][col("extraction_confidence")])
	assert.Equal(t, "false", rows[1][col("is_fallback")])

	assert.Equal(t, "page", rows[2][col("extraction_method")])
	assert.Equal(t, "partial", rows[2][col("extraction_status")])
	assert.Equal(t, "0.15", rows[2][col("extraction_confidence")])
	assert.Equal(t, "true", rows[2][col("is_fallback")])
	assert.Equal(t, "14", rows[2][col("page_start")])
}

func TestCSVSplitsEntities(t *testing.T) {
	dir := t.TempDir()
	e, err := New(dir, nil)
	require.NoError(t, err)

	_, err = e.CSV(exportFixture(), "testrun")
	require.NoError(t, err)

	protocols := readCSV(t, filepath.Join(dir, "testrun_protocols.csv"))
	require.Len(t, protocols, 2)
	assert.Equal(t, "20/123", protocols[1][1])
	assert.Equal(t, "2", protocols[1][7]) // speech_count

	paragraphs := readCSV(t, filepath.Join(dir, "testrun_paragraphs.csv"))
	require.Len(t, paragraphs, 2)
	assert.Equal(t, "5001", paragraphs[1][0])

	comments := readCSV(t, filepath.Join(dir, "testrun_comments.csv"))
	require.Len(t, comments, 2)
	assert.Equal(t, "Beifall bei der SPD", comments[1][3])
}

func TestJSONKeepsNestedShape(t *testing.T) {
	dir := t.TempDir()
	e, err := New(dir, nil)
	require.NoError(t, err)

	path, err := e.JSON(exportFixture(), "")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var docs []struct {
		Number   string `json:"number"`
		Speeches []struct {
			ID       int64 `json:"id"`
			Metadata struct {
				Method     string  `json:"method"`
				Confidence float64 `json:"confidence"`
			} `json:"extraction"`
		} `json:"speeches"`
	}
	require.NoError(t, json.Unmarshal(data, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "20/123", docs[0].Number)
	require.Len(t, docs[0].Speeches, 2)
	assert.Equal(t, "structured", docs[0].Speeches[0].Metadata.Method)
	assert.Equal(t, 0.15, docs[0].Speeches[1].Metadata.Confidence)
}
