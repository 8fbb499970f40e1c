// Package export writes extraction results to analysis-friendly files.
// CSV output is split into one file per entity (protocols, speeches,
// paragraphs, comments) so the relational shape survives; JSON output
// keeps the nested form.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"protocol-extractor/pkg/domain"
)

// Exporter writes result files into a single output directory.
type Exporter struct {
	dir    string
	logger *zap.Logger
}

// New creates the output directory if needed.
func New(dir string, logger *zap.Logger) (*Exporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Exporter{dir: dir, logger: logger}, nil
}

var speechHeader = []string{
	"id", "protocol_id", "protocol_number", "date",
	"speaker_id", "speaker_first_name", "speaker_last_name", "speaker_party", "speaker_role",
	"title", "page_start", "text",
	"extraction_method", "extraction_status", "extraction_confidence", "is_fallback",
}

// CSV writes the per-entity CSV files for the given protocols and
// returns the paths written. The extraction label travels with every
// speech row so downstream filtering stays a column predicate.
func (e *Exporter) CSV(protocols []*domain.Protocol, baseName string) ([]string, error) {
	if baseName == "" {
		baseName = defaultBaseName(protocols)
	}

	var written []string
	write := func(suffix string, header []string, rows [][]string) error {
		path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.csv", baseName, suffix))
		if err := writeCSV(path, header, rows); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	var protocolRows, speechRows, paragraphRows, commentRows [][]string
	for _, p := range protocols {
		protocolRows = append(protocolRows, []string{
			strconv.FormatInt(p.ID, 10), p.Number,
			strconv.Itoa(p.Period), strconv.Itoa(p.Session),
			p.Title, dateOf(p), p.PDFURL,
			strconv.Itoa(len(p.Speeches)),
		})
		for _, sp := range p.Speeches {
			speechRows = append(speechRows, speechRow(sp))
			for _, para := range sp.Paragraphs {
				paragraphRows = append(paragraphRows, []string{
					strconv.FormatInt(sp.ID, 10), strconv.FormatInt(p.ID, 10),
					strconv.Itoa(para.Index + 1), para.Kind, para.Text,
				})
			}
			for _, c := range sp.Comments {
				commentRows = append(commentRows, []string{
					strconv.FormatInt(sp.ID, 10), strconv.FormatInt(p.ID, 10),
					strconv.Itoa(c.Index + 1), c.Text,
				})
			}
		}
	}

	protocolHeader := []string{"id", "number", "period", "session", "title", "date", "pdf_url", "speech_count"}
	if err := write("protocols", protocolHeader, protocolRows); err != nil {
		return nil, err
	}
	if err := write("speeches", speechHeader, speechRows); err != nil {
		return nil, err
	}
	if err := write("paragraphs", []string{"speech_id", "protocol_id", "paragraph_number", "type", "text"}, paragraphRows); err != nil {
		return nil, err
	}
	if err := write("comments", []string{"speech_id", "protocol_id", "comment_number", "text"}, commentRows); err != nil {
		return nil, err
	}

	e.logger.Info("csv export written",
		zap.String("base", baseName),
		zap.Int("protocols", len(protocolRows)),
		zap.Int("speeches", len(speechRows)))
	return written, nil
}

// JSON writes the full nested result set as a single document.
func (e *Exporter) JSON(protocols []*domain.Protocol, baseName string) (string, error) {
	if baseName == "" {
		baseName = defaultBaseName(protocols)
	}
	path := filepath.Join(e.dir, baseName+".json")

	type protocolDoc struct {
		*domain.Protocol
		Speeches []*domain.ExtractedSpeech `json:"speeches"`
	}
	docs := make([]protocolDoc, 0, len(protocols))
	for _, p := range protocols {
		docs = append(docs, protocolDoc{Protocol: p, Speeches: p.Speeches})
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create json export: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return "", fmt.Errorf("encode json export: %w", err)
	}
	e.logger.Info("json export written", zap.String("path", path))
	return path, nil
}

func speechRow(sp *domain.ExtractedSpeech) []string {
	date := ""
	if !sp.Date.IsZero() {
		date = sp.Date.Format("2006-01-02")
	}
	return []string{
		strconv.FormatInt(sp.ID, 10),
		strconv.FormatInt(sp.ProtocolID, 10),
		sp.ProtocolNumber, date,
		strconv.FormatInt(sp.Speaker.ID, 10),
		sp.Speaker.FirstName, sp.Speaker.LastName, sp.Speaker.Party, sp.Speaker.Role,
		sp.Title, sp.PageStart, sp.Text,
		string(sp.Metadata.Method), string(sp.Metadata.Status),
		strconv.FormatFloat(sp.Metadata.Confidence, 'f', 2, 64),
		strconv.FormatBool(sp.Metadata.Fallback),
	}
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	return w.Error()
}

func dateOf(p *domain.Protocol) string {
	if p.Date.IsZero() {
		return ""
	}
	return p.Date.Format("2006-01-02")
}

func defaultBaseName(protocols []*domain.Protocol) string {
	if len(protocols) > 0 {
		return fmt.Sprintf("bundestag_wp%d", protocols[0].Period)
	}
	return "bundestag_protocols"
}
