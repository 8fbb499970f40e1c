package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"protocol-extractor/pkg/domain"
)

// StubSource produces the preliminary speech scan for one protocol:
// the expected speeches (stubs) and the session roster. Extraction later
// claims exactly one result per stub.
type StubSource interface {
	Scan(ctx context.Context, p *domain.Protocol) ([]domain.SpeechStub, []domain.Speaker, error)
}

// ActivitySource derives stubs from the archive's activity listing, the
// per-protocol index of who spoke and where.
type ActivitySource struct {
	fetcher Fetcher
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// NewActivitySource builds a stub source against the archive API.
func NewActivitySource(fetcher Fetcher, baseURL, apiKey string, logger *zap.Logger) *ActivitySource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivitySource{fetcher: fetcher, baseURL: baseURL, apiKey: apiKey, logger: logger}
}

type activityPage struct {
	Documents []activityDocument `json:"documents"`
	Cursor    string             `json:"cursor"`
}

type activityDocument struct {
	ID         string `json:"id"`
	Titel      string `json:"titel"`
	Fundstelle struct {
		Seite string `json:"seite"`
	} `json:"fundstelle"`
	Person struct {
		ID       string `json:"id"`
		Vorname  string `json:"vorname"`
		Nachname string `json:"nachname"`
		Titel    string `json:"titel"`
		Fraktion string `json:"fraktion"`
		Funktion string `json:"funktion"`
	} `json:"person"`
}

// Scan fetches all speech activities of the protocol, oldest first, and
// turns them into stubs plus the deduplicated roster.
func (s *ActivitySource) Scan(ctx context.Context, p *domain.Protocol) ([]domain.SpeechStub, []domain.Speaker, error) {
	var stubs []domain.SpeechStub
	seen := make(map[int64]bool)
	var roster []domain.Speaker

	cursor := ""
	for {
		page, err := s.fetchPage(ctx, p.ID, cursor)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range page.Documents {
			stub, speaker, err := toStub(d, len(stubs))
			if err != nil {
				s.logger.Warn("skipping malformed activity",
					zap.String("id", d.ID), zap.Error(err))
				continue
			}
			stubs = append(stubs, stub)
			if speaker.ID > 0 && !seen[speaker.ID] {
				seen[speaker.ID] = true
				roster = append(roster, speaker)
			}
		}
		if len(page.Documents) == 0 || page.Cursor == "" || page.Cursor == cursor {
			break
		}
		cursor = page.Cursor
	}
	s.logger.Debug("protocol scanned",
		zap.String("protocol", p.Number),
		zap.Int("stubs", len(stubs)), zap.Int("roster", len(roster)))
	return stubs, roster, nil
}

func (s *ActivitySource) fetchPage(ctx context.Context, protocolID int64, cursor string) (*activityPage, error) {
	q := url.Values{}
	q.Set("f.plenarprotokoll", strconv.FormatInt(protocolID, 10))
	q.Set("f.aktivitaetsart", "Rede")
	q.Set("apikey", s.apiKey)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u := s.baseURL + "/aktivitaet?" + q.Encode()

	b, err := s.fetcher.Fetch(ctx, u, "json")
	if err != nil {
		return nil, fmt.Errorf("fetch activities: %w", err)
	}
	var page activityPage
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, fmt.Errorf("parse activities: %w", err)
	}
	return &page, nil
}

func toStub(d activityDocument, index int) (domain.SpeechStub, domain.Speaker, error) {
	id, err := strconv.ParseInt(d.ID, 10, 64)
	if err != nil {
		return domain.SpeechStub{}, domain.Speaker{}, fmt.Errorf("activity id %q: %w", d.ID, err)
	}
	speaker := domain.Speaker{
		FirstName: d.Person.Vorname,
		LastName:  d.Person.Nachname,
		Title:     d.Person.Titel,
		Party:     d.Person.Fraktion,
		Role:      d.Person.Funktion,
	}
	if pid, err := strconv.ParseInt(d.Person.ID, 10, 64); err == nil {
		speaker.ID = pid
	}
	stub := domain.SpeechStub{
		ID:        id,
		Index:     index,
		Speaker:   speaker,
		PageStart: d.Fundstelle.Seite,
		Title:     d.Titel,
	}
	return stub, speaker, nil
}
