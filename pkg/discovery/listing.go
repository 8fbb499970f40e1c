// Package discovery produces the ordered protocol list for a
// legislative period and the cheap preliminary speech scan (stubs plus
// session roster). Both are collaborators of the extraction engine, not
// part of it.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"protocol-extractor/pkg/domain"
)

// Fetcher is the transport capability discovery consumes; the archive
// client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url, wantType string) ([]byte, error)
}

// ListingSource reads the archive's JSON document listing.
type ListingSource struct {
	fetcher Fetcher
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// NewListingSource builds a listing source against the archive API.
func NewListingSource(fetcher Fetcher, baseURL, apiKey string, logger *zap.Logger) *ListingSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingSource{fetcher: fetcher, baseURL: baseURL, apiKey: apiKey, logger: logger}
}

type listingPage struct {
	NumFound  int               `json:"numFound"`
	Documents []listingDocument `json:"documents"`
	Cursor    string            `json:"cursor"`
}

type listingDocument struct {
	ID             string `json:"id"`
	Dokumentnummer string `json:"dokumentnummer"`
	Wahlperiode    int    `json:"wahlperiode"`
	Datum          string `json:"datum"`
	Titel          string `json:"titel"`
	Fundstelle     struct {
		PDFURL string `json:"pdf_url"`
		XMLURL string `json:"xml_url"`
	} `json:"fundstelle"`
}

// Protocols returns all protocols of a period, oldest first, following
// the listing's cursor pagination.
func (s *ListingSource) Protocols(ctx context.Context, period int) ([]*domain.Protocol, error) {
	var out []*domain.Protocol
	cursor := ""
	for {
		page, err := s.fetchPage(ctx, period, cursor)
		if err != nil {
			return nil, err
		}
		for _, d := range page.Documents {
			p, err := toProtocol(d)
			if err != nil {
				s.logger.Warn("skipping malformed listing entry",
					zap.String("id", d.ID), zap.Error(err))
				continue
			}
			out = append(out, p)
		}
		if len(page.Documents) == 0 || page.Cursor == "" || page.Cursor == cursor {
			break
		}
		cursor = page.Cursor
	}
	s.logger.Info("protocol listing fetched",
		zap.Int("period", period), zap.Int("count", len(out)))
	return out, nil
}

func (s *ListingSource) fetchPage(ctx context.Context, period int, cursor string) (*listingPage, error) {
	q := url.Values{}
	q.Set("f.wahlperiode", strconv.Itoa(period))
	q.Set("apikey", s.apiKey)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u := s.baseURL + "/plenarprotokoll?" + q.Encode()

	b, err := s.fetcher.Fetch(ctx, u, "json")
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	var page listingPage
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return &page, nil
}

func toProtocol(d listingDocument) (*domain.Protocol, error) {
	id, err := strconv.ParseInt(d.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("document id %q: %w", d.ID, err)
	}
	session := 0
	if _, err := fmt.Sscanf(d.Dokumentnummer, "%d/%d", new(int), &session); err != nil {
		session = 0
	}
	p := &domain.Protocol{
		ID:      id,
		Number:  d.Dokumentnummer,
		Period:  d.Wahlperiode,
		Session: session,
		Title:   d.Titel,
		PDFURL:  d.Fundstelle.PDFURL,
	}
	if d.Datum != "" {
		if date, err := time.Parse("2006-01-02", d.Datum); err == nil {
			p.Date = date
		}
	}
	if d.Fundstelle.XMLURL != "" {
		p.Sources = append(p.Sources, domain.SourceURL{
			Variant: domain.VariantXML, URL: d.Fundstelle.XMLURL, Priority: 0,
		})
	}
	return p, nil
}
