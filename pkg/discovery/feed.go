package discovery

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/mmcdole/gofeed"

	"protocol-extractor/pkg/domain"
)

// feedNumber matches "Plenarprotokoll 20/123" style feed item titles.
var feedNumber = regexp.MustCompile(`(\d+)/(\d+)`)

// FeedSource reads the archive's RSS/Atom feed of newly published
// sitting documents. It only discovers protocol references; the listing
// source stays the canonical path for backfills.
type FeedSource struct {
	fetcher    Fetcher
	feedURL    string
	feedParser *gofeed.Parser
}

// NewFeedSource builds a feed-based discovery source.
func NewFeedSource(fetcher Fetcher, feedURL string) *FeedSource {
	return &FeedSource{
		fetcher:    fetcher,
		feedURL:    feedURL,
		feedParser: gofeed.NewParser(),
	}
}

// Recent returns protocols announced in the feed, newest first. Items
// whose title carries no recognizable document number are skipped.
func (s *FeedSource) Recent(ctx context.Context) ([]*domain.Protocol, error) {
	b, err := s.fetcher.Fetch(ctx, s.feedURL, "xml")
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	feed, err := s.feedParser.Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, nil
	}

	var out []*domain.Protocol
	for _, item := range feed.Items {
		m := feedNumber.FindStringSubmatch(item.Title)
		if m == nil {
			continue
		}
		period, _ := strconv.Atoi(m[1])
		session, _ := strconv.Atoi(m[2])
		p := &domain.Protocol{
			Number:  fmt.Sprintf("%d/%d", period, session),
			Period:  period,
			Session: session,
			Title:   item.Title,
		}
		if item.PublishedParsed != nil {
			p.Date = *item.PublishedParsed
		}
		if item.Link != "" {
			p.Sources = append(p.Sources, domain.SourceURL{
				Variant: domain.VariantText, URL: item.Link, Priority: 0,
			})
		}
		out = append(out, p)
	}
	return out, nil
}
