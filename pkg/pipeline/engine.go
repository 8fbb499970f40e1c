// Package pipeline orchestrates extraction end to end: per protocol it
// gathers every representation, runs the strategy tiers, persists the
// speeches and records the checkpoint. Collaborators are passed in as
// small interfaces so tests can substitute any of them.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"protocol-extractor/pkg/archive"
	"protocol-extractor/pkg/cache"
	"protocol-extractor/pkg/content"
	"protocol-extractor/pkg/discovery"
	"protocol-extractor/pkg/domain"
	"protocol-extractor/pkg/roster"
	"protocol-extractor/pkg/sink"
	"protocol-extractor/pkg/strategy"
	"protocol-extractor/pkg/xmlrepair"
)

// Fetcher downloads one document, trying candidate URLs in order.
type Fetcher interface {
	FetchFirst(ctx context.Context, urls []string, wantType string) ([]byte, error)
}

// DocumentStore caches fetched documents per protocol and variant.
type DocumentStore interface {
	GetOrFetch(ctx context.Context, protocolID int64, variant string, fetch cache.FetchFunc) ([]byte, error)
}

// Checkpoint records per-protocol outcomes. Record is called only after
// a protocol has reached a terminal state; its error is the one fatal
// condition the engine propagates.
type Checkpoint interface {
	IsCompleted(protocolID int64) bool
	Record(protocolID int64, number string, outcome domain.Outcome, errMsg string) error
}

// Config tunes the engine.
type Config struct {
	// Concurrency bounds the parallel protocol fan-out. Zero means serial.
	Concurrency int
	// RosterThreshold is the fuzzy speaker-match cutoff.
	RosterThreshold float64
}

// Engine runs the extraction pipeline over a protocol list.
type Engine struct {
	fetcher    Fetcher
	store      DocumentStore
	stubs      discovery.StubSource
	selector   *strategy.Selector
	saver      sink.SpeechSaver
	checkpoint Checkpoint
	cfg        Config
	logger     *zap.Logger
}

// NewEngine wires the engine from its collaborators.
func NewEngine(fetcher Fetcher, store DocumentStore, stubs discovery.StubSource,
	saver sink.SpeechSaver, checkpoint Checkpoint, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RosterThreshold == 0 {
		cfg.RosterThreshold = roster.DefaultThreshold
	}
	return &Engine{
		fetcher:    fetcher,
		store:      store,
		stubs:      stubs,
		selector:   strategy.NewSelector(logger),
		saver:      saver,
		checkpoint: checkpoint,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run processes every protocol in order, skipping ones the checkpoint
// already marks completed. A failed protocol is recorded and does not
// stop the rest; only a broken checkpoint store aborts the run.
func (e *Engine) Run(ctx context.Context, protocols []*domain.Protocol) ([]*domain.ProtocolResult, error) {
	results := make([]*domain.ProtocolResult, len(protocols))

	g, ctx := errgroup.WithContext(ctx)
	limit := e.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, p := range protocols {
		if e.checkpoint.IsCompleted(p.ID) {
			results[i] = &domain.ProtocolResult{
				ProtocolID:     p.ID,
				ProtocolNumber: p.Number,
				Outcome:        domain.OutcomeSkipped,
			}
			e.logger.Debug("protocol already completed", zap.String("protocol", p.Number))
			continue
		}
		i, p := i, p
		g.Go(func() error {
			res, err := e.Process(ctx, p)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Process runs one protocol to a terminal state and records it. The
// returned error is non-nil only when the checkpoint itself fails.
func (e *Engine) Process(ctx context.Context, p *domain.Protocol) (*domain.ProtocolResult, error) {
	res := &domain.ProtocolResult{ProtocolID: p.ID, ProtocolNumber: p.Number}

	stubs, speakers, err := e.stubs.Scan(ctx, p)
	if err != nil {
		return e.fail(res, p, fmt.Errorf("scan speeches: %w", err))
	}

	in := &strategy.Input{
		Protocol: p,
		Roster:   roster.New(speakers, e.cfg.RosterThreshold),
	}
	in.StructuredXML = e.structuredXML(ctx, p)
	in.PlainText = e.plainText(ctx, p)

	speeches, _, err := e.selector.Run(in, stubs)
	if err != nil {
		return e.fail(res, p, fmt.Errorf("extract: %w", err))
	}
	if err := e.saver.SaveSpeeches(ctx, p, speeches); err != nil {
		return e.fail(res, p, fmt.Errorf("save speeches: %w", err))
	}
	p.Speeches = speeches

	res.Outcome = domain.OutcomeCompleted
	res.SpeechCount = len(speeches)
	res.ByMethod = countByMethod(speeches)
	if err := e.checkpoint.Record(p.ID, p.Number, domain.OutcomeCompleted, ""); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", p.Number, err)
	}
	e.logger.Info("protocol extracted",
		zap.String("protocol", p.Number),
		zap.Int("speeches", len(speeches)))
	return res, nil
}

// fail records a terminal failure. The protocol stays eligible for
// retry on the next run; only checkpoint errors escalate.
func (e *Engine) fail(res *domain.ProtocolResult, p *domain.Protocol, cause error) (*domain.ProtocolResult, error) {
	res.Outcome = domain.OutcomeFailed
	res.Error = cause.Error()
	e.logger.Warn("protocol failed",
		zap.String("protocol", p.Number), zap.Error(cause))
	if err := e.checkpoint.Record(p.ID, p.Number, domain.OutcomeFailed, cause.Error()); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", p.Number, err)
	}
	return res, nil
}

// structuredXML returns a valid structured document for the protocol,
// repairing it when the fetched bytes fail validation. nil means the
// structured tier is unavailable.
func (e *Engine) structuredXML(ctx context.Context, p *domain.Protocol) []byte {
	urls := archive.CandidateURLs(p, domain.VariantXML)
	if len(urls) == 0 {
		return nil
	}
	raw, err := e.store.GetOrFetch(ctx, p.ID, string(domain.VariantXML), func(ctx context.Context) ([]byte, error) {
		return e.fetcher.FetchFirst(ctx, urls, "xml")
	})
	if err != nil {
		e.logger.Warn("structured representation unavailable",
			zap.String("protocol", p.Number), zap.Error(err))
		return nil
	}
	p.SetRawXML(raw)

	if xmlrepair.Validate(raw) == nil {
		return raw
	}
	repaired, err := xmlrepair.Repair(raw)
	if err != nil {
		e.logger.Warn("structured document unrepairable",
			zap.String("protocol", p.Number), zap.Error(err))
		return nil
	}
	p.SetRepairedXML(repaired)
	e.logger.Info("structured document repaired", zap.String("protocol", p.Number))
	return repaired
}

// plainText recovers a textual rendition for the lower tiers: the HTML
// mirror when one exists, otherwise text extracted from the PDF.
func (e *Engine) plainText(ctx context.Context, p *domain.Protocol) string {
	if urls := archive.CandidateURLs(p, domain.VariantText); len(urls) > 0 {
		raw, err := e.store.GetOrFetch(ctx, p.ID, string(domain.VariantText), func(ctx context.Context) ([]byte, error) {
			return e.fetcher.FetchFirst(ctx, urls, "html")
		})
		if err == nil {
			if text := textOf(raw); text != "" {
				p.FullText = text
				return text
			}
		} else {
			e.logger.Debug("text representation unavailable",
				zap.String("protocol", p.Number), zap.Error(err))
		}
	}

	if urls := archive.CandidateURLs(p, domain.VariantPDF); len(urls) > 0 {
		raw, err := e.store.GetOrFetch(ctx, p.ID, string(domain.VariantPDF), func(ctx context.Context) ([]byte, error) {
			return e.fetcher.FetchFirst(ctx, urls, "pdf")
		})
		if err == nil {
			if text, err := content.TextFromPDF(raw); err == nil && text != "" {
				p.FullText = text
				return text
			}
		} else {
			e.logger.Debug("pdf representation unavailable",
				zap.String("protocol", p.Number), zap.Error(err))
		}
	}
	return ""
}

// textOf turns a fetched text-variant body into plain text. The mirror
// serves either raw text or an HTML page; markup is detected and
// stripped, anything else passes through.
func textOf(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "<") {
		return s
	}
	text, err := content.TextFromHTML(s)
	if err != nil {
		return ""
	}
	return text
}

func countByMethod(speeches []*domain.ExtractedSpeech) map[domain.ExtractionMethod]int {
	out := make(map[domain.ExtractionMethod]int)
	for _, sp := range speeches {
		out[sp.Metadata.Method]++
	}
	return out
}
