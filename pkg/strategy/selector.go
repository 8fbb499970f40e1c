package strategy

import (
	"fmt"

	"go.uber.org/zap"

	"protocol-extractor/pkg/domain"
)

// State tracks the selector's progress through the fidelity tiers for
// one protocol.
type State string

const (
	StatePending             State = "PENDING"
	StateStructuredAttempted State = "STRUCTURED_ATTEMPTED"
	StatePatternAttempted    State = "PATTERN_ATTEMPTED"
	StatePageAttempted       State = "PAGE_ATTEMPTED"
	StateDone                State = "DONE"
)

var stateAfter = map[domain.ExtractionMethod]State{
	domain.MethodStructured: StateStructuredAttempted,
	domain.MethodPattern:    StatePatternAttempted,
	domain.MethodPage:       StatePageAttempted,
}

// Selector runs the strategies in fixed fidelity order against the
// still-unresolved stub set. The order is a system invariant, not a
// policy knob: structured, then pattern, then page. Its contract is
// exactly one ExtractedSpeech per SpeechStub, no duplicates, no gaps.
type Selector struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewSelector builds the selector with the canonical strategy order.
func NewSelector(logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		strategies: []Strategy{NewStructured(), NewPattern(), NewPage()},
		logger:     logger,
	}
}

// Run resolves every stub through the strategy tiers. Stubs no tier can
// resolve are emitted with method=failed so every stub ends in exactly
// one terminal labeled state. Output is ordered by stub sequence index.
func (s *Selector) Run(in *Input, stubs []domain.SpeechStub) ([]*domain.ExtractedSpeech, State, error) {
	state := StatePending
	pending := make([]domain.SpeechStub, len(stubs))
	copy(pending, stubs)

	resolved := make(map[int64]*domain.ExtractedSpeech, len(stubs))
	for _, st := range s.strategies {
		if len(pending) == 0 {
			break
		}
		if !st.Applicable(in, pending) {
			state = stateAfter[st.Name()]
			continue
		}

		results := st.Extract(in, pending)
		state = stateAfter[st.Name()]

		accepted := 0
		for _, sp := range results {
			if _, dup := resolved[sp.ID]; dup {
				return nil, state, fmt.Errorf("strategy %s produced duplicate speech %d", st.Name(), sp.ID)
			}
			if err := sp.Metadata.Validate(); err != nil {
				return nil, state, fmt.Errorf("strategy %s: %w", st.Name(), err)
			}
			resolved[sp.ID] = sp
			accepted++
		}
		s.logger.Debug("strategy tier finished",
			zap.String("strategy", string(st.Name())),
			zap.Int("resolved", accepted),
			zap.Int("pending_before", len(pending)))

		pending = unresolvedOf(pending, resolved)
	}

	for _, stub := range pending {
		sp := newSpeech(in, stub, domain.FailedMetadata("no strategy could resolve this speech"))
		resolved[sp.ID] = sp
	}
	state = StateDone

	out := make([]*domain.ExtractedSpeech, 0, len(stubs))
	for _, stub := range stubs {
		sp, ok := resolved[stub.ID]
		if !ok {
			// Unreachable unless stub IDs collide; collide means the
			// single-writer contract is already broken upstream.
			return nil, state, fmt.Errorf("stub %d has no speech", stub.ID)
		}
		out = append(out, sp)
	}
	return out, state, nil
}

func unresolvedOf(pending []domain.SpeechStub, resolved map[int64]*domain.ExtractedSpeech) []domain.SpeechStub {
	var out []domain.SpeechStub
	for _, stub := range pending {
		if _, ok := resolved[stub.ID]; !ok {
			out = append(out, stub)
		}
	}
	return out
}
