// Package sink persists extracted speeches. The engine works against
// the SpeechSaver interface; file, Postgres and Mongo implementations
// are selected by job configuration.
package sink

import (
	"context"

	"protocol-extractor/pkg/domain"
)

// SpeechSaver stores the speeches of one finished protocol. Saves are
// idempotent: re-running a protocol overwrites its earlier speeches
// rather than duplicating them.
type SpeechSaver interface {
	SaveSpeeches(ctx context.Context, p *domain.Protocol, speeches []*domain.ExtractedSpeech) error
	Close(ctx context.Context) error
}
