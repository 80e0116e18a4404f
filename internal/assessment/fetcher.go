package assessment

import (
	"context"

	"github.com/suPer8Hu/assessment-client/internal/logger"
)

type ProgressResult struct {
	Snapshot       ProgressSnapshot
	SymptomSummary any
	Source         string
}

// ProgressFetcher resolves a session's progress through a fallback chain.
// Retries beyond the chain are the caller's business.
type ProgressFetcher struct {
	t     Transport
	chain Chain
	log   *logger.Logger
}

func NewProgressFetcher(t Transport, log *logger.Logger) *ProgressFetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &ProgressFetcher{t: t, chain: DefaultProgressChain, log: log.With("service", "ProgressFetcher")}
}

// WithChain swaps the source chain, mostly for tests and backend migrations.
func (f *ProgressFetcher) WithChain(c Chain) *ProgressFetcher {
	f.chain = c
	return f
}

// Fetch returns nil, nil when no source has progress for the session yet.
func (f *ProgressFetcher) Fetch(ctx context.Context, sessionID string) (*ProgressResult, error) {
	raw, source, err := f.chain.Run(ctx, f.t, sessionID, nil)
	if err != nil {
		f.log.Warn("progress fetch failed", "session_id", sessionID, "source", source, "error", err)
		return nil, err
	}
	if raw == nil {
		f.log.Debug("no progress yet", "session_id", sessionID, "source", source)
		return nil, nil
	}
	return &ProgressResult{
		Snapshot:       snapshotFromEnvelope(raw),
		SymptomSummary: raw["symptom_summary"],
		Source:         source,
	}, nil
}
