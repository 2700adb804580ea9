package cache

import (
	"context"

	"github.com/nmkrspvl/interviewprep/internal/models"
)

// TranscriptCache serves completed transcripts without a datastore round
// trip. Implementations are best-effort: a miss and a failed write look the
// same to the interview flow, which always has the repository behind it.
type TranscriptCache interface {
	Get(ctx context.Context, sessionID string) (*models.InterviewTranscript, bool)
	Put(ctx context.Context, t *models.InterviewTranscript)
}

// Noop satisfies TranscriptCache when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.InterviewTranscript, bool) { return nil, false }
func (Noop) Put(context.Context, *models.InterviewTranscript)                {}
