package pipeline

import (
	"context"

	"github.com/brisly/deals-bot/internal/models"
)

// Announcer abstracts the outbound messaging channel.
type Announcer interface {
	Publish(ctx context.Context, deal models.Deal, score models.ScoreResult) (messageID string, err error)
	PublishText(ctx context.Context, text string) (messageID string, err error)
}

// AdmissionGate abstracts deduplication and cap enforcement.
type AdmissionGate interface {
	Admit(ctx context.Context, deal models.Deal) (models.Admission, error)
	RecordPublished(ctx context.Context, deal models.Deal, score models.ScoreResult, messageID string) error
	PublishedToday(ctx context.Context) (int64, error)
}

// Scorer abstracts score computation.
type Scorer interface {
	Score(deal models.Deal) models.ScoreResult
}
