package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nmkrspvl/interviewprep/internal/models"
	"github.com/nmkrspvl/interviewprep/internal/utils"
)

// ListFilter narrows ListByUser. A zero Limit defaults to 20.
type ListFilter struct {
	Status string
	Limit  int
}

type TranscriptRepository interface {
	Create(ctx context.Context, t *models.InterviewTranscript) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewTranscript, error)
	// Replace persists the full document (read-modify-write, last writer
	// wins at the store; callers serialize per session).
	Replace(ctx context.Context, t *models.InterviewTranscript) error
	ListByUser(ctx context.Context, userID string, f ListFilter) ([]models.InterviewTranscript, error)
}

type transcriptRepo struct {
	col *mongo.Collection
}

func NewTranscriptRepo(db *mongo.Database) TranscriptRepository {
	return &transcriptRepo{col: db.Collection("interview_transcripts")}
}

func (r *transcriptRepo) Create(ctx context.Context, t *models.InterviewTranscript) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *transcriptRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewTranscript, error) {
	var t models.InterviewTranscript
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transcriptRepo) Replace(ctx context.Context, t *models.InterviewTranscript) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"session_id": t.SessionID}, t)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *transcriptRepo) ListByUser(ctx context.Context, userID string, f ListFilter) ([]models.InterviewTranscript, error) {
	filter := bson.M{"user_id": userID}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		// Q/A detail is heavy and unneeded in list views.
		SetProjection(bson.M{"questions_and_answers": 0})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.InterviewTranscript
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
