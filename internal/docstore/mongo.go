// Package docstore implements the survey Store on MongoDB.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/store"
)

const (
	surveysCollection   = "surveys"
	responsesCollection = "responses"

	// maxUpdateAttempts bounds compare-and-swap retries for unversioned patches
	maxUpdateAttempts = 5
)

type surveyDoc struct {
	ID            string              `bson:"_id"`
	Title         string              `bson:"title"`
	Description   string              `bson:"description"`
	CreatedBy     string              `bson:"createdBy"`
	CreatedAt     time.Time           `bson:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt"`
	Status        models.SurveyStatus `bson:"status"`
	Questions     []models.Question   `bson:"questions"`
	Settings      models.Settings     `bson:"settings"`
	ResponseCount int                 `bson:"responseCount"`
	Version       int                 `bson:"version"`
}

type responseDoc struct {
	ID             string                   `bson:"_id"`
	SurveyID       string                   `bson:"surveyId"`
	RespondentID   *string                  `bson:"respondentId,omitempty"`
	VoterSession   *string                  `bson:"voterSession,omitempty"`
	Answers        map[string]models.Answer `bson:"answers"`
	SubmittedAt    time.Time                `bson:"submittedAt"`
	CompletionTime *int                     `bson:"completionTime,omitempty"`
	IsComplete     bool                     `bson:"isComplete"`
}

func toSurveyDoc(s *models.Survey) surveyDoc {
	return surveyDoc{
		ID:            s.ID.String(),
		Title:         s.Title,
		Description:   s.Description,
		CreatedBy:     s.CreatedBy,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Status:        s.Status,
		Questions:     s.Questions,
		Settings:      s.Settings,
		ResponseCount: s.ResponseCount,
		Version:       s.Version,
	}
}

func (d surveyDoc) toModel() (*models.Survey, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid survey id %q: %w", d.ID, err)
	}
	questions := d.Questions
	if questions == nil {
		questions = []models.Question{}
	}
	return &models.Survey{
		ID:            id,
		Title:         d.Title,
		Description:   d.Description,
		CreatedBy:     d.CreatedBy,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		Status:        d.Status,
		Questions:     questions,
		Settings:      d.Settings,
		ResponseCount: d.ResponseCount,
		Version:       d.Version,
	}, nil
}

func toResponseDoc(r *models.Response) responseDoc {
	return responseDoc{
		ID:             r.ID.String(),
		SurveyID:       r.SurveyID.String(),
		RespondentID:   r.RespondentID,
		VoterSession:   r.VoterSession,
		Answers:        r.Answers,
		SubmittedAt:    r.SubmittedAt,
		CompletionTime: r.CompletionTime,
		IsComplete:     r.IsComplete,
	}
}

func (d responseDoc) toModel() (*models.Response, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid response id %q: %w", d.ID, err)
	}
	surveyID, err := uuid.Parse(d.SurveyID)
	if err != nil {
		return nil, fmt.Errorf("invalid survey id %q: %w", d.SurveyID, err)
	}
	return &models.Response{
		ID:             id,
		SurveyID:       surveyID,
		RespondentID:   d.RespondentID,
		VoterSession:   d.VoterSession,
		Answers:        d.Answers,
		SubmittedAt:    d.SubmittedAt,
		CompletionTime: d.CompletionTime,
		IsComplete:     d.IsComplete,
	}, nil
}

// Store persists surveys and responses in two MongoDB collections
type Store struct {
	client    *mongo.Client
	surveys   *mongo.Collection
	responses *mongo.Collection
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

// Connect opens a client for uri, verifies it with a ping and ensures indexes
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	s := New(client, database)
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// New creates a Store over an existing client
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:    client,
		surveys:   db.Collection(surveysCollection),
		responses: db.Collection(responsesCollection),
		// BSON dates carry millisecond precision
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// EnsureIndexes creates the indexes the list queries rely on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.surveys.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "updatedAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create survey index: %w", err)
	}
	_, err = s.responses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "submittedAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create response index: %w", err)
	}
	return nil
}

// Ping checks connectivity for health probes
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// CreateSurvey inserts a new survey document owned by ownerID
func (s *Store) CreateSurvey(ctx context.Context, draft *models.Survey, ownerID string) (*models.Survey, error) {
	survey := models.NewSurvey(draft, ownerID, s.now())
	if _, err := s.surveys.InsertOne(ctx, toSurveyDoc(survey)); err != nil {
		return nil, store.Wrap("create survey", err)
	}
	return survey, nil
}

// UpdateSurvey applies patch with a compare-and-swap on the version field.
// Without ExpectedVersion a lost race is retried against the fresh document.
func (s *Store) UpdateSurvey(ctx context.Context, id uuid.UUID, patch models.SurveyPatch) (*models.Survey, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		survey, err := s.GetSurvey(ctx, id)
		if err != nil {
			return nil, err
		}

		current := survey.Version
		if err := patch.Apply(survey, s.now()); err != nil {
			return nil, fmt.Errorf("update survey: %w", store.ConflictFromVersion(err))
		}

		res, err := s.surveys.ReplaceOne(ctx,
			bson.M{"_id": id.String(), "version": current},
			toSurveyDoc(survey))
		if err != nil {
			return nil, store.Wrap("update survey", err)
		}
		if res.MatchedCount == 1 {
			return survey, nil
		}
		if patch.ExpectedVersion != nil {
			return nil, fmt.Errorf("update survey: %w", store.ErrConflict)
		}
	}
	return nil, fmt.Errorf("update survey: %w", store.ErrConflict)
}

// GetSurvey returns the survey or store.ErrNotFound
func (s *Store) GetSurvey(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	var doc surveyDoc
	err := s.surveys.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("get survey: %w", store.ErrNotFound)
		}
		return nil, store.Wrap("get survey", err)
	}
	return doc.toModel()
}

// ListSurveys returns the owner's surveys, most recently updated first
func (s *Store) ListSurveys(ctx context.Context, ownerID string) ([]*models.Survey, error) {
	filter := bson.M{}
	if ownerID != "" {
		filter["createdBy"] = ownerID
	}

	cursor, err := s.surveys.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, store.Wrap("list surveys", err)
	}
	defer cursor.Close(ctx)

	var docs []surveyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, store.Wrap("list surveys", err)
	}

	surveys := make([]*models.Survey, 0, len(docs))
	for _, d := range docs {
		survey, err := d.toModel()
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, survey)
	}
	return surveys, nil
}

// DeleteSurvey removes the survey and then every response that references it
func (s *Store) DeleteSurvey(ctx context.Context, id uuid.UUID) error {
	res, err := s.surveys.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return store.Wrap("delete survey", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete survey: %w", store.ErrNotFound)
	}
	if _, err := s.responses.DeleteMany(ctx, bson.M{"surveyId": id.String()}); err != nil {
		return store.Wrap("delete survey responses", err)
	}
	return nil
}

// CreateResponse increments responseCount with $inc and inserts the response.
// A failed insert rolls the counter back.
func (s *Store) CreateResponse(ctx context.Context, r *models.Response) (*models.Response, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	resp := *r
	resp.ID = uuid.New()
	resp.SubmittedAt = s.now()

	surveyFilter := bson.M{"_id": resp.SurveyID.String()}
	res, err := s.surveys.UpdateOne(ctx, surveyFilter, bson.M{"$inc": bson.M{"responseCount": 1}})
	if err != nil {
		return nil, store.Wrap("create response", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("create response: %w", store.ErrNotFound)
	}

	if _, err := s.responses.InsertOne(ctx, toResponseDoc(&resp)); err != nil {
		s.surveys.UpdateOne(context.WithoutCancel(ctx), surveyFilter, bson.M{"$inc": bson.M{"responseCount": -1}})
		return nil, store.Wrap("create response", err)
	}
	return &resp, nil
}

// ListResponses returns a survey's responses, newest first
func (s *Store) ListResponses(ctx context.Context, surveyID uuid.UUID) ([]*models.Response, error) {
	n, err := s.surveys.CountDocuments(ctx, bson.M{"_id": surveyID.String()})
	if err != nil {
		return nil, store.Wrap("list responses", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("list responses: %w", store.ErrNotFound)
	}

	cursor, err := s.responses.Find(ctx,
		bson.M{"surveyId": surveyID.String()},
		options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}}))
	if err != nil {
		return nil, store.Wrap("list responses", err)
	}
	defer cursor.Close(ctx)

	var docs []responseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, store.Wrap("list responses", err)
	}

	responses := make([]*models.Response, 0, len(docs))
	for _, d := range docs {
		r, err := d.toModel()
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, nil
}
