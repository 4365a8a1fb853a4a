// Package storetest holds a conformance suite every store.Store backend must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/store"
)

// Factory returns an empty store for one subtest
type Factory func(t *testing.T) store.Store

// Draft returns a valid unsaved survey with three questions
func Draft(title string) *models.Survey {
	return &models.Survey{
		Title:       title,
		Description: "Quarterly check-in",
		Settings:    models.DefaultSettings(),
		Questions: []models.Question{
			{ID: "q1", Type: models.QuestionTypeSingleChoice, Text: "Favorite color?", Required: true, Options: []string{"Red", "Blue"}, Order: 0},
			{ID: "q2", Type: models.QuestionTypeRating, Text: "Rate us", Scale: &models.Scale{Min: 1, Max: 5}, Order: 1},
			{ID: "q3", Type: models.QuestionTypeShortText, Text: "Comments", Order: 2},
		},
	}
}

// Run executes the conformance suite against stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGetSurvey", func(t *testing.T) { testCreateAndGetSurvey(t, newStore(t)) })
	t.Run("GetSurveyNotFound", func(t *testing.T) { testGetSurveyNotFound(t, newStore(t)) })
	t.Run("UpdateSurvey", func(t *testing.T) { testUpdateSurvey(t, newStore(t)) })
	t.Run("UpdateSurveyVersionConflict", func(t *testing.T) { testUpdateSurveyVersionConflict(t, newStore(t)) })
	t.Run("UpdateSurveyNotFound", func(t *testing.T) { testUpdateSurveyNotFound(t, newStore(t)) })
	t.Run("ListSurveysOrderAndOwner", func(t *testing.T) { testListSurveys(t, newStore(t)) })
	t.Run("CreateResponseIncrementsCount", func(t *testing.T) { testCreateResponse(t, newStore(t)) })
	t.Run("CreateResponseUnknownSurvey", func(t *testing.T) { testCreateResponseUnknownSurvey(t, newStore(t)) })
	t.Run("ConcurrentResponsesAreCounted", func(t *testing.T) { testConcurrentResponses(t, newStore(t)) })
	t.Run("ListResponsesOrder", func(t *testing.T) { testListResponsesOrder(t, newStore(t)) })
	t.Run("DeleteSurveyCascades", func(t *testing.T) { testDeleteSurvey(t, newStore(t)) })
}

func testCreateAndGetSurvey(t *testing.T, s store.Store) {
	ctx := context.Background()

	created, err := s.CreateSurvey(ctx, Draft("Team Feedback"), "owner-1")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, models.StatusDraft, created.Status)
	assert.Equal(t, 0, created.ResponseCount)
	assert.Equal(t, "owner-1", created.CreatedBy)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, 1, created.Version)

	loaded, err := s.GetSurvey(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, created.Title, loaded.Title)
	assert.Equal(t, created.Description, loaded.Description)
	assert.Equal(t, created.Questions, loaded.Questions)
	assert.Equal(t, created.Settings, loaded.Settings)
	assert.Equal(t, created.Status, loaded.Status)
	assert.Equal(t, created.Version, loaded.Version)
	assert.WithinDuration(t, created.UpdatedAt, loaded.UpdatedAt, time.Millisecond)
	for i, q := range loaded.Questions {
		assert.Equal(t, i, q.Order)
	}
}

func testGetSurveyNotFound(t *testing.T, s store.Store) {
	_, err := s.GetSurvey(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUpdateSurvey(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.CreateSurvey(ctx, Draft("Before"), "owner-1")
	require.NoError(t, err)

	title := "After"
	status := models.StatusActive
	questions := created.Questions[1:]
	updated, err := s.UpdateSurvey(ctx, created.ID, models.SurveyPatch{Title: &title, Status: &status, Questions: questions})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, models.StatusActive, updated.Status)
	assert.Equal(t, 2, updated.Version)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	require.Len(t, updated.Questions, 2)
	assert.Equal(t, "q2", updated.Questions[0].ID)
	assert.Equal(t, 0, updated.Questions[0].Order)

	loaded, err := s.GetSurvey(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", loaded.Title)
	assert.Equal(t, "Quarterly check-in", loaded.Description)
	assert.Equal(t, 0, loaded.ResponseCount)
}

func testUpdateSurveyVersionConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.CreateSurvey(ctx, Draft("Shared"), "owner-1")
	require.NoError(t, err)

	first, second := "Editor A", "Editor B"
	version := created.Version
	_, err = s.UpdateSurvey(ctx, created.ID, models.SurveyPatch{Title: &first, ExpectedVersion: &version})
	require.NoError(t, err)

	_, err = s.UpdateSurvey(ctx, created.ID, models.SurveyPatch{Title: &second, ExpectedVersion: &version})
	assert.ErrorIs(t, err, store.ErrConflict)

	loaded, err := s.GetSurvey(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Editor A", loaded.Title)
}

func testUpdateSurveyNotFound(t *testing.T, s store.Store) {
	title := "x"
	_, err := s.UpdateSurvey(context.Background(), uuid.New(), models.SurveyPatch{Title: &title})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testListSurveys(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, err := s.CreateSurvey(ctx, Draft("A"), "alice")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	b, err := s.CreateSurvey(ctx, Draft("B"), "bob")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	c, err := s.CreateSurvey(ctx, Draft("C"), "alice")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// Touch A so it becomes the most recently updated
	title := "A2"
	_, err = s.UpdateSurvey(ctx, a.ID, models.SurveyPatch{Title: &title})
	require.NoError(t, err)

	all, err := s.ListSurveys(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{a.ID, c.ID, b.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	alice, err := s.ListSurveys(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, a.ID, alice[0].ID)
	assert.Equal(t, c.ID, alice[1].ID)

	none, err := s.ListSurveys(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCreateResponse(t *testing.T, s store.Store) {
	ctx := context.Background()
	survey, err := s.CreateSurvey(ctx, Draft("Counted"), "owner-1")
	require.NoError(t, err)

	seconds := 42
	saved, err := s.CreateResponse(ctx, &models.Response{
		SurveyID: survey.ID,
		Answers: map[string]models.Answer{
			"q1": models.TextAnswer("Red"),
			"q2": models.NumberAnswer(4),
		},
		CompletionTime: &seconds,
		IsComplete:     true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.False(t, saved.SubmittedAt.IsZero())

	loaded, err := s.GetSurvey(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.ResponseCount)

	responses, err := s.ListResponses(ctx, survey.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, saved.ID, responses[0].ID)
	assert.Equal(t, "Red", responses[0].Answers["q1"].String())
	n, ok := responses[0].Answers["q2"].Number()
	require.True(t, ok)
	assert.Equal(t, 4.0, n)
	require.NotNil(t, responses[0].CompletionTime)
	assert.Equal(t, 42, *responses[0].CompletionTime)
	assert.True(t, responses[0].IsComplete)
}

func testCreateResponseUnknownSurvey(t *testing.T, s store.Store) {
	_, err := s.CreateResponse(context.Background(), &models.Response{SurveyID: uuid.New(), IsComplete: true})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentResponses(t *testing.T, s store.Store) {
	ctx := context.Background()
	survey, err := s.CreateSurvey(ctx, Draft("Busy"), "owner-1")
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateResponse(ctx, &models.Response{
				SurveyID:   survey.ID,
				Answers:    map[string]models.Answer{"q1": models.TextAnswer("Blue")},
				IsComplete: true,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	loaded, err := s.GetSurvey(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, n, loaded.ResponseCount)

	responses, err := s.ListResponses(ctx, survey.ID)
	require.NoError(t, err)
	assert.Len(t, responses, n)
}

func testListResponsesOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	survey, err := s.CreateSurvey(ctx, Draft("Ordered"), "owner-1")
	require.NoError(t, err)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		r, err := s.CreateResponse(ctx, &models.Response{SurveyID: survey.ID, IsComplete: true})
		require.NoError(t, err)
		ids = append(ids, r.ID)
		time.Sleep(5 * time.Millisecond)
	}

	responses, err := s.ListResponses(ctx, survey.ID)
	require.NoError(t, err)
	require.Len(t, responses, 3)
	assert.Equal(t, ids[2], responses[0].ID)
	assert.Equal(t, ids[1], responses[1].ID)
	assert.Equal(t, ids[0], responses[2].ID)

	_, err = s.ListResponses(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDeleteSurvey(t *testing.T, s store.Store) {
	ctx := context.Background()
	doomed, err := s.CreateSurvey(ctx, Draft("Doomed"), "owner-1")
	require.NoError(t, err)
	kept, err := s.CreateSurvey(ctx, Draft("Kept"), "owner-1")
	require.NoError(t, err)

	for _, id := range []uuid.UUID{doomed.ID, kept.ID} {
		_, err := s.CreateResponse(ctx, &models.Response{SurveyID: id, IsComplete: true})
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteSurvey(ctx, doomed.ID))

	_, err = s.GetSurvey(ctx, doomed.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ListResponses(ctx, doomed.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	responses, err := s.ListResponses(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, responses, 1)

	assert.ErrorIs(t, s.DeleteSurvey(ctx, doomed.ID), store.ErrNotFound)
}
