package docstore

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/store/storetest"
)

func TestSurveyDocRoundTrip(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	limit := 50
	draft := storetest.Draft("Mongo")
	draft.Settings.SubmissionLimit = &limit
	survey := models.NewSurvey(draft, "owner", now)

	data, err := bson.Marshal(toSurveyDoc(survey))
	require.NoError(t, err)

	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	assert.Equal(t, survey.ID.String(), raw["_id"])
	assert.Equal(t, "draft", raw["status"])

	var doc surveyDoc
	require.NoError(t, bson.Unmarshal(data, &doc))
	decoded, err := doc.toModel()
	require.NoError(t, err)

	assert.Equal(t, survey.ID, decoded.ID)
	assert.Equal(t, survey.Questions, decoded.Questions)
	assert.Equal(t, survey.Settings, decoded.Settings)
	assert.True(t, survey.CreatedAt.Equal(decoded.CreatedAt))
}

func TestResponseDocRoundTrip(t *testing.T) {
	seconds := 30
	resp := &models.Response{
		ID:       uuid.New(),
		SurveyID: uuid.New(),
		Answers: map[string]models.Answer{
			"q1": models.TextAnswer("Blue"),
			"q2": models.ListAnswer("Mon", "Wed"),
			"q3": models.NumberAnswer(3),
		},
		SubmittedAt:    time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
		CompletionTime: &seconds,
		IsComplete:     true,
	}

	data, err := bson.Marshal(toResponseDoc(resp))
	require.NoError(t, err)

	var doc responseDoc
	require.NoError(t, bson.Unmarshal(data, &doc))
	decoded, err := doc.toModel()
	require.NoError(t, err)

	assert.Equal(t, resp.ID, decoded.ID)
	assert.Equal(t, resp.SurveyID, decoded.SurveyID)
	assert.Nil(t, decoded.RespondentID)
	assert.Equal(t, "Blue", decoded.Answers["q1"].String())
	assert.Equal(t, "Mon; Wed", decoded.Answers["q2"].String())
	assert.Equal(t, "3", decoded.Answers["q3"].String())
	assert.Equal(t, 30, *decoded.CompletionTime)
}

func TestSurveyDocInvalidID(t *testing.T) {
	_, err := surveyDoc{ID: "not-a-uuid"}.toModel()
	assert.Error(t, err)
}
