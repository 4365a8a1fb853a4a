package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestGenerateVoterSession(t *testing.T) {
	surveyID := uuid.New()
	ip := "192.168.1.1"
	userAgent := "Mozilla/5.0"

	session := GenerateVoterSession(surveyID, ip, userAgent)

	// Should be a 64-character hex string (SHA256)
	assert.Len(t, session, 64)

	// Same inputs should produce same hash
	assert.Equal(t, session, GenerateVoterSession(surveyID, ip, userAgent))

	// Different survey ID should produce different hash
	assert.NotEqual(t, session, GenerateVoterSession(uuid.New(), ip, userAgent))

	// Different IP should produce different hash
	assert.NotEqual(t, session, GenerateVoterSession(surveyID, "192.168.1.2", userAgent))

	// Different user agent should produce different hash
	assert.NotEqual(t, session, GenerateVoterSession(surveyID, ip, "Chrome/90.0"))
}

func TestAnswerJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		kind AnswerKind
		str  string
	}{
		{"string", `"hello"`, AnswerText, "hello"},
		{"list", `["Red","Blue"]`, AnswerList, "Red; Blue"},
		{"integer", `4`, AnswerNumber, "4"},
		{"float", `3.5`, AnswerNumber, "3.5"},
		{"null", `null`, AnswerNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Answer
			require.NoError(t, json.Unmarshal([]byte(tt.json), &a))
			assert.Equal(t, tt.kind, a.Kind())
			assert.Equal(t, tt.str, a.String())

			out, err := json.Marshal(a)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(out))
		})
	}
}

func TestAnswerJSON_RejectsObjects(t *testing.T) {
	var a Answer
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &a))
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &a))
}

func TestAnswerIsEmpty(t *testing.T) {
	assert.True(t, Answer{}.IsEmpty())
	assert.True(t, TextAnswer("   ").IsEmpty())
	assert.True(t, ListAnswer().IsEmpty())
	assert.False(t, TextAnswer("x").IsEmpty())
	assert.False(t, ListAnswer("a").IsEmpty())
	assert.False(t, NumberAnswer(0).IsEmpty())
}

func TestAnswerIsWholeNumber(t *testing.T) {
	assert.True(t, NumberAnswer(3).IsWholeNumber())
	assert.False(t, NumberAnswer(3.2).IsWholeNumber())
	assert.False(t, TextAnswer("3").IsWholeNumber())
}

func TestResponseJSON(t *testing.T) {
	completion := 42
	respondent := "did:plc:abc"
	r := Response{
		ID:           uuid.New(),
		SurveyID:     uuid.New(),
		RespondentID: &respondent,
		Answers: map[string]Answer{
			"q1": TextAnswer("Red"),
			"q2": ListAnswer("Mon", "Tue"),
			"q3": NumberAnswer(5),
		},
		SubmittedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		CompletionTime: &completion,
		IsComplete:     true,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"responses":{`)
	assert.Contains(t, string(data), `"q2":["Mon","Tue"]`)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.Equal(t, "Red", decoded.Answers["q1"].String())
	list, ok := decoded.Answers["q2"].List()
	require.True(t, ok)
	assert.Equal(t, []string{"Mon", "Tue"}, list)
	n, ok := decoded.Answers["q3"].Number()
	require.True(t, ok)
	assert.Equal(t, 5.0, n)
	assert.Equal(t, 42, *decoded.CompletionTime)
}

func TestAnswerBSON(t *testing.T) {
	doc := struct {
		Answers map[string]Answer `bson:"answers"`
	}{
		Answers: map[string]Answer{
			"q1": TextAnswer("hello"),
			"q2": ListAnswer("a", "b"),
			"q3": NumberAnswer(4),
		},
	}

	data, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded struct {
		Answers map[string]Answer `bson:"answers"`
	}
	require.NoError(t, bson.Unmarshal(data, &decoded))
	assert.Equal(t, "hello", decoded.Answers["q1"].String())
	assert.Equal(t, AnswerList, decoded.Answers["q2"].Kind())
	assert.Equal(t, "a; b", decoded.Answers["q2"].String())
	assert.Equal(t, "4", decoded.Answers["q3"].String())
}

func TestResponseValidate(t *testing.T) {
	r := &Response{}
	assert.ErrorIs(t, r.Validate(), ErrInvalidResponse)

	negative := -1
	r = &Response{SurveyID: uuid.New(), CompletionTime: &negative}
	assert.ErrorIs(t, r.Validate(), ErrInvalidResponse)

	r = &Response{SurveyID: uuid.New()}
	assert.NoError(t, r.Validate())
}
