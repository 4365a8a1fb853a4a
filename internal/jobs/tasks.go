// Package jobs schedules and executes background survey tasks on asynq.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeCloseSurvey closes an active survey when its end date passes
const TypeCloseSurvey = "survey:close"

// Queue is the asynq queue survey tasks run on
const Queue = "surveys"

// CloseSurveyPayload is the JSON body of a survey:close task
type CloseSurveyPayload struct {
	SurveyID string `json:"survey_id"`
}

// NewCloseSurveyTask builds the task that closes surveyID
func NewCloseSurveyTask(surveyID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(CloseSurveyPayload{SurveyID: surveyID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCloseSurvey, payload), nil
}

// CloseTaskID is the deduplication id for a survey's close task
func CloseTaskID(surveyID uuid.UUID) string {
	return fmt.Sprintf("close-survey-%s", surveyID)
}
