package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Response represents one respondent's submission to a survey
type Response struct {
	ID             uuid.UUID         `json:"id"`
	SurveyID       uuid.UUID         `json:"surveyId"`
	RespondentID   *string           `json:"respondentId,omitempty"`
	VoterSession   *string           `json:"voterSession,omitempty"`
	Answers        map[string]Answer `json:"responses"`
	SubmittedAt    time.Time         `json:"submittedAt"`
	CompletionTime *int              `json:"completionTime,omitempty"`
	IsComplete     bool              `json:"isComplete"`
}

// AnswerKind identifies which value an Answer holds
type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerText
	AnswerList
	AnswerNumber
)

// Answer is the value captured for one question: a string (text, email,
// date, single-choice), a list of strings (multi-choice) or a number (rating).
// It encodes as the bare JSON value.
type Answer struct {
	kind   AnswerKind
	text   string
	list   []string
	number float64
}

// TextAnswer creates a string answer
func TextAnswer(s string) Answer {
	return Answer{kind: AnswerText, text: s}
}

// ListAnswer creates a multi-choice answer
func ListAnswer(values ...string) Answer {
	return Answer{kind: AnswerList, list: append([]string{}, values...)}
}

// NumberAnswer creates a numeric answer
func NumberAnswer(n float64) Answer {
	return Answer{kind: AnswerNumber, number: n}
}

// Kind returns the kind of value held
func (a Answer) Kind() AnswerKind { return a.kind }

// Text returns the string value
func (a Answer) Text() (string, bool) { return a.text, a.kind == AnswerText }

// List returns the multi-choice values
func (a Answer) List() ([]string, bool) { return a.list, a.kind == AnswerList }

// Number returns the numeric value
func (a Answer) Number() (float64, bool) { return a.number, a.kind == AnswerNumber }

// IsEmpty reports whether the answer counts as unanswered: no value,
// a blank string or an empty list.
func (a Answer) IsEmpty() bool {
	switch a.kind {
	case AnswerText:
		return strings.TrimSpace(a.text) == ""
	case AnswerList:
		return len(a.list) == 0
	case AnswerNumber:
		return false
	}
	return true
}

// String renders the answer for display and CSV export; lists are joined with "; "
func (a Answer) String() string {
	switch a.kind {
	case AnswerText:
		return a.text
	case AnswerList:
		return strings.Join(a.list, "; ")
	case AnswerNumber:
		return strconv.FormatFloat(a.number, 'f', -1, 64)
	}
	return ""
}

// Values returns the answer as a list of comparable strings
func (a Answer) Values() []string {
	switch a.kind {
	case AnswerList:
		return a.list
	case AnswerNone:
		return nil
	}
	return []string{a.String()}
}

func (a Answer) raw() interface{} {
	switch a.kind {
	case AnswerText:
		return a.text
	case AnswerList:
		return a.list
	case AnswerNumber:
		return a.number
	}
	return nil
}

// MarshalJSON encodes the bare value
func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw())
}

// UnmarshalJSON accepts a string, an array of strings, a number or null
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		*a = ListAnswer(list...)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer must be a string, list of strings or number: %w", err)
		}
		*a = NumberAnswer(n)
	}
	return nil
}

// MarshalBSONValue encodes the bare value for document stores
func (a Answer) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(a.raw())
}

// UnmarshalBSONValue decodes a string, array, number or null
func (a *Answer) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*a = Answer{}
	case bsontype.String:
		*a = TextAnswer(raw.StringValue())
	case bsontype.Array:
		var list []string
		if err := raw.Unmarshal(&list); err != nil {
			return err
		}
		*a = ListAnswer(list...)
	case bsontype.Double:
		*a = NumberAnswer(raw.Double())
	case bsontype.Int32:
		*a = NumberAnswer(float64(raw.Int32()))
	case bsontype.Int64:
		*a = NumberAnswer(float64(raw.Int64()))
	default:
		return fmt.Errorf("unsupported answer type %s", t)
	}
	return nil
}

// IsWholeNumber reports whether a numeric answer has no fractional part
func (a Answer) IsWholeNumber() bool {
	return a.kind == AnswerNumber && a.number == math.Trunc(a.number)
}

// ErrInvalidResponse is returned for responses that cannot be stored
var ErrInvalidResponse = errors.New("invalid response")

// Validate checks the fields every stored response must have
func (r *Response) Validate() error {
	if r.SurveyID == uuid.Nil {
		return fmt.Errorf("%w: survey id is required", ErrInvalidResponse)
	}
	if r.CompletionTime != nil && *r.CompletionTime < 0 {
		return fmt.Errorf("%w: completion time must not be negative", ErrInvalidResponse)
	}
	return nil
}

// GenerateVoterSession creates a SHA256 hash for anonymous respondent identification
// The hash is per-survey salted using surveyID + ip + userAgent
func GenerateVoterSession(surveyID uuid.UUID, ip string, userAgent string) string {
	data := fmt.Sprintf("%s:%s:%s", surveyID.String(), ip, userAgent)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Stats represents statistics about the survey service
type Stats struct {
	SurveyCount   int `json:"surveyCount"`
	ResponseCount int `json:"responseCount"`
}
