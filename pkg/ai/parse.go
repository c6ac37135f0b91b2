package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/models"
)

// questionNumber accepts both "3" and 3 from a model reply.
type questionNumber string

func (q *questionNumber) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*q = questionNumber(strings.TrimSpace(text))
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("question number must be a string or integer: %w", err)
	}
	*q = questionNumber(number.String())
	return nil
}

func parseStructure(content string) (models.Structure, error) {
	data, err := validateJSON(structureSchema, content)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Questions []struct {
			QuestionNumber questionNumber `json:"question_number"`
			MaxMarks       float64        `json:"max_marks"`
			Text           string         `json:"text"`
			Type           string         `json:"type"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode structure: %w", err)
	}

	structure := make(models.Structure, 0, len(payload.Questions))
	for i, q := range payload.Questions {
		number := string(q.QuestionNumber)
		if number == "" {
			number = strconv.Itoa(i + 1)
		}
		structure = append(structure, models.QuestionDescriptor{
			QuestionNumber: number,
			MaxMarks:       q.MaxMarks,
			Text:           strings.TrimSpace(q.Text),
			Type:           strings.TrimSpace(q.Type),
		})
	}

	return structure, nil
}

func parseKey(content string) (grading.AnswerKey, error) {
	data, err := validateJSON(keySchema, content)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Answers []struct {
			QuestionNumber questionNumber `json:"question_number"`
			ExpectedAnswer string         `json:"expected_answer"`
			Rubric         string         `json:"rubric"`
		} `json:"answers"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode answer key: %w", err)
	}

	key := make(grading.AnswerKey, 0, len(payload.Answers))
	for _, a := range payload.Answers {
		key = append(key, grading.KeyEntry{
			QuestionNumber: string(a.QuestionNumber),
			ExpectedAnswer: a.ExpectedAnswer,
			Rubric:         a.Rubric,
		})
	}

	return key, nil
}

func parseAnswers(content string) (grading.CandidateAnswers, error) {
	data, err := validateJSON(answersSchema, content)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Answers []struct {
			QuestionNumber questionNumber `json:"question_number"`
			Answer         string         `json:"answer"`
		} `json:"answers"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}

	answers := make(grading.CandidateAnswers, 0, len(payload.Answers))
	for _, a := range payload.Answers {
		answers = append(answers, grading.CandidateAnswer{
			QuestionNumber: string(a.QuestionNumber),
			Answer:         a.Answer,
			Missing:        strings.TrimSpace(a.Answer) == "",
		})
	}

	return answers, nil
}

// parseOutcome decodes a grading reply and orders results to match the key.
func parseOutcome(content string, answers grading.CandidateAnswers, key grading.AnswerKey) (grading.Outcome, error) {
	data, err := validateJSON(gradeSchema, content)
	if err != nil {
		return grading.Outcome{}, err
	}

	var payload struct {
		TotalScore float64 `json:"total_score"`
		Remarks    string  `json:"remarks"`
		Results    []struct {
			QuestionNumber questionNumber `json:"question_number"`
			Score          float64        `json:"score"`
			Feedback       string         `json:"feedback"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return grading.Outcome{}, fmt.Errorf("decode grading result: %w", err)
	}

	type scored struct {
		score    float64
		feedback string
	}
	byNumber := make(map[string]scored, len(payload.Results))
	for _, r := range payload.Results {
		byNumber[string(r.QuestionNumber)] = scored{score: r.Score, feedback: r.Feedback}
	}

	answerByNumber := make(map[string]string, len(answers))
	for _, a := range answers {
		answerByNumber[a.QuestionNumber] = a.Answer
	}

	results := make([]models.QuestionResult, 0, len(key))
	for i, entry := range key {
		r, ok := byNumber[entry.QuestionNumber]
		if !ok {
			if len(payload.Results) != len(key) {
				return grading.Outcome{}, fmt.Errorf("grading result has no score for question %s", entry.QuestionNumber)
			}
			r = scored{score: payload.Results[i].Score, feedback: payload.Results[i].Feedback}
		}
		results = append(results, models.QuestionResult{
			QuestionNumber: entry.QuestionNumber,
			Score:          r.score,
			MaxMarks:       entry.MaxMarks,
			Feedback:       r.feedback,
			StudentAnswer:  answerByNumber[entry.QuestionNumber],
			ExpectedAnswer: entry.ExpectedAnswer,
		})
	}

	return grading.Outcome{
		TotalScore: payload.TotalScore,
		Remarks:    payload.Remarks,
		Results:    results,
	}, nil
}
