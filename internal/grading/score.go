package grading

import (
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

// Percentage returns total as a percentage of maxMarks, or 0 when maxMarks is 0.
func Percentage(total, maxMarks float64) float64 {
	if maxMarks <= 0 {
		return 0
	}
	return total * 100 / maxMarks
}

// Grade maps a score onto the letter scale A (>=90), B (>=80), C (>=70), D (>=60), F.
func Grade(total, maxMarks float64) string {
	if maxMarks == 0 {
		return "F"
	}
	percentage := Percentage(total, maxMarks)
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// AlignKey checks that key covers every question of structure and returns it in structure order.
func AlignKey(structure models.Structure, key AnswerKey) (AnswerKey, error) {
	byNumber := make(map[string]KeyEntry, len(key))
	for _, entry := range key {
		byNumber[normalizeNumber(entry.QuestionNumber)] = entry
	}

	aligned := make(AnswerKey, 0, len(structure))
	for i, question := range structure {
		entry, ok := byNumber[normalizeNumber(question.QuestionNumber)]
		if !ok {
			if len(key) != len(structure) {
				return nil, fmt.Errorf("answer key has no entry for question %s", question.QuestionNumber)
			}
			entry = key[i]
		}
		entry.QuestionNumber = question.QuestionNumber
		entry.MaxMarks = question.MaxMarks
		aligned = append(aligned, entry)
	}

	return aligned, nil
}

// AlignAnswers returns one answer per question in structure order; questions
// the extractor skipped are kept as explicit missing answers.
func AlignAnswers(structure models.Structure, answers CandidateAnswers) CandidateAnswers {
	byNumber := make(map[string]CandidateAnswer, len(answers))
	for _, answer := range answers {
		byNumber[normalizeNumber(answer.QuestionNumber)] = answer
	}

	aligned := make(CandidateAnswers, 0, len(structure))
	for _, question := range structure {
		answer, ok := byNumber[normalizeNumber(question.QuestionNumber)]
		if !ok {
			answer = CandidateAnswer{Missing: true}
		}
		answer.QuestionNumber = question.QuestionNumber
		if strings.TrimSpace(answer.Answer) == "" {
			answer.Missing = true
		}
		aligned = append(aligned, answer)
	}

	return aligned
}

// Normalize enforces the outcome contract against structure: one result per
// question, scores clamped to [0, max marks], total equal to the sum of scores.
func Normalize(structure models.Structure, outcome Outcome) (Outcome, error) {
	if len(outcome.Results) != len(structure) {
		return Outcome{}, fmt.Errorf("grader returned %d results for %d questions", len(outcome.Results), len(structure))
	}

	results := make([]models.QuestionResult, len(structure))
	var total float64
	for i, question := range structure {
		result := outcome.Results[i]
		result.QuestionNumber = question.QuestionNumber
		result.MaxMarks = question.MaxMarks
		if math.IsNaN(result.Score) || result.Score < 0 {
			result.Score = 0
		}
		if result.Score > question.MaxMarks {
			result.Score = question.MaxMarks
		}
		total += result.Score
		results[i] = result
	}

	return Outcome{
		TotalScore: total,
		Remarks:    outcome.Remarks,
		Results:    results,
	}, nil
}

// BuildResult derives the persisted result from a normalized outcome.
func BuildResult(structure models.Structure, outcome Outcome) models.Result {
	maxMarks := structure.MaxMarks()
	return models.Result{
		TotalMarks:      outcome.TotalScore,
		MaxMarks:        maxMarks,
		Percentage:      math.Round(Percentage(outcome.TotalScore, maxMarks)*100) / 100,
		Grade:           Grade(outcome.TotalScore, maxMarks),
		Feedback:        outcome.Remarks,
		DetailedResults: outcome.Results,
	}
}

func normalizeNumber(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "question")
	value = strings.TrimPrefix(value, "q")
	return strings.Trim(strings.TrimSpace(value), ".)")
}
