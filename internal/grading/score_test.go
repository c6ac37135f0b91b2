package grading

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

func TestGradeBreakpoints(t *testing.T) {
	cases := []struct {
		total float64
		max   float64
		grade string
	}{
		{100, 100, "A"},
		{90, 100, "A"},
		{89.99, 100, "B"},
		{80, 100, "B"},
		{79.5, 100, "C"},
		{7, 10, "C"},
		{70, 100, "C"},
		{69.99, 100, "D"},
		{60, 100, "D"},
		{59.99, 100, "F"},
		{0, 100, "F"},
		{9, 10, "A"},
		{4.5, 5, "A"},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v/%v", tc.total, tc.max), func(t *testing.T) {
			require.Equal(t, tc.grade, Grade(tc.total, tc.max))
		})
	}
}

func TestGradeZeroMaxIsF(t *testing.T) {
	for _, total := range []float64{0, 1, 50, 1000} {
		require.Equal(t, "F", Grade(total, 0))
	}
	require.Zero(t, Percentage(10, 0))
}

func TestGradeIsMonotonic(t *testing.T) {
	rank := map[string]int{"A": 4, "B": 3, "C": 2, "D": 1, "F": 0}
	previous := rank[Grade(100, 100)]
	for total := 100.0; total >= 0; total -= 0.5 {
		current := rank[Grade(total, 100)]
		require.LessOrEqual(t, current, previous, "grade increased at %v", total)
		previous = current
	}
}

func TestNormalizeClampsAndRecomputesTotal(t *testing.T) {
	structure := models.Structure{
		{QuestionNumber: "1", MaxMarks: 5},
		{QuestionNumber: "2", MaxMarks: 5},
		{QuestionNumber: "3", MaxMarks: 2},
	}

	outcome, err := Normalize(structure, Outcome{
		TotalScore: 42,
		Remarks:    "ok",
		Results: []models.QuestionResult{
			{Score: 7},
			{Score: -1},
			{Score: 1.5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 6.5, outcome.TotalScore)
	require.Equal(t, 5.0, outcome.Results[0].Score)
	require.Equal(t, 0.0, outcome.Results[1].Score)
	require.Equal(t, "3", outcome.Results[2].QuestionNumber)
	require.Equal(t, 2.0, outcome.Results[2].MaxMarks)
}

func TestNormalizeRejectsLengthMismatch(t *testing.T) {
	structure := models.Structure{{QuestionNumber: "1", MaxMarks: 5}, {QuestionNumber: "2", MaxMarks: 5}}

	_, err := Normalize(structure, Outcome{Results: []models.QuestionResult{{Score: 1}}})
	require.Error(t, err)
}

func TestBuildResultScenario(t *testing.T) {
	structure := models.Structure{{QuestionNumber: "1", MaxMarks: 5}, {QuestionNumber: "2", MaxMarks: 5}}
	outcome, err := Normalize(structure, Outcome{
		TotalScore: 7,
		Results:    []models.QuestionResult{{Score: 4}, {Score: 3}},
	})
	require.NoError(t, err)

	result := BuildResult(structure, outcome)
	require.Equal(t, 7.0, result.TotalMarks)
	require.Equal(t, 10.0, result.MaxMarks)
	require.Equal(t, 70.0, result.Percentage)
	require.Equal(t, "C", result.Grade)
	require.Len(t, result.DetailedResults, len(structure))
}

func TestAlignAnswersPadsMissingQuestions(t *testing.T) {
	structure := models.Structure{
		{QuestionNumber: "1", MaxMarks: 2},
		{QuestionNumber: "2", MaxMarks: 2},
		{QuestionNumber: "3", MaxMarks: 2},
	}

	aligned := AlignAnswers(structure, CandidateAnswers{
		{QuestionNumber: "Q3", Answer: "photosynthesis"},
		{QuestionNumber: "1.", Answer: "42"},
	})
	require.Len(t, aligned, 3)
	require.Equal(t, "42", aligned[0].Answer)
	require.False(t, aligned[0].Missing)
	require.Equal(t, "2", aligned[1].QuestionNumber)
	require.True(t, aligned[1].Missing)
	require.Equal(t, "photosynthesis", aligned[2].Answer)
}

func TestAlignKey(t *testing.T) {
	structure := models.Structure{{QuestionNumber: "1", MaxMarks: 3}, {QuestionNumber: "2", MaxMarks: 4}}

	key, err := AlignKey(structure, AnswerKey{
		{QuestionNumber: "2", ExpectedAnswer: "b"},
		{QuestionNumber: "1", ExpectedAnswer: "a"},
	})
	require.NoError(t, err)
	require.Equal(t, "a", key[0].ExpectedAnswer)
	require.Equal(t, 4.0, key[1].MaxMarks)

	_, err = AlignKey(structure, AnswerKey{{QuestionNumber: "1", ExpectedAnswer: "a"}})
	require.Error(t, err)
}

func TestStageErrorClassification(t *testing.T) {
	cause := errors.New("model timeout")

	keyErr := NewStageError(StageKey, cause)
	require.ErrorIs(t, keyErr, ErrExtractionFailed)
	require.ErrorIs(t, keyErr, cause)
	require.NotErrorIs(t, keyErr, ErrGradingFailed)

	gradeErr := fmt.Errorf("submission: %w", NewStageError(StageGrade, cause))
	require.ErrorIs(t, gradeErr, ErrGradingFailed)

	var stageErr *StageError
	require.ErrorAs(t, gradeErr, &stageErr)
	require.Equal(t, StageGrade, stageErr.Stage)
	require.Contains(t, stageErr.Error(), "model timeout")
}
