package ai

import (
	"encoding/json"
	"strings"

	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/models"
)

const structureInstruction = "You read exam question papers. Return a JSON object " +
	`{"questions":[{"question_number":"1","max_marks":5,"text":"...","type":"short_answer"}]}` +
	" listing every question in paper order with the marks printed for it. Use 0 when no marks are printed."

const keyInstruction = "You read faculty solution documents. For every question in the supplied structure return " +
	`{"answers":[{"question_number":"1","expected_answer":"...","rubric":"..."}]}` +
	" using the question numbers exactly as given. The rubric is optional."

const answersInstruction = "You transcribe student answer scripts. For every question in the supplied structure return " +
	`{"answers":[{"question_number":"1","answer":"..."}]}` +
	" using the question numbers exactly as given. Use an empty string when the student did not answer."

const gradeInstruction = "You are a strict but fair examiner. Score each answer against the expected answer and rubric. " +
	"A score must lie between 0 and the question's max_marks. Return " +
	`{"total_score":0,"remarks":"...","results":[{"question_number":"1","score":0,"feedback":"..."}]}` +
	" with one result per key entry, in key order."

func structurePrompt() string {
	return "Extract the question structure of the attached question paper. Return JSON."
}

func keyPrompt(structure models.Structure) string {
	builder := strings.Builder{}
	builder.WriteString("# Structure\n")
	builder.WriteString(mustJSON(structure))
	builder.WriteString("\n\nBuild the answer key from the attached solution document. Return JSON.")
	return builder.String()
}

func answersPrompt(structure models.Structure) string {
	builder := strings.Builder{}
	builder.WriteString("# Structure\n")
	builder.WriteString(mustJSON(structure))
	builder.WriteString("\n\nExtract the student's answers from the attached script. Return JSON.")
	return builder.String()
}

func gradePrompt(answers grading.CandidateAnswers, key grading.AnswerKey) string {
	builder := strings.Builder{}
	builder.WriteString("# Answer Key\n")
	builder.WriteString(mustJSON(key))
	builder.WriteString("\n\n# Student Answers\n")
	builder.WriteString(mustJSON(answers))
	builder.WriteString("\n\nGrade every question. Return JSON.")
	return builder.String()
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
