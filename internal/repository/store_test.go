package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

func setupStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.Submission{}, &models.Paper{}))
	return db
}

func sequentialOptions() Options {
	var mu sync.Mutex
	counter := 0
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	ticks := 0

	return Options{
		IDs: func(prefix string) string {
			mu.Lock()
			defer mu.Unlock()
			counter++
			return fmt.Sprintf("%s_%04d", prefix, counter)
		},
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			ticks++
			return base.Add(time.Duration(ticks) * time.Second)
		},
		Locks: NewWriterLocks(),
	}
}

func sampleAssignment(teacherID string) models.Assignment {
	return models.Assignment{
		Title:               "Thermodynamics midterm",
		Subject:             "Physics",
		TeacherID:           teacherID,
		QuestionDocumentRef: "q.pdf",
		SolutionDocumentRef: "s.pdf",
		Structure: datatypes.JSONSlice[models.QuestionDescriptor]{
			{QuestionNumber: "1", MaxMarks: 5, Text: "Define entropy"},
			{QuestionNumber: "2", MaxMarks: 5, Attributes: map[string]string{"section": "B"}},
		},
	}
}

func TestAssignmentRepositoryCreateAssignsIdentity(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewAssignmentRepository(db, sequentialOptions())

	assignment := sampleAssignment("u_1")
	assignment.ID = "caller-supplied"
	require.NoError(t, repo.Create(context.Background(), &assignment))
	require.Equal(t, "asg_0001", assignment.ID)
	require.False(t, assignment.CreatedAt.IsZero())

	stored, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Equal(t, assignment.Title, stored.Title)
	require.WithinDuration(t, assignment.CreatedAt, stored.CreatedAt, time.Second)
}

func TestAssignmentRepositoryStructureIsStable(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewAssignmentRepository(db, sequentialOptions())

	assignment := sampleAssignment("u_1")
	require.NoError(t, repo.Create(context.Background(), &assignment))

	first, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first.Structure)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Structure)
	require.NoError(t, err)
	require.Equal(t, firstJSON, secondJSON)
	require.Equal(t, 10.0, first.Questions().MaxMarks())
	require.Equal(t, "B", first.Structure[1].Attributes["section"])

	title := "Renamed"
	_, err = repo.Update(context.Background(), assignment.ID, AssignmentPatch{Title: &title})
	require.NoError(t, err)

	third, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	thirdJSON, err := json.Marshal(third.Structure)
	require.NoError(t, err)
	require.Equal(t, firstJSON, thirdJSON)
	require.Equal(t, "Renamed", third.Title)
}

func TestAssignmentRepositoryListPreservesInsertionOrder(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewAssignmentRepository(db, sequentialOptions())

	empty, err := repo.List(context.Background(), AssignmentFilter{})
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		teacher := "u_1"
		if i%2 == 1 {
			teacher = "u_2"
		}
		assignment := sampleAssignment(teacher)
		require.NoError(t, repo.Create(context.Background(), &assignment))
		ids = append(ids, assignment.ID)
	}

	all, err := repo.List(context.Background(), AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, assignment := range all {
		require.Equal(t, ids[i], assignment.ID)
	}

	teacher := "u_2"
	owned, err := repo.List(context.Background(), AssignmentFilter{TeacherID: &teacher})
	require.NoError(t, err)
	require.Len(t, owned, 2)
}

func TestAssignmentRepositoryRejectsInvalidRecord(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewAssignmentRepository(db, sequentialOptions())

	assignment := sampleAssignment("")
	require.Error(t, repo.Create(context.Background(), &assignment))

	all, err := repo.List(context.Background(), AssignmentFilter{})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestAssignmentRepositoryUpdateMissing(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewAssignmentRepository(db, sequentialOptions())

	title := "x"
	_, err := repo.Update(context.Background(), "asg_missing", AssignmentPatch{Title: &title})
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = repo.GetByID(context.Background(), "asg_missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryFilters(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewSubmissionRepository(db, sequentialOptions())
	ctx := context.Background()

	create := func(assignmentID, studentID string) models.Submission {
		submission := models.Submission{
			AssignmentID:          assignmentID,
			StudentID:             studentID,
			SubmissionDocumentRef: "doc.pdf",
			Status:                models.SubmissionStatusGraded,
			AIResult: datatypes.NewJSONType(models.SubmissionResult{
				Result: models.Result{TotalMarks: 7, MaxMarks: 10, Grade: "C"},
			}),
		}
		require.NoError(t, repo.Create(ctx, &submission))
		return submission
	}

	create("asg_1", "u_s1")
	create("asg_1", "u_s2")
	create("asg_2", "u_s1")
	create("asg_3", "u_s3")

	student := "u_s1"
	byStudent, err := repo.List(ctx, SubmissionFilter{StudentID: &student})
	require.NoError(t, err)
	require.Len(t, byStudent, 2)
	require.Equal(t, "asg_1", byStudent[0].AssignmentID)
	require.Equal(t, "C", byStudent[0].Result().Grade)

	assignment := "asg_1"
	byAssignment, err := repo.List(ctx, SubmissionFilter{AssignmentID: &assignment})
	require.NoError(t, err)
	require.Len(t, byAssignment, 2)

	bySet, err := repo.List(ctx, SubmissionFilter{AssignmentIDs: []string{"asg_2", "asg_3"}})
	require.NoError(t, err)
	require.Len(t, bySet, 2)

	none, err := repo.List(ctx, SubmissionFilter{AssignmentIDs: []string{}})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSubmissionRepositoryUpdateMergesPatch(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewSubmissionRepository(db, sequentialOptions())
	ctx := context.Background()

	submission := models.Submission{
		AssignmentID:          "asg_1",
		StudentID:             "u_s1",
		SubmissionDocumentRef: "doc.pdf",
		Status:                models.SubmissionStatusGraded,
		AIResult:              datatypes.NewJSONType(models.SubmissionResult{Result: models.Result{TotalMarks: 9, MaxMarks: 10, Grade: "A"}}),
	}
	require.NoError(t, repo.Create(ctx, &submission))

	feedback := "Checked by hand"
	updated, err := repo.Update(ctx, submission.ID, SubmissionPatch{ReviewFeedback: &feedback})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusGraded, updated.Status)
	require.Equal(t, feedback, updated.ReviewFeedback)
	require.Equal(t, "A", updated.Result().Grade)

	invalid := "pending"
	_, err = repo.Update(ctx, submission.ID, SubmissionPatch{Status: &invalid})
	require.Error(t, err)

	stored, err := repo.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
}

func TestSubmissionRepositoryConcurrentCreatesAreKept(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewSubmissionRepository(db, Options{Locks: NewWriterLocks()})
	ctx := context.Background()

	const writers = 25
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			submission := models.Submission{
				AssignmentID:          "asg_1",
				StudentID:             fmt.Sprintf("u_%d", i),
				SubmissionDocumentRef: "doc.pdf",
				Status:                models.SubmissionStatusGraded,
			}
			errs <- repo.Create(ctx, &submission)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, all, writers)

	seen := make(map[string]struct{}, writers)
	for _, submission := range all {
		require.True(t, strings.HasPrefix(submission.ID, "sub_"))
		seen[submission.ID] = struct{}{}
	}
	require.Len(t, seen, writers)
}

func TestPaperRepositoryByTeacher(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewPaperRepository(db, sequentialOptions())
	ctx := context.Background()

	for _, teacher := range []string{"u_1", "u_2", "u_1"} {
		paper := models.Paper{
			TeacherID:           teacher,
			QuestionDocumentRef: "q.pdf",
			AnswerDocumentRef:   "a.pdf",
			Result:              datatypes.NewJSONType(models.Result{TotalMarks: 10, MaxMarks: 10, Grade: "A"}),
		}
		require.NoError(t, repo.Create(ctx, &paper))
	}

	teacher := "u_1"
	papers, err := repo.List(ctx, PaperFilter{TeacherID: &teacher})
	require.NoError(t, err)
	require.Len(t, papers, 2)
	require.Equal(t, "paper_0001", papers[0].ID)
	require.Equal(t, "paper_0003", papers[1].ID)
	require.Equal(t, "A", papers[0].Result.Data().Grade)

	notes := "answer key parses"
	updated, err := repo.Update(ctx, papers[0].ID, PaperPatch{Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, notes, updated.Notes)
}

func TestRepositoriesFilterByDocumentRef(t *testing.T) {
	db := setupStoreTestDB(t)
	opts := sequentialOptions()
	assignments := NewAssignmentRepository(db, opts)
	submissions := NewSubmissionRepository(db, opts)
	papers := NewPaperRepository(db, opts)
	ctx := context.Background()

	assignment := sampleAssignment("u_t1")
	assignment.QuestionDocumentRef = "question_a.pdf"
	assignment.SolutionDocumentRef = "solution_a.pdf"
	require.NoError(t, assignments.Create(ctx, &assignment))

	submission := models.Submission{
		AssignmentID:          assignment.ID,
		StudentID:             "u_s1",
		SubmissionDocumentRef: "submission_a.pdf",
		Status:                models.SubmissionStatusGraded,
	}
	require.NoError(t, submissions.Create(ctx, &submission))

	paper := models.Paper{TeacherID: "u_t1", QuestionDocumentRef: "question_p.pdf", AnswerDocumentRef: "answer_p.pdf"}
	require.NoError(t, papers.Create(ctx, &paper))

	for _, ref := range []string{"question_a.pdf", "solution_a.pdf"} {
		found, err := assignments.List(ctx, AssignmentFilter{DocumentRef: &ref})
		require.NoError(t, err)
		require.Len(t, found, 1, ref)
		require.Equal(t, assignment.ID, found[0].ID)
	}

	ref := "submission_a.pdf"
	foundSubmissions, err := submissions.List(ctx, SubmissionFilter{DocumentRef: &ref})
	require.NoError(t, err)
	require.Len(t, foundSubmissions, 1)
	require.Equal(t, submission.ID, foundSubmissions[0].ID)

	ref = "answer_p.pdf"
	foundPapers, err := papers.List(ctx, PaperFilter{DocumentRef: &ref})
	require.NoError(t, err)
	require.Len(t, foundPapers, 1)

	ref = "submission_a.pdf"
	none, err := assignments.List(ctx, AssignmentFilter{DocumentRef: &ref})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestIDGeneratorIsUniqueAndPrefixed(t *testing.T) {
	gen := NewIDGenerator()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := gen("asg")
		require.True(t, strings.HasPrefix(id, "asg_"))
		seen[id] = struct{}{}
	}
	require.Len(t, seen, 100)
}
