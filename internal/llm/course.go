package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/reportcard/internal/grading"
	"github.com/pavelanni/reportcard/internal/model"
)

// CourseRecords is the store surface used to fill in missing feedback.
type CourseRecords interface {
	GetCourse(id int64) (*model.Course, error)
	StudentsByCourse(courseID int64) ([]model.Student, error)
	AssignmentsByCourse(courseID int64) ([]model.Assignment, error)
	MarksByCourse(courseID int64) (model.CourseMarks, error)
	FeedbackByCourse(courseID int64) (model.Feedback, error)
	SetFeedback(studentID, courseID int64, note string) error
}

// Drafter writes one report card comment.
type Drafter interface {
	DraftFeedback(ctx context.Context, student model.Student, subject string, terms [model.NumTerms]*float64) (string, error)
}

// DraftCourseFeedback drafts and stores a comment for every student of the
// course who has marks but no note yet. It returns the number of notes
// written. Students without any marks are skipped.
func DraftCourseFeedback(ctx context.Context, d Drafter, rec CourseRecords, courseID int64) (int, error) {
	course, err := rec.GetCourse(courseID)
	if err != nil {
		return 0, fmt.Errorf("get course %d: %w", courseID, err)
	}
	if course == nil {
		return 0, fmt.Errorf("course %d not found", courseID)
	}
	students, err := rec.StudentsByCourse(courseID)
	if err != nil {
		return 0, fmt.Errorf("students for course %d: %w", courseID, err)
	}
	assignments, err := rec.AssignmentsByCourse(courseID)
	if err != nil {
		return 0, fmt.Errorf("assignments for course %d: %w", courseID, err)
	}
	marks, err := rec.MarksByCourse(courseID)
	if err != nil {
		return 0, fmt.Errorf("marks for course %d: %w", courseID, err)
	}
	existing, err := rec.FeedbackByCourse(courseID)
	if err != nil {
		return 0, fmt.Errorf("feedback for course %d: %w", courseID, err)
	}

	written := 0
	for _, st := range students {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if strings.TrimSpace(existing[st.ID]) != "" || len(marks.For(st.ID)) == 0 {
			continue
		}
		terms := grading.TermPercentages(assignments, marks, st.ID)
		note, err := d.DraftFeedback(ctx, st, course.Name, terms)
		if err != nil {
			return written, fmt.Errorf("draft feedback for student %d: %w", st.ID, err)
		}
		if note == "" {
			slog.Warn("empty feedback draft", "student_id", st.ID, "course_id", courseID)
			continue
		}
		if err := rec.SetFeedback(st.ID, courseID, note); err != nil {
			return written, fmt.Errorf("store feedback for student %d: %w", st.ID, err)
		}
		written++
	}
	slog.Info("drafted feedback", "course_id", courseID, "count", written)
	return written, nil
}
