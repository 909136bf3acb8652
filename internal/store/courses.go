package store

import (
	"database/sql"

	"github.com/pavelanni/reportcard/internal/model"
)

// CreateCourse inserts a course. A zero ID lets the database assign one.
func (s *Store) CreateCourse(c model.Course) (int64, error) {
	if err := model.Validate(c); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO courses (id, name, grade_level) VALUES (NULLIF(?, 0), ?, ?)`,
		c.ID, c.Name, c.GradeLevel,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetCourse returns a course by ID, or nil if not found.
func (s *Store) GetCourse(id int64) (*model.Course, error) {
	var c model.Course
	err := s.db.QueryRow(`SELECT id, name, grade_level FROM courses WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.GradeLevel)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CoursesByGrade returns the courses of a grade level in creation order.
func (s *Store) CoursesByGrade(gradeLevel int) ([]model.Course, error) {
	rows, err := s.db.Query(
		`SELECT id, name, grade_level FROM courses WHERE grade_level = ? ORDER BY id`, gradeLevel,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.GradeLevel); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// CreateAssignment inserts an assignment. A zero ID lets the database assign one.
func (s *Store) CreateAssignment(a model.Assignment) (int64, error) {
	if err := model.Validate(a); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO assignments (id, course_id, title, max_marks, term, due_date)
		 VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?)`,
		a.ID, a.CourseID, a.Title, a.MaxMarks, a.Term, a.DueDate,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAssignment returns an assignment by ID, or nil if not found.
func (s *Store) GetAssignment(id int64) (*model.Assignment, error) {
	var a model.Assignment
	err := s.db.QueryRow(
		`SELECT id, course_id, title, max_marks, term, due_date FROM assignments WHERE id = ?`, id,
	).Scan(&a.ID, &a.CourseID, &a.Title, &a.MaxMarks, &a.Term, &a.DueDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AssignmentsByCourse returns the assignments of a course ordered by term.
func (s *Store) AssignmentsByCourse(courseID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT id, course_id, title, max_marks, term, due_date
		 FROM assignments WHERE course_id = ? ORDER BY term, id`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.CourseID, &a.Title, &a.MaxMarks, &a.Term, &a.DueDate); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
