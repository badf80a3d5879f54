package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/student-records/internal/models"
	"github.com/noah-isme/student-records/pkg/database"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

const studentColumns = "id, name, dob, student_group"

// StudentRepository manages persistence for student records. Each operation
// is a fixed recipe over the bound session: writes run inside their own
// transaction, reads go straight to the connection.
type StudentRepository struct {
	sess *database.Session
}

// NewStudentRepository binds a repository to a session.
func NewStudentRepository(sess *database.Session) *StudentRepository {
	return &StudentRepository{sess: sess}
}

// Create inserts the given students in one transaction. Generated ids are
// written back onto the passed structs; on any failure the whole batch rolls
// back and no id assignment is durable.
func (r *StudentRepository) Create(ctx context.Context, students ...*models.Student) error {
	if len(students) == 0 {
		return nil
	}
	for _, s := range students {
		if s.Saved() {
			return appErrors.New(appErrors.CodePersistence, fmt.Sprintf("student %d already persisted", s.ID))
		}
	}

	tx := r.sess.Transaction()
	if err := tx.Begin(ctx); err != nil {
		return err
	}

	const query = `INSERT INTO students (name, dob, student_group) VALUES ($1, $2, $3) RETURNING id`
	for _, s := range students {
		s.DOB = models.DateOnly(s.DOB)
		// A failed staging call has already rolled the transaction back.
		if err := tx.Get(ctx, &s.ID, query, s.Name, s.DOB, s.Group); err != nil {
			return fmt.Errorf("create students: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create students: %w", err)
	}
	return nil
}

// FindByID fetches the last committed state of a student. A missing row is
// not an error: the result is nil, nil.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.sess.Get(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// Query returns every student matching a predicate over the table's columns.
// Named parameters bind by :name and slice values expand into IN lists. The
// result order is whatever the database returned; callers wanting a sort
// must say so in the predicate.
func (r *StudentRepository) Query(ctx context.Context, predicate string, params map[string]interface{}) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE %s", studentColumns, predicate)
	students := []models.Student{}
	if err := r.sess.NamedSelect(ctx, &students, query, params); err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	return students, nil
}

// Update rewrites the row matching the student's id inside a transaction.
// A vanished row is a stale handle and fails rather than silently updating
// nothing.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	if !student.Saved() {
		return appErrors.New(appErrors.CodePersistence, "student has no id")
	}

	tx := r.sess.Transaction()
	if err := tx.Begin(ctx); err != nil {
		return err
	}

	student.DOB = models.DateOnly(student.DOB)
	const query = `UPDATE students SET name = $1, dob = $2, student_group = $3 WHERE id = $4`
	res, err := tx.Exec(ctx, query, student.Name, student.DOB, student.Group, student.ID)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.CodePersistence, "update student")
	}
	if affected == 0 {
		_ = tx.Rollback()
		return appErrors.New(appErrors.CodePersistence, fmt.Sprintf("student %d no longer exists", student.ID))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes the row matching the student's id inside a transaction.
// Deleting an already-removed student fails with a stale-handle error; it
// does not silently succeed.
func (r *StudentRepository) Delete(ctx context.Context, student *models.Student) error {
	if !student.Saved() {
		return appErrors.New(appErrors.CodePersistence, "student has no id")
	}

	tx := r.sess.Transaction()
	if err := tx.Begin(ctx); err != nil {
		return err
	}

	res, err := tx.Exec(ctx, `DELETE FROM students WHERE id = $1`, student.ID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.CodePersistence, "delete student")
	}
	if affected == 0 {
		_ = tx.Rollback()
		return appErrors.New(appErrors.CodePersistence, fmt.Sprintf("student %d no longer exists", student.ID))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
