package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records/internal/models"
	"github.com/noah-isme/student-records/pkg/config"
	"github.com/noah-isme/student-records/pkg/database"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

func newStudentMock(t *testing.T) (*StudentRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	f := database.NewFactory(sqlx.NewDb(db, "sqlmock"), config.SchemaNone)
	sess, err := f.NewSession(context.Background())
	require.NoError(t, err)
	return NewStudentRepository(sess), mock, func() {
		sess.Close()
		db.Close()
	}
}

func jack() *models.Student {
	return &models.Student{
		Name:  "Jack",
		DOB:   time.Date(2008, time.March, 14, 0, 0, 0, 0, time.UTC),
		Group: models.GroupLotus,
	}
}

func TestStudentRepositoryCreateAssignsIDs(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO students (name, dob, student_group) VALUES ($1, $2, $3) RETURNING id")).
		WithArgs("Jack", sqlmock.AnyArg(), "LOTUS").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO students (name, dob, student_group) VALUES ($1, $2, $3) RETURNING id")).
		WithArgs("Leslie", sqlmock.AnyArg(), "ROSE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectCommit()

	first := jack()
	second := &models.Student{Name: "Leslie", DOB: time.Date(2007, time.June, 2, 0, 0, 0, 0, time.UTC), Group: models.GroupRose}

	require.NoError(t, repo.Create(context.Background(), first, second))
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateRollsBackWholeBatch(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO students").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO students").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})
	mock.ExpectRollback()

	first := jack()
	second := jack()
	err := repo.Create(context.Background(), first, second)
	require.Error(t, err)
	assert.True(t, appErrors.IsPersistence(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateRejectsPersistedStudent(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	saved := jack()
	saved.ID = 9
	err := repo.Create(context.Background(), saved)
	require.Error(t, err)
	assert.True(t, appErrors.IsPersistence(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	dob := time.Date(2008, time.March, 14, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "dob", "student_group"}).
		AddRow(int64(1), "Jack", dob, "LOTUS")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, dob, student_group FROM students WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "Jack", student.Name)
	assert.Equal(t, models.GroupLotus, student.Group)
	assert.Equal(t, dob, student.DOB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, dob, student_group FROM students WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "dob", "student_group"}))

	student, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, student)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryQueryINPredicate(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "name", "dob", "student_group"}).
		AddRow(int64(1), "Jack", time.Now(), "ROSE").
		AddRow(int64(2), "Leslie", time.Now(), "DAISY")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, dob, student_group FROM students WHERE student_group IN (?, ?)")).
		WithArgs("ROSE", "DAISY").
		WillReturnRows(rows)

	students, err := repo.Query(context.Background(), "student_group IN (:groups)",
		map[string]interface{}{"groups": []string{"ROSE", "DAISY"}})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Jack", students[0].Name)
	assert.Equal(t, "Leslie", students[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryQueryNoMatches(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, dob, student_group FROM students WHERE student_group = ?")).
		WithArgs("LOTUS").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "dob", "student_group"}))

	students, err := repo.Query(context.Background(), "student_group = :group",
		map[string]interface{}{"group": "LOTUS"})
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdate(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET name = $1, dob = $2, student_group = $3 WHERE id = $4")).
		WithArgs("Jack", sqlmock.AnyArg(), "DAISY", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := jack()
	student.ID = 1
	student.Group = models.GroupDaisy
	require.NoError(t, repo.Update(context.Background(), student))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateStaleHandle(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	student := jack()
	student.ID = 99
	err := repo.Update(context.Background(), student)
	require.Error(t, err)
	assert.True(t, appErrors.IsPersistence(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateRowsAffectedError(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows affected unavailable")))
	mock.ExpectRollback()

	student := jack()
	student.ID = 1
	err := repo.Update(context.Background(), student)
	require.Error(t, err)
	assert.True(t, appErrors.IsPersistence(err))
	assert.Contains(t, err.Error(), "rows affected unavailable")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteRowsAffectedError(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM students").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows affected unavailable")))
	mock.ExpectRollback()

	student := jack()
	student.ID = 1
	err := repo.Delete(context.Background(), student)
	require.Error(t, err)
	assert.True(t, appErrors.IsPersistence(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDelete(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := jack()
	student.ID = 1
	require.NoError(t, repo.Delete(context.Background(), student))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteTwiceFails(t *testing.T) {
	repo, mock, cleanup := newStudentMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	student := jack()
	student.ID = 1
	require.NoError(t, repo.Delete(context.Background(), student))

	err := repo.Delete(context.Background(), student)
	require.Error(t, err)
	assert.True(t, appErrors.IsPersistence(err))
	assert.Contains(t, err.Error(), "no longer exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateUnsaved(t *testing.T) {
	repo, _, cleanup := newStudentMock(t)
	defer cleanup()

	err := repo.Update(context.Background(), jack())
	require.Error(t, err)
	assert.True(t, appErrors.IsPersistence(err))

	err = repo.Delete(context.Background(), jack())
	require.Error(t, err)
	assert.True(t, appErrors.IsPersistence(err))
}
