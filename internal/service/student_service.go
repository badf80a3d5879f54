package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records/internal/models"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

type studentRepository interface {
	Create(ctx context.Context, students ...*models.Student) error
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	Query(ctx context.Context, predicate string, params map[string]interface{}) ([]models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, student *models.Student) error
}

// RegisterStudentRequest holds payload for registering a student.
type RegisterStudentRequest struct {
	Name  string    `json:"name" validate:"required"`
	DOB   time.Time `json:"dob" validate:"required"`
	Group string    `json:"group" validate:"omitempty,oneof=LOTUS ROSE DAISY TULIP"`
}

// SearchFilter narrows a roster search. Zero-value fields are ignored; an
// empty filter matches everything.
type SearchFilter struct {
	Groups []models.Group
	Name   string
}

// StudentService handles student record use-cases: validation in front of
// the repository, logging around mutations.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// Register validates and persists one or more new students in a single
// transaction, returning them with generated ids.
func (s *StudentService) Register(ctx context.Context, reqs ...RegisterStudentRequest) ([]models.Student, error) {
	students := make([]*models.Student, 0, len(reqs))
	for _, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.CodePersistence, "invalid student")
		}
		students = append(students, &models.Student{
			Name:  req.Name,
			DOB:   models.DateOnly(req.DOB),
			Group: models.Group(req.Group),
		})
	}

	if err := s.repo.Create(ctx, students...); err != nil {
		return nil, err
	}

	result := make([]models.Student, 0, len(students))
	for _, st := range students {
		result = append(result, *st)
		s.logger.Info("student registered",
			zap.Int64("id", st.ID),
			zap.String("name", st.Name),
			zap.String("group", string(st.Group)),
		)
	}
	return result, nil
}

// Get returns the student with the given id, or nil when none exists.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	return s.repo.FindByID(ctx, id)
}

// Search lists students matching the filter. Results carry no ordering
// guarantee.
func (s *StudentService) Search(ctx context.Context, filter SearchFilter) ([]models.Student, error) {
	conditions := []string{}
	params := map[string]interface{}{}

	if len(filter.Groups) > 0 {
		names := make([]string, 0, len(filter.Groups))
		for _, g := range filter.Groups {
			if !g.Valid() || g == "" {
				return nil, appErrors.New(appErrors.CodePersistence, "unknown student group in filter")
			}
			names = append(names, string(g))
		}
		conditions = append(conditions, "student_group IN (:groups)")
		params["groups"] = names
	}
	if filter.Name != "" {
		conditions = append(conditions, "name = :name")
		params["name"] = filter.Name
	}
	if len(conditions) == 0 {
		conditions = append(conditions, "TRUE")
	}

	return s.repo.Query(ctx, strings.Join(conditions, " AND "), params)
}

// ChangeGroup moves a student to another group: fetch, mutate locally,
// re-submit. A missing student is a stale handle.
func (s *StudentService) ChangeGroup(ctx context.Context, id int64, group models.Group) (*models.Student, error) {
	if group != "" && !group.Valid() {
		return nil, appErrors.New(appErrors.CodePersistence, "unknown student group")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.New(appErrors.CodePersistence, "student no longer exists")
	}

	student.Group = group
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, err
	}

	s.logger.Info("student group changed", zap.Int64("id", id), zap.String("group", string(group)))
	return student, nil
}

// Rename updates a student's name.
func (s *StudentService) Rename(ctx context.Context, id int64, name string) (*models.Student, error) {
	if strings.TrimSpace(name) == "" {
		return nil, appErrors.New(appErrors.CodePersistence, "name is required")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.New(appErrors.CodePersistence, "student no longer exists")
	}

	student.Name = name
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, err
	}

	s.logger.Info("student renamed", zap.Int64("id", id))
	return student, nil
}

// Remove deletes a student record.
func (s *StudentService) Remove(ctx context.Context, id int64) error {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if student == nil {
		return appErrors.New(appErrors.CodePersistence, "student no longer exists")
	}

	if err := s.repo.Delete(ctx, student); err != nil {
		return err
	}

	s.logger.Info("student removed", zap.Int64("id", id))
	return nil
}

// Roster returns every student on record.
func (s *StudentService) Roster(ctx context.Context) ([]models.Student, error) {
	return s.repo.Query(ctx, "TRUE", nil)
}
