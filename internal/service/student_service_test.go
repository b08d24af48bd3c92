package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type studentStoreStub struct {
	students map[string]*models.Student
}

func newStudentStoreStub(students ...*models.Student) *studentStoreStub {
	s := &studentStoreStub{students: map[string]*models.Student{}}
	for _, st := range students {
		s.students[st.ID] = st
	}
	return s
}

func (s *studentStoreStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (s *studentStoreStub) List(ctx context.Context, programID string, cohortYear int, status *models.StudentStatus, page, pageSize int) ([]models.Student, int, error) {
	var out []models.Student
	for _, st := range s.students {
		if programID != "" && st.ProgramID != programID {
			continue
		}
		if status != nil && st.Status != *status {
			continue
		}
		out = append(out, *st)
	}
	return out, len(out), nil
}

func (s *studentStoreStub) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	student, ok := s.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	student.Status = status
	return nil
}

func TestStudentServiceUpdateStatus(t *testing.T) {
	store := newStudentStoreStub(&models.Student{ID: "s1", Status: models.StudentStatusActive})
	svc := NewStudentService(store, nil, zap.NewNop())

	student, err := svc.UpdateStatus(context.Background(), "s1", UpdateStudentStatusRequest{Status: models.StudentStatusGraduated})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusGraduated, student.Status)
	assert.Equal(t, models.StudentStatusGraduated, store.students["s1"].Status)
}

func TestStudentServiceUpdateStatusRejectsUnknown(t *testing.T) {
	store := newStudentStoreStub(&models.Student{ID: "s1", Status: models.StudentStatusActive})
	svc := NewStudentService(store, nil, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "s1", UpdateStudentStatusRequest{Status: "EXPELLED"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.StudentStatusActive, store.students["s1"].Status)
}

func TestStudentServiceUpdateStatusUnknownStudent(t *testing.T) {
	svc := NewStudentService(newStudentStoreStub(), nil, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "missing", UpdateStudentStatusRequest{Status: models.StudentStatusWithdrawn})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceListFiltersByStatus(t *testing.T) {
	active := models.StudentStatusActive
	store := newStudentStoreStub(
		&models.Student{ID: "s1", ProgramID: "p1", Status: models.StudentStatusActive},
		&models.Student{ID: "s2", ProgramID: "p1", Status: models.StudentStatusWithdrawn},
	)
	svc := NewStudentService(store, nil, zap.NewNop())

	students, total, err := svc.List(context.Background(), StudentListFilter{ProgramID: "p1", Status: &active})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].ID)
}
