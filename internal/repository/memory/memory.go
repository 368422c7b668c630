// Package memory provides in-process implementations of the store contracts.
// They enforce the same uniqueness and conditional-update semantics as the
// ScyllaDB repositories and back the service and handler tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/favourolaoye/boride-v3-api/internal/models"
	"github.com/favourolaoye/boride-v3-api/internal/repository"
)

// StudentStore is a mutex-guarded map store keyed by id with email and
// matric lookup indexes.
type StudentStore struct {
	mu       sync.Mutex
	byID     map[string]*models.Student
	byEmail  map[string]string
	byMatric map[string]string
}

func NewStudentStore() *StudentStore {
	return &StudentStore{
		byID:     make(map[string]*models.Student),
		byEmail:  make(map[string]string),
		byMatric: make(map[string]string),
	}
}

func (s *StudentStore) CreateStudent(ctx context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[student.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	if _, ok := s.byMatric[student.MatricNo]; ok {
		return repository.ErrDuplicateMatric
	}

	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	s.byID[student.ID] = copyStudent(student)
	s.byEmail[student.Email] = student.ID
	s.byMatric[student.MatricNo] = student.ID
	return nil
}

func (s *StudentStore) FindStudent(ctx context.Context, lookup repository.StudentLookup) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lookup.Empty() {
		return nil, repository.ErrNotFound
	}

	id := lookup.ID
	if id == "" && lookup.Email != "" {
		id = s.byEmail[lookup.Email]
	}
	if id == "" && lookup.MatricNo != "" {
		id = s.byMatric[lookup.MatricNo]
	}

	student, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyStudent(student), nil
}

func (s *StudentStore) MarkVerified(ctx context.Context, student *models.Student, expectedOTP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[student.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.IsVerified || stored.EmailOTP == nil || *stored.EmailOTP != expectedOTP {
		return repository.ErrConditionFailed
	}

	now := time.Now().UTC()
	stored.IsVerified = true
	stored.EmailOTP = nil
	stored.OTPExpiresAt = nil
	stored.UpdatedAt = now

	student.IsVerified = true
	student.EmailOTP = nil
	student.OTPExpiresAt = nil
	student.UpdatedAt = now
	return nil
}

func (s *StudentStore) RotateOTP(ctx context.Context, student *models.Student, expectedOTP, newOTP string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[student.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.EmailOTP == nil || *stored.EmailOTP != expectedOTP {
		return repository.ErrConditionFailed
	}

	now := time.Now().UTC()
	code := newOTP
	expiry := expiresAt
	stored.EmailOTP = &code
	stored.OTPExpiresAt = &expiry
	stored.UpdatedAt = now

	student.EmailOTP = &code
	student.OTPExpiresAt = &expiry
	student.UpdatedAt = now
	return nil
}

func (s *StudentStore) HealthCheck(ctx context.Context) error {
	return nil
}

// DriverStore is the driver counterpart, keyed by email.
type DriverStore struct {
	mu      sync.Mutex
	byID    map[string]*models.Driver
	byEmail map[string]string
}

func NewDriverStore() *DriverStore {
	return &DriverStore{
		byID:    make(map[string]*models.Driver),
		byEmail: make(map[string]string),
	}
}

func (s *DriverStore) CreateDriver(ctx context.Context, driver *models.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[driver.Email]; ok {
		return repository.ErrDuplicateEmail
	}

	if driver.ID == "" {
		driver.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	driver.CreatedAt = now
	driver.UpdatedAt = now

	s.byID[driver.ID] = copyDriver(driver)
	s.byEmail[driver.Email] = driver.ID
	return nil
}

func (s *DriverStore) FindDriverByEmail(ctx context.Context, email string) (*models.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyDriver(s.byID[id]), nil
}

func (s *DriverStore) HealthCheck(ctx context.Context) error {
	return nil
}

func copyStudent(in *models.Student) *models.Student {
	out := *in
	if in.EmailOTP != nil {
		code := *in.EmailOTP
		out.EmailOTP = &code
	}
	if in.OTPExpiresAt != nil {
		expiry := *in.OTPExpiresAt
		out.OTPExpiresAt = &expiry
	}
	return &out
}

func copyDriver(in *models.Driver) *models.Driver {
	out := *in
	return &out
}
