package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/favourolaoye/boride-v3-api/internal/bucketing"
	"github.com/favourolaoye/boride-v3-api/internal/encryption"
	"github.com/favourolaoye/boride-v3-api/internal/models"
	"github.com/favourolaoye/boride-v3-api/internal/repository"
	"github.com/favourolaoye/boride-v3-api/internal/util"
)

// StudentRepository is the ScyllaDB-backed student store. Email and matric
// uniqueness live in lookup tables claimed with LWT inserts; the main row is
// written only after both claims succeed.
type StudentRepository struct {
	client  *ScyllaClient
	enc     *encryption.Manager
	buckets *bucketing.BucketingManager
}

func NewStudentRepository(client *ScyllaClient, enc *encryption.Manager, buckets *bucketing.BucketingManager) *StudentRepository {
	return &StudentRepository{
		client:  client,
		enc:     enc,
		buckets: buckets,
	}
}

func (r *StudentRepository) CreateStudent(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	student.Bucket = r.buckets.PrincipalBucket(student.ID)

	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	// Claim the unique keys first; the claims are the uniqueness authority.
	applied, err := r.client.Query(r.client.Stmts.ClaimStudentEmail,
		student.Email, student.Bucket, student.ID).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to claim student email: %w", err)
	}
	if !applied {
		return repository.ErrDuplicateEmail
	}

	applied, err = r.client.Query(r.client.Stmts.ClaimStudentMatric,
		student.MatricNo, student.Bucket, student.ID).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil || !applied {
		// Best-effort rollback of the email claim so the address stays usable.
		if relErr := r.client.Query(r.client.Stmts.ReleaseStudentEmail, student.Email).
			WithContext(ctx).Exec(); relErr != nil {
			util.Error("Failed to release email claim after matric conflict",
				zap.String("email", student.Email),
				zap.Error(relErr))
		}
		if err != nil {
			return fmt.Errorf("failed to claim matric number: %w", err)
		}
		return repository.ErrDuplicateMatric
	}

	field, err := r.enc.EncryptField(ctx, student.PhoneNo)
	if err != nil {
		return fmt.Errorf("failed to encrypt phone number: %w", err)
	}
	student.PhoneEncrypted = field.Ciphertext
	student.PhoneKeyID = field.KeyID

	if err := r.client.Query(r.client.Stmts.InsertStudent,
		student.Bucket, student.ID, student.FullName, student.MatricNo, student.Email,
		student.PhoneEncrypted, student.PhoneKeyID, student.PasswordHash,
		student.IsVerified, student.EmailOTP, student.OTPExpiresAt,
		student.CreatedAt, student.UpdatedAt).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	util.Info("Student created",
		zap.String("student_id", student.ID),
		zap.String("matric_no", student.MatricNo),
		zap.Int("bucket", student.Bucket))

	return nil
}

func (r *StudentRepository) FindStudent(ctx context.Context, lookup repository.StudentLookup) (*models.Student, error) {
	if lookup.Empty() {
		return nil, repository.ErrNotFound
	}

	id := lookup.ID
	if id == "" {
		var err error
		if lookup.Email != "" {
			id, err = r.resolveKey(ctx, r.client.Stmts.SelectStudentByEmail, lookup.Email)
		}
		if id == "" && lookup.MatricNo != "" {
			id, err = r.resolveKey(ctx, r.client.Stmts.SelectStudentByMatric, lookup.MatricNo)
		}
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, repository.ErrNotFound
		}
	}

	return r.getByID(ctx, id)
}

func (r *StudentRepository) resolveKey(ctx context.Context, stmt, key string) (string, error) {
	var bucket int
	var id string
	err := r.client.Query(stmt, key).WithContext(ctx).Scan(&bucket, &id)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve student key: %w", err)
	}
	return id, nil
}

func (r *StudentRepository) getByID(ctx context.Context, id string) (*models.Student, error) {
	student := &models.Student{}
	bucket := r.buckets.PrincipalBucket(id)

	err := r.client.Query(r.client.Stmts.SelectStudent, bucket, id).WithContext(ctx).Scan(
		&student.Bucket, &student.ID, &student.FullName, &student.MatricNo, &student.Email,
		&student.PhoneEncrypted, &student.PhoneKeyID, &student.PasswordHash,
		&student.IsVerified, &student.EmailOTP, &student.OTPExpiresAt,
		&student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	phone, err := r.enc.DecryptField(ctx, &encryption.EncryptedField{
		Ciphertext: student.PhoneEncrypted,
		KeyID:      student.PhoneKeyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt phone number: %w", err)
	}
	student.PhoneNo = phone

	return student, nil
}

func (r *StudentRepository) MarkVerified(ctx context.Context, student *models.Student, expectedOTP string) error {
	now := time.Now().UTC()

	applied, err := r.client.Query(r.client.Stmts.MarkStudentVerified,
		now, student.Bucket, student.ID, expectedOTP).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to mark student verified: %w", err)
	}
	if !applied {
		return repository.ErrConditionFailed
	}

	student.IsVerified = true
	student.EmailOTP = nil
	student.OTPExpiresAt = nil
	student.UpdatedAt = now
	return nil
}

func (r *StudentRepository) RotateOTP(ctx context.Context, student *models.Student, expectedOTP, newOTP string, expiresAt time.Time) error {
	now := time.Now().UTC()

	applied, err := r.client.Query(r.client.Stmts.RotateStudentOTP,
		newOTP, expiresAt, now, student.Bucket, student.ID, expectedOTP).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to rotate otp: %w", err)
	}
	if !applied {
		return repository.ErrConditionFailed
	}

	student.EmailOTP = &newOTP
	student.OTPExpiresAt = &expiresAt
	student.UpdatedAt = now
	return nil
}

func (r *StudentRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
