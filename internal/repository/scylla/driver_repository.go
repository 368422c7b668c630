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

// DriverRepository is the ScyllaDB-backed driver store.
type DriverRepository struct {
	client  *ScyllaClient
	enc     *encryption.Manager
	buckets *bucketing.BucketingManager
}

func NewDriverRepository(client *ScyllaClient, enc *encryption.Manager, buckets *bucketing.BucketingManager) *DriverRepository {
	return &DriverRepository{
		client:  client,
		enc:     enc,
		buckets: buckets,
	}
}

func (r *DriverRepository) CreateDriver(ctx context.Context, driver *models.Driver) error {
	if driver.ID == "" {
		driver.ID = uuid.New().String()
	}
	driver.Bucket = r.buckets.PrincipalBucket(driver.ID)

	now := time.Now().UTC()
	driver.CreatedAt = now
	driver.UpdatedAt = now

	applied, err := r.client.Query(r.client.Stmts.ClaimDriverEmail,
		driver.Email, driver.Bucket, driver.ID).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to claim driver email: %w", err)
	}
	if !applied {
		return repository.ErrDuplicateEmail
	}

	field, err := r.enc.EncryptField(ctx, driver.PhoneNo)
	if err != nil {
		return fmt.Errorf("failed to encrypt phone number: %w", err)
	}
	driver.PhoneEncrypted = field.Ciphertext
	driver.PhoneKeyID = field.KeyID

	if err := r.client.Query(r.client.Stmts.InsertDriver,
		driver.Bucket, driver.ID, driver.FullName, driver.Email,
		driver.PhoneEncrypted, driver.PhoneKeyID, driver.PasswordHash,
		driver.CreatedAt, driver.UpdatedAt).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}

	util.Info("Driver created",
		zap.String("driver_id", driver.ID),
		zap.Int("bucket", driver.Bucket))

	return nil
}

func (r *DriverRepository) FindDriverByEmail(ctx context.Context, email string) (*models.Driver, error) {
	var bucket int
	var id string
	err := r.client.Query(r.client.Stmts.SelectDriverByEmail, email).WithContext(ctx).Scan(&bucket, &id)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve driver email: %w", err)
	}

	driver := &models.Driver{}
	err = r.client.Query(r.client.Stmts.SelectDriver, bucket, id).WithContext(ctx).Scan(
		&driver.Bucket, &driver.ID, &driver.FullName, &driver.Email,
		&driver.PhoneEncrypted, &driver.PhoneKeyID, &driver.PasswordHash,
		&driver.CreatedAt, &driver.UpdatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}

	phone, err := r.enc.DecryptField(ctx, &encryption.EncryptedField{
		Ciphertext: driver.PhoneEncrypted,
		KeyID:      driver.PhoneKeyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt phone number: %w", err)
	}
	driver.PhoneNo = phone

	return driver, nil
}

func (r *DriverRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
