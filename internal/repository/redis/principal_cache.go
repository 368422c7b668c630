package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/favourolaoye/boride-v3-api/internal/client"
	"github.com/favourolaoye/boride-v3-api/internal/models"
	"github.com/favourolaoye/boride-v3-api/internal/util"
)

const (
	studentIDPrefix     = "student:id:"
	studentEmailPrefix  = "student:email:"
	studentMatricPrefix = "student:matric:"
	driverEmailPrefix   = "driver:email:"
)

// PrincipalCache is a read-through cache in front of the durable stores.
// The store is always authoritative; every write path invalidates here, so a
// miss only costs a store round trip. OTP fields are never cached.
type PrincipalCache struct {
	client *client.RedisClient
	ttl    time.Duration
}

func NewPrincipalCache(client *client.RedisClient, ttl time.Duration) *PrincipalCache {
	return &PrincipalCache{client: client, ttl: ttl}
}

// cachedStudent strips the volatile OTP state before caching; a verify or
// resend must always read the stored code from the authoritative store.
type cachedStudent struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	MatricNo     string    `json:"matricNo"`
	Email        string    `json:"email"`
	PhoneNo      string    `json:"phoneNo"`
	PasswordHash string    `json:"passwordHash"`
	IsVerified   bool      `json:"isVerified"`
	Bucket       int       `json:"bucket"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (c *PrincipalCache) SetStudent(ctx context.Context, student *models.Student) {
	payload, err := json.Marshal(cachedStudent{
		ID:           student.ID,
		FullName:     student.FullName,
		MatricNo:     student.MatricNo,
		Email:        student.Email,
		PhoneNo:      student.PhoneNo,
		PasswordHash: student.PasswordHash,
		IsVerified:   student.IsVerified,
		Bucket:       student.Bucket,
		CreatedAt:    student.CreatedAt,
		UpdatedAt:    student.UpdatedAt,
	})
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, studentIDPrefix+student.ID, string(payload), c.ttl); err != nil {
		util.Debug("Failed to cache student", zap.String("student_id", student.ID), zap.Error(err))
		return
	}
	_ = c.client.Set(ctx, studentEmailPrefix+student.Email, student.ID, c.ttl)
	_ = c.client.Set(ctx, studentMatricPrefix+student.MatricNo, student.ID, c.ttl)
}

// GetStudent returns a cached student by id, email or matric key, or nil on
// any miss or decode failure.
func (c *PrincipalCache) GetStudent(ctx context.Context, id, email, matricNo string) *models.Student {
	if id == "" && email != "" {
		id = c.resolve(ctx, studentEmailPrefix+email)
	}
	if id == "" && matricNo != "" {
		id = c.resolve(ctx, studentMatricPrefix+matricNo)
	}
	if id == "" {
		return nil
	}

	raw, err := c.client.Get(ctx, studentIDPrefix+id)
	if err != nil {
		return nil
	}

	var cached cachedStudent
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil
	}

	return &models.Student{
		ID:           cached.ID,
		FullName:     cached.FullName,
		MatricNo:     cached.MatricNo,
		Email:        cached.Email,
		PhoneNo:      cached.PhoneNo,
		PasswordHash: cached.PasswordHash,
		IsVerified:   cached.IsVerified,
		Bucket:       cached.Bucket,
		CreatedAt:    cached.CreatedAt,
		UpdatedAt:    cached.UpdatedAt,
	}
}

// InvalidateStudent drops every key for a student. Called before any
// state-changing write commits its result to callers.
func (c *PrincipalCache) InvalidateStudent(ctx context.Context, student *models.Student) {
	err := c.client.Del(ctx,
		studentIDPrefix+student.ID,
		studentEmailPrefix+student.Email,
		studentMatricPrefix+student.MatricNo)
	if err != nil && !errors.Is(err, client.ErrKeyNotFound) {
		util.Debug("Failed to invalidate student cache",
			zap.String("student_id", student.ID), zap.Error(err))
	}
}

type cachedDriver struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PhoneNo      string    `json:"phoneNo"`
	PasswordHash string    `json:"passwordHash"`
	Bucket       int       `json:"bucket"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (c *PrincipalCache) SetDriver(ctx context.Context, driver *models.Driver) {
	payload, err := json.Marshal(cachedDriver{
		ID:           driver.ID,
		FullName:     driver.FullName,
		Email:        driver.Email,
		PhoneNo:      driver.PhoneNo,
		PasswordHash: driver.PasswordHash,
		Bucket:       driver.Bucket,
		CreatedAt:    driver.CreatedAt,
		UpdatedAt:    driver.UpdatedAt,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, driverEmailPrefix+driver.Email, string(payload), c.ttl); err != nil {
		util.Debug("Failed to cache driver", zap.String("driver_id", driver.ID), zap.Error(err))
	}
}

func (c *PrincipalCache) GetDriver(ctx context.Context, email string) *models.Driver {
	raw, err := c.client.Get(ctx, driverEmailPrefix+email)
	if err != nil {
		return nil
	}

	var cached cachedDriver
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil
	}

	return &models.Driver{
		ID:           cached.ID,
		FullName:     cached.FullName,
		Email:        cached.Email,
		PhoneNo:      cached.PhoneNo,
		PasswordHash: cached.PasswordHash,
		Bucket:       cached.Bucket,
		CreatedAt:    cached.CreatedAt,
		UpdatedAt:    cached.UpdatedAt,
	}
}

func (c *PrincipalCache) resolve(ctx context.Context, key string) string {
	id, err := c.client.Get(ctx, key)
	if err != nil {
		return ""
	}
	return id
}
