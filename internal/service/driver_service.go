package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/favourolaoye/boride-v3-api/internal/config"
	"github.com/favourolaoye/boride-v3-api/internal/events"
	"github.com/favourolaoye/boride-v3-api/internal/hashing"
	"github.com/favourolaoye/boride-v3-api/internal/models"
	"github.com/favourolaoye/boride-v3-api/internal/repository"
	redisrepo "github.com/favourolaoye/boride-v3-api/internal/repository/redis"
	"github.com/favourolaoye/boride-v3-api/internal/token"
	"github.com/favourolaoye/boride-v3-api/internal/util"
)

// DriverService handles driver registration and login. Drivers have no
// email-verification step: a registered driver logs in immediately. The
// asymmetry with students is intentional.
type DriverService struct {
	repo       repository.DriverStore
	cache      *redisrepo.PrincipalCache
	hasher     *hashing.Hasher
	issuer     *token.Issuer
	dispatcher *events.Dispatcher
	tokenTTL   time.Duration
}

type DriverRegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	PhoneNo  string `json:"phoneNo"`
	Password string `json:"password"`
}

type DriverLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewDriverService(
	repo repository.DriverStore,
	cache *redisrepo.PrincipalCache,
	hasher *hashing.Hasher,
	issuer *token.Issuer,
	dispatcher *events.Dispatcher,
	cfg *config.Config,
) *DriverService {
	return &DriverService{
		repo:       repo,
		cache:      cache,
		hasher:     hasher,
		issuer:     issuer,
		dispatcher: dispatcher,
		tokenTTL:   cfg.JWT.DriverTokenTTL,
	}
}

// Register creates a driver usable for login immediately.
func (s *DriverService) Register(ctx context.Context, req *DriverRegisterRequest) (*models.Driver, error) {
	if req.FullName == "" || req.Email == "" || req.PhoneNo == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrValidation)
	}

	email := util.NormalizeEmail(req.Email)
	if !isValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}

	// Optimization only: the LWT insert decides conflicts.
	if _, err := s.repo.FindDriverByEmail(ctx, email); err == nil {
		return nil, ErrEmailRegistered
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	driver := &models.Driver{
		FullName:     util.SanitizeInput(req.FullName),
		Email:        email,
		PhoneNo:      util.SanitizeInput(req.PhoneNo),
		PasswordHash: passwordHash,
	}

	if err := s.repo.CreateDriver(ctx, driver); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailRegistered
		}
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	if s.cache != nil {
		s.cache.SetDriver(ctx, driver)
	}
	if s.dispatcher != nil {
		s.dispatcher.Emit(ctx, "driver", driver.ID, models.EventDriverRegistered, "")
	}

	util.Info("Driver registered", zap.String("driver_id", driver.ID))
	return driver, nil
}

// Login authenticates a driver by email. No verification gate and no login
// notification (drivers receive none in this product).
func (s *DriverService) Login(ctx context.Context, req *DriverLoginRequest) (string, *models.Driver, error) {
	if req.Email == "" || req.Password == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	email := util.NormalizeEmail(req.Email)

	var driver *models.Driver
	if s.cache != nil {
		driver = s.cache.GetDriver(ctx, email)
	}
	if driver == nil {
		var err error
		driver, err = s.repo.FindDriverByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", nil, ErrNotFound
			}
			return "", nil, err
		}
		if s.cache != nil {
			s.cache.SetDriver(ctx, driver)
		}
	}

	if err := s.hasher.Compare(req.Password, driver.PasswordHash); err != nil {
		if errors.Is(err, hashing.ErrMismatch) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	signed, err := s.issuer.Sign("driver", driver.ID, driver.Email, "", s.tokenTTL)
	if err != nil {
		return "", nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.Emit(ctx, "driver", driver.ID, models.EventDriverLogin, "")
	}

	util.Info("Driver logged in", zap.String("driver_id", driver.ID))
	return signed, driver, nil
}

func (s *DriverService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
