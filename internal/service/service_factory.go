package service

import (
	"github.com/favourolaoye/boride-v3-api/internal/config"
	"github.com/favourolaoye/boride-v3-api/internal/events"
	"github.com/favourolaoye/boride-v3-api/internal/hashing"
	"github.com/favourolaoye/boride-v3-api/internal/mailer"
	"github.com/favourolaoye/boride-v3-api/internal/otp"
	"github.com/favourolaoye/boride-v3-api/internal/repository"
	redisrepo "github.com/favourolaoye/boride-v3-api/internal/repository/redis"
	"github.com/favourolaoye/boride-v3-api/internal/token"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg         *config.Config
	studentRepo repository.StudentStore
	driverRepo  repository.DriverStore
	cache       *redisrepo.PrincipalCache
	hasher      *hashing.Hasher
	otpGen      *otp.Generator
	issuer      *token.Issuer
	mail        mailer.Sender
	dispatcher  *events.Dispatcher

	studentService *StudentService
	driverService  *DriverService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(
	cfg *config.Config,
	studentRepo repository.StudentStore,
	driverRepo repository.DriverStore,
	cache *redisrepo.PrincipalCache,
	hasher *hashing.Hasher,
	otpGen *otp.Generator,
	issuer *token.Issuer,
	mail mailer.Sender,
	dispatcher *events.Dispatcher,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:         cfg,
		studentRepo: studentRepo,
		driverRepo:  driverRepo,
		cache:       cache,
		hasher:      hasher,
		otpGen:      otpGen,
		issuer:      issuer,
		mail:        mail,
		dispatcher:  dispatcher,
	}
}

// StudentService returns the student service instance (singleton)
func (f *ServiceFactory) StudentService() *StudentService {
	if f.studentService == nil {
		f.studentService = NewStudentService(
			f.studentRepo,
			f.cache,
			f.hasher,
			f.otpGen,
			f.issuer,
			f.mail,
			f.dispatcher,
			f.cfg,
		)
	}
	return f.studentService
}

// DriverService returns the driver service instance (singleton)
func (f *ServiceFactory) DriverService() *DriverService {
	if f.driverService == nil {
		f.driverService = NewDriverService(
			f.driverRepo,
			f.cache,
			f.hasher,
			f.issuer,
			f.dispatcher,
			f.cfg,
		)
	}
	return f.driverService
}
