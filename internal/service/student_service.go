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
	"github.com/favourolaoye/boride-v3-api/internal/mailer"
	"github.com/favourolaoye/boride-v3-api/internal/models"
	"github.com/favourolaoye/boride-v3-api/internal/otp"
	"github.com/favourolaoye/boride-v3-api/internal/repository"
	redisrepo "github.com/favourolaoye/boride-v3-api/internal/repository/redis"
	"github.com/favourolaoye/boride-v3-api/internal/token"
	"github.com/favourolaoye/boride-v3-api/internal/util"
)

// StudentService drives the student auth state machine: register (unverified,
// OTP issued), verify (one-way transition, OTP consumed), resend (rotates the
// code), login (gated on verification).
type StudentService struct {
	repo       repository.StudentStore
	cache      *redisrepo.PrincipalCache
	hasher     *hashing.Hasher
	otpGen     *otp.Generator
	issuer     *token.Issuer
	mail       mailer.Sender
	dispatcher *events.Dispatcher
	tokenTTL   time.Duration
	now        func() time.Time
}

type StudentRegisterRequest struct {
	FullName string `json:"fullName"`
	MatricNo string `json:"matricNo"`
	Email    string `json:"email"`
	PhoneNo  string `json:"phoneNo"`
	Password string `json:"password"`
}

type StudentLoginRequest struct {
	Email    string `json:"email"`
	MatricNo string `json:"matricNo"`
	Password string `json:"password"`
}

func NewStudentService(
	repo repository.StudentStore,
	cache *redisrepo.PrincipalCache,
	hasher *hashing.Hasher,
	otpGen *otp.Generator,
	issuer *token.Issuer,
	mail mailer.Sender,
	dispatcher *events.Dispatcher,
	cfg *config.Config,
) *StudentService {
	return &StudentService{
		repo:       repo,
		cache:      cache,
		hasher:     hasher,
		otpGen:     otpGen,
		issuer:     issuer,
		mail:       mail,
		dispatcher: dispatcher,
		tokenTTL:   cfg.JWT.StudentTokenTTL,
		now:        time.Now,
	}
}

// Register creates an unverified student with a fresh OTP and emails the
// code. The store's unique claims are the conflict authority; the lookups
// before the insert only produce friendlier errors on the common path.
func (s *StudentService) Register(ctx context.Context, req *StudentRegisterRequest) (*models.Student, error) {
	if req.FullName == "" || req.MatricNo == "" || req.Email == "" || req.PhoneNo == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrValidation)
	}

	email := util.NormalizeEmail(req.Email)
	matricNo := util.NormalizeMatric(req.MatricNo)

	if !isValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if !isValidMatricNumber(matricNo) {
		return nil, fmt.Errorf("%w: invalid matric number format", ErrValidation)
	}

	// Optimization only: the LWT insert below still decides conflicts.
	if _, err := s.repo.FindStudent(ctx, repository.StudentLookup{MatricNo: matricNo}); err == nil {
		return nil, ErrMatricRegistered
	}
	if _, err := s.repo.FindStudent(ctx, repository.StudentLookup{Email: email}); err == nil {
		return nil, ErrEmailRegistered
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	code, expiresAt, err := s.otpGen.Generate()
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		FullName:     util.SanitizeInput(req.FullName),
		MatricNo:     matricNo,
		Email:        email,
		PhoneNo:      util.SanitizeInput(req.PhoneNo),
		PasswordHash: passwordHash,
		IsVerified:   false,
		EmailOTP:     &code,
		OTPExpiresAt: &expiresAt,
	}

	if err := s.repo.CreateStudent(ctx, student); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailRegistered
		case errors.Is(err, repository.ErrDuplicateMatric):
			return nil, ErrMatricRegistered
		}
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	if s.cache != nil {
		s.cache.SetStudent(ctx, student)
	}
	s.emit(ctx, models.EventStudentRegistered, student.ID, "")

	// The record is committed either way; a failed send is surfaced so the
	// client knows to use resend, but nothing is rolled back.
	body := mailer.VerificationBody(student.FullName, code, s.otpGen.TTL())
	if err := s.mail.Send(ctx, student.Email, mailer.SubjectVerifyEmail, body); err != nil {
		util.Error("Verification email failed after registration",
			zap.String("student_id", student.ID),
			zap.Error(err))
		return student, fmt.Errorf("%w: %v", ErrNotification, err)
	}

	util.Info("Student registered",
		zap.String("student_id", student.ID),
		zap.String("matric_no", student.MatricNo))

	return student, nil
}

// VerifyEmail consumes an OTP. Expiry and code correctness are independent
// checks with distinct errors; success flips the record to verified and
// clears the code in a single conditional update.
func (s *StudentService) VerifyEmail(ctx context.Context, email, code string) (*models.Student, error) {
	email = util.NormalizeEmail(email)
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and otp are required", ErrValidation)
	}

	// Read from the store, not the cache: the stored code is the pre-state
	// for the conditional update.
	student, err := s.repo.FindStudent(ctx, repository.StudentLookup{Email: email})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if student.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if student.EmailOTP == nil || student.OTPExpiresAt == nil {
		return nil, ErrInvalidOTP
	}
	if otp.Expired(*student.OTPExpiresAt, s.now().UTC()) {
		return nil, ErrExpiredOTP
	}
	if *student.EmailOTP != code {
		return nil, ErrInvalidOTP
	}

	if err := s.repo.MarkVerified(ctx, student, code); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			// Lost a race: someone verified or rotated the code between the
			// read and the update.
			fresh, ferr := s.repo.FindStudent(ctx, repository.StudentLookup{Email: email})
			if ferr == nil && fresh.IsVerified {
				return nil, ErrAlreadyVerified
			}
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateStudent(ctx, student)
	}
	s.emit(ctx, models.EventEmailVerified, student.ID, "")

	util.Info("Student email verified", zap.String("student_id", student.ID))
	return student, nil
}

// ResendOTP rotates the code for an unverified student found by email or id.
// The previous code becomes permanently invalid.
func (s *StudentService) ResendOTP(ctx context.Context, email, studentID string) (*models.Student, error) {
	email = util.NormalizeEmail(email)
	if email == "" && studentID == "" {
		return nil, fmt.Errorf("%w: email or studentId is required", ErrValidation)
	}

	student, err := s.repo.FindStudent(ctx, repository.StudentLookup{ID: studentID, Email: email})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if student.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if student.EmailOTP == nil {
		return nil, ErrAlreadyVerified
	}

	code, expiresAt, err := s.otpGen.Generate()
	if err != nil {
		return nil, err
	}

	if err := s.repo.RotateOTP(ctx, student, *student.EmailOTP, code, expiresAt); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			// Concurrent verify or resend changed the pre-state; retry once
			// against the fresh record.
			fresh, ferr := s.repo.FindStudent(ctx, repository.StudentLookup{ID: student.ID})
			if ferr != nil {
				return nil, ferr
			}
			if fresh.IsVerified || fresh.EmailOTP == nil {
				return nil, ErrAlreadyVerified
			}
			if err := s.repo.RotateOTP(ctx, fresh, *fresh.EmailOTP, code, expiresAt); err != nil {
				return nil, err
			}
			student = fresh
		} else {
			return nil, err
		}
	}

	if s.cache != nil {
		s.cache.InvalidateStudent(ctx, student)
	}
	s.emit(ctx, models.EventOTPResent, student.ID, "")

	body := mailer.VerificationBody(student.FullName, code, s.otpGen.TTL())
	if err := s.mail.Send(ctx, student.Email, mailer.SubjectVerifyEmail, body); err != nil {
		util.Error("Resend email failed after OTP rotation",
			zap.String("student_id", student.ID),
			zap.Error(err))
		return student, fmt.Errorf("%w: %v", ErrNotification, err)
	}

	util.Info("Student OTP resent", zap.String("student_id", student.ID))
	return student, nil
}

// Login authenticates by email or matric number. The verification gate is
// checked strictly before the password compare so an unverified account
// reveals nothing about credential correctness.
func (s *StudentService) Login(ctx context.Context, req *StudentLoginRequest) (string, *models.Student, error) {
	if req.Password == "" {
		return "", nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	email := util.NormalizeEmail(req.Email)
	matricNo := util.NormalizeMatric(req.MatricNo)
	if email == "" && matricNo == "" {
		return "", nil, fmt.Errorf("%w: email or matricNo is required", ErrValidation)
	}

	student := s.cachedStudent(ctx, email, matricNo)
	if student == nil {
		var err error
		student, err = s.repo.FindStudent(ctx, repository.StudentLookup{Email: email, MatricNo: matricNo})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", nil, ErrNotFound
			}
			return "", nil, err
		}
		if s.cache != nil {
			s.cache.SetStudent(ctx, student)
		}
	}

	if !student.IsVerified {
		return "", nil, ErrNotVerified
	}

	if err := s.hasher.Compare(req.Password, student.PasswordHash); err != nil {
		if errors.Is(err, hashing.ErrMismatch) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	signed, err := s.issuer.Sign("student", student.ID, student.Email, student.MatricNo, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}

	s.emit(ctx, models.EventStudentLogin, student.ID, "")
	s.sendLoginAlert(student)

	util.Info("Student logged in", zap.String("student_id", student.ID))
	return signed, student, nil
}

func (s *StudentService) cachedStudent(ctx context.Context, email, matricNo string) *models.Student {
	if s.cache == nil {
		return nil
	}
	return s.cache.GetStudent(ctx, "", email, matricNo)
}

// sendLoginAlert is fire-and-forget: the credential check already succeeded,
// so a mail failure must not fail the login response.
func (s *StudentService) sendLoginAlert(student *models.Student) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		body := mailer.LoginAlertBody(student.FullName, time.Now())
		if err := s.mail.Send(ctx, student.Email, mailer.SubjectLoginAlert, body); err != nil {
			util.Warn("Login alert email failed",
				zap.String("student_id", student.ID),
				zap.Error(err))
		}
	}()
}

func (s *StudentService) emit(ctx context.Context, eventType, studentID, details string) {
	if s.dispatcher != nil {
		s.dispatcher.Emit(ctx, "student", studentID, eventType, details)
	}
}

func (s *StudentService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
