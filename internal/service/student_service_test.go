package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favourolaoye/boride-v3-api/internal/config"
	"github.com/favourolaoye/boride-v3-api/internal/hashing"
	"github.com/favourolaoye/boride-v3-api/internal/models"
	"github.com/favourolaoye/boride-v3-api/internal/otp"
	"github.com/favourolaoye/boride-v3-api/internal/repository"
	"github.com/favourolaoye/boride-v3-api/internal/repository/memory"
	"github.com/favourolaoye/boride-v3-api/internal/token"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// captureMailer records sends, optionally failing them. Safe for the
// fire-and-forget login alert goroutine.
type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *captureMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return assert.AnError
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:          "test-secret",
			StudentTokenTTL: time.Hour,
			DriverTokenTTL:  7 * 24 * time.Hour,
		},
	}
}

func newStudentFixture(t *testing.T) (*StudentService, *memory.StudentStore, *captureMailer) {
	t.Helper()
	store := memory.NewStudentStore()
	mail := &captureMailer{}
	svc := NewStudentService(
		store,
		nil,
		hashing.NewHasher(),
		otp.NewGenerator(15*time.Minute),
		token.NewIssuer("test-secret"),
		mail,
		nil,
		testConfig(),
	)
	return svc, store, mail
}

func registerStudent(t *testing.T, svc *StudentService) *StudentRegisterRequest {
	t.Helper()
	req := &StudentRegisterRequest{
		FullName: "Jane Doe",
		MatricNo: "21/1234",
		Email:    "jane@uni.edu",
		PhoneNo:  "08030000000",
		Password: "s3cret-pass",
	}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	return req
}

// storedOTP reads the current code straight from the store.
func storedOTP(t *testing.T, store *memory.StudentStore, email string) string {
	t.Helper()
	student, err := store.FindStudent(context.Background(), repository.StudentLookup{Email: email})
	require.NoError(t, err)
	require.NotNil(t, student.EmailOTP)
	return *student.EmailOTP
}

func TestStudentRegisterCreatesUnverifiedAccount(t *testing.T) {
	svc, store, mail := newStudentFixture(t)
	ctx := context.Background()

	student, err := svc.Register(ctx, &StudentRegisterRequest{
		FullName: "Jane Doe",
		MatricNo: "21/1234",
		Email:    "Jane@Uni.EDU",
		PhoneNo:  "08030000000",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, student.ID)
	assert.False(t, student.IsVerified)
	assert.Equal(t, "jane@uni.edu", student.Email, "email is normalized to lower case")
	assert.NotEqual(t, "s3cret-pass", student.PasswordHash)

	stored, err := store.FindStudent(ctx, repository.StudentLookup{Email: "jane@uni.edu"})
	require.NoError(t, err)
	require.NotNil(t, stored.EmailOTP)
	assert.Len(t, *stored.EmailOTP, 6)
	require.NotNil(t, stored.OTPExpiresAt)

	require.Equal(t, 1, mail.count())
	assert.Equal(t, "jane@uni.edu", mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Body, *stored.EmailOTP)
}

func TestStudentRegisterValidation(t *testing.T) {
	svc, _, _ := newStudentFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  StudentRegisterRequest
	}{
		{"missing fields", StudentRegisterRequest{Email: "jane@uni.edu"}},
		{"bad email", StudentRegisterRequest{FullName: "Jane", MatricNo: "21/1234", Email: "not-an-email", PhoneNo: "080", Password: "pw"}},
		{"bad matric", StudentRegisterRequest{FullName: "Jane", MatricNo: "ABC/99", Email: "jane@uni.edu", PhoneNo: "080", Password: "pw"}},
		{"matric missing slash", StudentRegisterRequest{FullName: "Jane", MatricNo: "211234", Email: "jane@uni.edu", PhoneNo: "080", Password: "pw"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := svc.Register(ctx, &req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestStudentRegisterDuplicates(t *testing.T) {
	svc, _, _ := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)

	_, err := svc.Register(ctx, &StudentRegisterRequest{
		FullName: "Copy Cat",
		MatricNo: "22/5678",
		Email:    "jane@uni.edu",
		PhoneNo:  "080",
		Password: "pw",
	})
	assert.ErrorIs(t, err, ErrEmailRegistered)

	_, err = svc.Register(ctx, &StudentRegisterRequest{
		FullName: "Copy Cat",
		MatricNo: "21/1234",
		Email:    "other@uni.edu",
		PhoneNo:  "080",
		Password: "pw",
	})
	assert.ErrorIs(t, err, ErrMatricRegistered)
}

func TestStudentRegisterMailFailureKeepsRecord(t *testing.T) {
	svc, store, mail := newStudentFixture(t)
	mail.fail = true
	ctx := context.Background()

	student, err := svc.Register(ctx, &StudentRegisterRequest{
		FullName: "Jane Doe",
		MatricNo: "21/1234",
		Email:    "jane@uni.edu",
		PhoneNo:  "080",
		Password: "pw",
	})
	assert.ErrorIs(t, err, ErrNotification)
	require.NotNil(t, student)

	// The account exists and can still be verified via resend later.
	stored, err := store.FindStudent(ctx, repository.StudentLookup{Email: "jane@uni.edu"})
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
	require.NotNil(t, stored.EmailOTP)
}

func TestVerifyEmailFlow(t *testing.T) {
	svc, store, _ := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	code := storedOTP(t, store, "jane@uni.edu")

	student, err := svc.VerifyEmail(ctx, "jane@uni.edu", code)
	require.NoError(t, err)
	assert.True(t, student.IsVerified)
	assert.Nil(t, student.EmailOTP)

	// Verified is a terminal state; a second attempt with any code reports it.
	_, err = svc.VerifyEmail(ctx, "jane@uni.edu", code)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyEmailWrongCode(t *testing.T) {
	svc, store, _ := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	code := storedOTP(t, store, "jane@uni.edu")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err := svc.VerifyEmail(ctx, "jane@uni.edu", wrong)
	assert.ErrorIs(t, err, ErrInvalidOTP)

	// The correct code still works after a failed attempt.
	_, err = svc.VerifyEmail(ctx, "jane@uni.edu", code)
	assert.NoError(t, err)
}

func TestVerifyEmailUnknownAccount(t *testing.T) {
	svc, _, _ := newStudentFixture(t)

	_, err := svc.VerifyEmail(context.Background(), "ghost@uni.edu", "123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	svc, store, _ := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	code := storedOTP(t, store, "jane@uni.edu")

	stored, err := store.FindStudent(ctx, repository.StudentLookup{Email: "jane@uni.edu"})
	require.NoError(t, err)
	expiresAt := *stored.OTPExpiresAt

	// Exactly at the expiry instant the code is already dead.
	svc.now = func() time.Time { return expiresAt }
	_, err = svc.VerifyEmail(ctx, "jane@uni.edu", code)
	assert.ErrorIs(t, err, ErrExpiredOTP)

	svc.now = func() time.Time { return expiresAt.Add(time.Hour) }
	_, err = svc.VerifyEmail(ctx, "jane@uni.edu", code)
	assert.ErrorIs(t, err, ErrExpiredOTP)

	// Expiry wins over code mismatch: a wrong code after expiry still
	// reports expiry.
	_, err = svc.VerifyEmail(ctx, "jane@uni.edu", "000000")
	assert.ErrorIs(t, err, ErrExpiredOTP)
}

func TestResendOTPInvalidatesPriorCode(t *testing.T) {
	svc, store, mail := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	oldCode := storedOTP(t, store, "jane@uni.edu")

	_, err := svc.ResendOTP(ctx, "jane@uni.edu", "")
	require.NoError(t, err)
	newCode := storedOTP(t, store, "jane@uni.edu")

	if oldCode != newCode {
		_, err = svc.VerifyEmail(ctx, "jane@uni.edu", oldCode)
		assert.ErrorIs(t, err, ErrInvalidOTP, "rotated-out code must be rejected")
	}

	_, err = svc.VerifyEmail(ctx, "jane@uni.edu", newCode)
	assert.NoError(t, err)
	assert.Equal(t, 2, mail.count())
}

func TestResendOTPByStudentID(t *testing.T) {
	svc, store, _ := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)

	stored, err := store.FindStudent(ctx, repository.StudentLookup{Email: "jane@uni.edu"})
	require.NoError(t, err)

	student, err := svc.ResendOTP(ctx, "", stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@uni.edu", student.Email)
}

func TestResendOTPAfterVerification(t *testing.T) {
	svc, store, _ := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	code := storedOTP(t, store, "jane@uni.edu")

	_, err := svc.VerifyEmail(ctx, "jane@uni.edu", code)
	require.NoError(t, err)

	_, err = svc.ResendOTP(ctx, "jane@uni.edu", "")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestLoginRequiresVerification(t *testing.T) {
	svc, store, _ := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)

	// Correct password, unverified account: the gate fires first and the
	// response says nothing about credential correctness.
	_, _, err := svc.Login(ctx, &StudentLoginRequest{Email: "jane@uni.edu", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrNotVerified)

	_, _, err = svc.Login(ctx, &StudentLoginRequest{Email: "jane@uni.edu", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrNotVerified)

	code := storedOTP(t, store, "jane@uni.edu")
	_, err = svc.VerifyEmail(ctx, "jane@uni.edu", code)
	require.NoError(t, err)

	tokenStr, student, err := svc.Login(ctx, &StudentLoginRequest{Email: "jane@uni.edu", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.Equal(t, "jane@uni.edu", student.Email)

	claims, err := token.NewIssuer("test-secret").Verify(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "student", claims.PrincipalType)
	assert.Equal(t, student.ID, claims.PrincipalID)
	assert.Equal(t, "21/1234", claims.MatricNo)
}

func TestLoginByMatricNumber(t *testing.T) {
	svc, store, _ := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	code := storedOTP(t, store, "jane@uni.edu")
	_, err := svc.VerifyEmail(ctx, "jane@uni.edu", code)
	require.NoError(t, err)

	tokenStr, _, err := svc.Login(ctx, &StudentLoginRequest{MatricNo: "21/1234", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
}

func TestLoginErrors(t *testing.T) {
	svc, store, _ := newStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	code := storedOTP(t, store, "jane@uni.edu")
	_, err := svc.VerifyEmail(ctx, "jane@uni.edu", code)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, &StudentLoginRequest{Email: "jane@uni.edu"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Login(ctx, &StudentLoginRequest{Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Login(ctx, &StudentLoginRequest{Email: "ghost@uni.edu", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.Login(ctx, &StudentLoginRequest{Email: "jane@uni.edu", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// raceStudentStore interposes a one-shot hook between the service's read and
// its conditional write, simulating a concurrent request winning the race.
type raceStudentStore struct {
	repository.StudentStore
	beforeMarkVerified func()
	beforeRotateOTP    func()
}

func (s *raceStudentStore) MarkVerified(ctx context.Context, student *models.Student, expectedOTP string) error {
	if hook := s.beforeMarkVerified; hook != nil {
		s.beforeMarkVerified = nil
		hook()
	}
	return s.StudentStore.MarkVerified(ctx, student, expectedOTP)
}

func (s *raceStudentStore) RotateOTP(ctx context.Context, student *models.Student, expectedOTP, newOTP string, expiresAt time.Time) error {
	if hook := s.beforeRotateOTP; hook != nil {
		s.beforeRotateOTP = nil
		hook()
	}
	return s.StudentStore.RotateOTP(ctx, student, expectedOTP, newOTP, expiresAt)
}

func newRacingStudentFixture(t *testing.T) (*StudentService, *raceStudentStore, *memory.StudentStore) {
	t.Helper()
	store := memory.NewStudentStore()
	race := &raceStudentStore{StudentStore: store}
	svc := NewStudentService(
		race,
		nil,
		hashing.NewHasher(),
		otp.NewGenerator(15*time.Minute),
		token.NewIssuer("test-secret"),
		&captureMailer{},
		nil,
		testConfig(),
	)
	return svc, race, store
}

func TestVerifyEmailLostRaceReportsAlreadyVerified(t *testing.T) {
	svc, race, store := newRacingStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	code := storedOTP(t, store, "jane@uni.edu")

	// A second verify request commits between this request's read and its
	// conditional update.
	race.beforeMarkVerified = func() {
		fresh, err := store.FindStudent(ctx, repository.StudentLookup{Email: "jane@uni.edu"})
		require.NoError(t, err)
		require.NoError(t, store.MarkVerified(ctx, fresh, code))
	}

	_, err := svc.VerifyEmail(ctx, "jane@uni.edu", code)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	stored, err := store.FindStudent(ctx, repository.StudentLookup{Email: "jane@uni.edu"})
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
}

func TestResendOTPRetriesAfterConcurrentResend(t *testing.T) {
	svc, race, store := newRacingStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	oldCode := storedOTP(t, store, "jane@uni.edu")

	// A concurrent resend rotates the code first; the conditional write sees
	// a stale pre-state and the service retries once against the fresh record.
	race.beforeRotateOTP = func() {
		fresh, err := store.FindStudent(ctx, repository.StudentLookup{Email: "jane@uni.edu"})
		require.NoError(t, err)
		expiry := time.Now().UTC().Add(15 * time.Minute)
		require.NoError(t, store.RotateOTP(ctx, fresh, oldCode, "111111", expiry))
	}

	_, err := svc.ResendOTP(ctx, "jane@uni.edu", "")
	require.NoError(t, err)

	// The retry's code won; both the concurrently written code and the
	// original are dead, and the current code still verifies.
	winner := storedOTP(t, store, "jane@uni.edu")
	assert.NotEqual(t, "111111", winner)
	assert.NotEqual(t, oldCode, winner)

	_, err = svc.VerifyEmail(ctx, "jane@uni.edu", winner)
	assert.NoError(t, err)
}

func TestResendOTPLostRaceToVerification(t *testing.T) {
	svc, race, store := newRacingStudentFixture(t)
	ctx := context.Background()
	registerStudent(t, svc)
	code := storedOTP(t, store, "jane@uni.edu")

	// The student verifies while the resend is in flight; the resend must
	// report the terminal state instead of rotating a verified record.
	race.beforeRotateOTP = func() {
		fresh, err := store.FindStudent(ctx, repository.StudentLookup{Email: "jane@uni.edu"})
		require.NoError(t, err)
		require.NoError(t, store.MarkVerified(ctx, fresh, code))
	}

	_, err := svc.ResendOTP(ctx, "jane@uni.edu", "")
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	stored, err := store.FindStudent(ctx, repository.StudentLookup{Email: "jane@uni.edu"})
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.EmailOTP)
}

func TestMatricValidation(t *testing.T) {
	valid := []string{"21/1234", "00/0000", "99/9999"}
	for _, m := range valid {
		assert.True(t, isValidMatricNumber(m), m)
	}
	invalid := []string{"", "1/1234", "211/234", "21/123", "21/12345", "ab/cdef", "21-1234", " 21/1234"}
	for _, m := range invalid {
		assert.False(t, isValidMatricNumber(m), m)
	}
}
