package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/favourolaoye/boride-v3-api/internal/service"
	"github.com/favourolaoye/boride-v3-api/internal/util"
)

// StudentHandler handles HTTP requests for student account operations
type StudentHandler struct {
	studentService *service.StudentService
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(studentService *service.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resendOTPRequest struct {
	Email     string `json:"email"`
	StudentID string `json:"studentId"`
}

// RegisterRoutes registers all student routes
func (h *StudentHandler) RegisterRoutes(router chi.Router) {
	router.Route("/student", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/verify-email", h.VerifyEmail)
		r.Post("/resend-otp", h.ResendOTP)
		r.Post("/login", h.Login)
	})
}

// Register handles student registration. The account starts unverified and
// a verification code is emailed to the student.
func (h *StudentHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.StudentRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	student, err := h.studentService.Register(ctx, &req)
	if err != nil {
		// The record exists even when the verification email failed; the
		// client is told to use resend-otp.
		if errors.Is(err, service.ErrNotification) && student != nil {
			respondWithError(w, http.StatusInternalServerError, err,
				"Account created but verification email failed; request a new code")
			return
		}
		respondWithError(w, getStatusCode(err), err, "Failed to register student")
		return
	}

	data := map[string]interface{}{
		"studentId": student.ID,
		"student":   student.Public(),
	}
	respondWithJSON(w, http.StatusCreated, successResponse(data, "Registration successful, verification code sent"))
	util.Info("Student registered via HTTP",
		zap.String("student_id", student.ID),
		zap.Duration("duration", time.Since(startTime)),
	)
}

// VerifyEmail handles OTP verification
func (h *StudentHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	student, err := h.studentService.VerifyEmail(ctx, req.Email, req.OTP)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to verify email")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(student.Public(), "Email verified successfully"))
}

// ResendOTP rotates the verification code and emails the new one
func (h *StudentHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	student, err := h.studentService.ResendOTP(ctx, req.Email, req.StudentID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to resend verification code")
		return
	}

	data := map[string]interface{}{"email": student.Email}
	respondWithJSON(w, http.StatusOK, successResponse(data, "Verification code sent"))
}

// Login handles student login. Unverified accounts are rejected before the
// password is checked.
func (h *StudentHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.StudentLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	token, student, err := h.studentService.Login(ctx, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Login failed")
		return
	}

	data := map[string]interface{}{
		"token":   token,
		"student": student.Public(),
	}
	respondWithJSON(w, http.StatusOK, successResponse(data, "Login successful"))
	util.Info("Student logged in via HTTP",
		zap.String("student_id", student.ID),
		zap.Duration("duration", time.Since(startTime)),
	)
}
