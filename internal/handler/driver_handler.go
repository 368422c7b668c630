package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/favourolaoye/boride-v3-api/internal/service"
	"github.com/favourolaoye/boride-v3-api/internal/util"
)

// DriverHandler handles HTTP requests for driver account operations
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new driver handler
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterRoutes registers all driver routes
func (h *DriverHandler) RegisterRoutes(router chi.Router) {
	router.Route("/driver", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
}

// Register handles driver registration. Drivers can log in immediately,
// there is no verification step.
func (h *DriverHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.DriverRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	driver, err := h.driverService.Register(ctx, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to register driver")
		return
	}

	data := map[string]interface{}{
		"driverId": driver.ID,
		"driver":   driver.Public(),
	}
	respondWithJSON(w, http.StatusCreated, successResponse(data, "Registration successful"))
	util.Info("Driver registered via HTTP",
		zap.String("driver_id", driver.ID),
		zap.Duration("duration", time.Since(startTime)),
	)
}

// Login handles driver login
func (h *DriverHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.DriverLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	token, driver, err := h.driverService.Login(ctx, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Login failed")
		return
	}

	data := map[string]interface{}{
		"token":  token,
		"driver": driver.Public(),
	}
	respondWithJSON(w, http.StatusOK, successResponse(data, "Login successful"))
	util.Info("Driver logged in via HTTP",
		zap.String("driver_id", driver.ID),
		zap.Duration("duration", time.Since(startTime)),
	)
}
