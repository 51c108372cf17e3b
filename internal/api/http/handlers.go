package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/aikernel/internal/api/middleware"
	"github.com/GriffinCanCode/aikernel/internal/domain/service"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/aikernel/internal/shared/utils"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

// StatusClientClosedRequest is returned when the caller went away before the backend answered
const StatusClientClosedRequest = 499

// Version is reported by the root endpoint
const Version = "1.0.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	dispatcher     *service.Dispatcher
	registry       *service.Registry
	metrics        *monitoring.Metrics
	logger         *zap.Logger
	requestTimeout time.Duration
}

// NewHandlers creates a new handler set
func NewHandlers(dispatcher *service.Dispatcher, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		dispatcher: dispatcher,
		registry:   dispatcher.Registry(),
		metrics:    metrics,
		logger:     logger,
	}
}

// WithRequestTimeout bounds every run request; zero means the client decides
func (h *Handlers) WithRequestTimeout(d time.Duration) *Handlers {
	h.requestTimeout = d
	return h
}

// RegisterRoutes mounts every endpoint on router
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	router.GET("/services", h.ListServices)
	router.GET("/services/:capability", h.GetCapability)
	router.POST("/services/:capability/run", h.Run)
	router.PUT("/services/:capability/default", h.SetDefault)

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "aikernel",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service_registry": h.registry.Stats(),
	})
}

// CapabilityInfo describes the services registered for one capability
type CapabilityInfo struct {
	Capability types.Capability `json:"capability"`
	Services   []string         `json:"services"`
	Default    string           `json:"default,omitempty"`
}

func (h *Handlers) capabilityInfo(capability types.Capability) CapabilityInfo {
	def, _ := h.registry.Default(capability)
	return CapabilityInfo{
		Capability: capability,
		Services:   h.registry.List(capability),
		Default:    def,
	}
}

// ListServices lists every capability with its services and default
func (h *Handlers) ListServices(c *gin.Context) {
	capabilities := types.Capabilities()
	infos := make([]CapabilityInfo, 0, len(capabilities))
	for _, capability := range capabilities {
		infos = append(infos, h.capabilityInfo(capability))
	}

	c.JSON(http.StatusOK, gin.H{
		"capabilities": infos,
		"total":        h.registry.Len(),
	})
}

// GetCapability lists the services of one capability
func (h *Handlers) GetCapability(c *gin.Context) {
	capability, ok := parseCapability(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.capabilityInfo(capability))
}

// RunRequest is the body of POST /services/:capability/run
type RunRequest struct {
	Prompt   string          `json:"prompt"`
	Service  string          `json:"service,omitempty"`
	Settings *types.Settings `json:"settings,omitempty"`
}

// RunResponse is the successful result of a run
type RunResponse struct {
	Text      string       `json:"text"`
	Embedding []float32    `json:"embedding,omitempty"`
	Model     string       `json:"model,omitempty"`
	Usage     *types.Usage `json:"usage,omitempty"`
	RequestID string       `json:"request_id"`
}

// Run dispatches a prompt to the named or default service of a capability
func (h *Handlers) Run(c *gin.Context) {
	capability, ok := parseCapability(c)
	if !ok {
		return
	}

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateRunRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var settings types.Settings
	if req.Settings != nil {
		settings = *req.Settings
	}

	rid := middleware.GetRequestID(c)
	ctx := c.Request.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	opts := []service.RunOption{service.WithRequestID(rid)}
	if req.Service != "" {
		opts = append(opts, service.WithService(req.Service))
	}

	resp, err := h.dispatcher.Run(ctx, capability, types.Request{
		Prompt:   req.Prompt,
		Settings: settings,
	}, opts...)
	if err != nil {
		h.writeError(c, err, rid.String())
		return
	}

	c.JSON(http.StatusOK, RunResponse{
		Text:      resp.Text,
		Embedding: resp.Embedding,
		Model:     resp.Model,
		Usage:     resp.Usage,
		RequestID: rid.String(),
	})
}

// SetDefaultRequest is the body of PUT /services/:capability/default
type SetDefaultRequest struct {
	Service string `json:"service" binding:"required"`
}

// SetDefault points a capability's default at a registered service
func (h *Handlers) SetDefault(c *gin.Context) {
	capability, ok := parseCapability(c)
	if !ok {
		return
	}

	var req SetDefaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateServiceName(req.Service, true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registry.SetDefault(capability, req.Service); err != nil {
		h.writeError(c, err, "")
		return
	}

	h.logger.Info("Default service changed",
		zap.String("capability", capability.String()),
		zap.String("service", req.Service),
	)
	c.JSON(http.StatusOK, h.capabilityInfo(capability))
}

func parseCapability(c *gin.Context) (types.Capability, bool) {
	capability, ok := types.ParseCapability(c.Param("capability"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "unknown capability: " + c.Param("capability"),
			"capabilities": types.Capabilities(),
		})
		return "", false
	}
	return capability, true
}

func validateRunRequest(req *RunRequest) error {
	if err := utils.ValidatePrompt(req.Prompt); err != nil {
		return err
	}
	if err := utils.ValidateServiceName(req.Service, false); err != nil {
		return err
	}
	if req.Settings == nil {
		return nil
	}
	if req.Settings.MaxTokens < 0 || req.Settings.NumberOfResponses < 0 {
		return errors.New("settings must not be negative")
	}
	if err := utils.ValidateStopSequences(req.Settings.StopSequences); err != nil {
		return err
	}
	return utils.ValidateJSONDepth(req.Settings.Extra, utils.MaxSettingsDepth)
}

// writeError maps dispatcher errors to HTTP status codes
func (h *Handlers) writeError(c *gin.Context, err error, requestID string) {
	status := http.StatusInternalServerError
	kind := "internal"

	switch {
	case errors.Is(err, service.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNoDefault):
		status, kind = http.StatusConflict, "no_default"
	case errors.Is(err, context.DeadlineExceeded):
		status, kind = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		status, kind = StatusClientClosedRequest, "canceled"
	case errors.Is(err, service.ErrBackend):
		status, kind = http.StatusBadGateway, "backend_error"
	}

	body := gin.H{
		"error": err.Error(),
		"kind":  kind,
	}
	if requestID != "" {
		body["request_id"] = requestID
	}

	var backendErr *service.BackendError
	if errors.As(err, &backendErr) {
		body["service"] = backendErr.Name
		h.logger.Warn("Run failed",
			zap.String("request_id", requestID),
			zap.String("service", backendErr.Name),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	c.JSON(status, body)
}
