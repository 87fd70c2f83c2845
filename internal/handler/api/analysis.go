package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/service/ratelimit"
	"FinScope/internal/services/predictive"
	"FinScope/internal/usecase"
	xhttp "FinScope/pkg/http"
	xlogger "FinScope/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Analyses is what the handler needs from the analysis use case.
type Analyses interface {
	Run(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisReport, error)
	LatestReport(ctx context.Context, symbol string) (*models.AnalysisReport, error)
	Symbols(ctx context.Context, limit int) ([]string, error)
}

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// AnalysisEchoHandler serves the analysis API.
type AnalysisEchoHandler struct {
	logger   *xlogger.Logger
	analyses Analyses
	rl       *ratelimit.Limiter
	checks   map[string]HealthCheck
}

type HandlerOption func(*AnalysisEchoHandler)

// WithRateLimiter throttles POST /api/analysis per client IP.
func WithRateLimiter(rl *ratelimit.Limiter) HandlerOption {
	return func(h *AnalysisEchoHandler) { h.rl = rl }
}

// WithHealthCheck adds a named dependency to GET /health.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *AnalysisEchoHandler) { h.checks[name] = check }
}

func NewAnalysisEchoHandler(logger *xlogger.Logger, analyses Analyses, opts ...HandlerOption) *AnalysisEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &AnalysisEchoHandler{logger: logger, analyses: analyses, checks: map[string]HealthCheck{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.POST("/analysis", h.RunAnalysis)
	g.GET("/analysis/latest", h.LatestReport)
	g.GET("/symbols", h.Symbols)
	g.POST("/performance", h.Performance)
}

func (h *AnalysisEchoHandler) RunAnalysis(c echo.Context) error {
	if h.rl != nil && !h.rl.Allow(c.RealIP()+":analysis") {
		h.logger.Warn("analysis rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many analysis requests"))
	}
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.analyses.Run(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "analysis", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *AnalysisEchoHandler) LatestReport(c echo.Context) error {
	req := &models.LatestReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report, err := h.analyses.LatestReport(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "latest report", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	return xhttp.SuccessResponse(c, report)
}

func (h *AnalysisEchoHandler) Symbols(c echo.Context) error {
	req := &models.SymbolsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbols, err := h.analyses.Symbols(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "symbols", err)
	}
	return xhttp.ListResponse(c, symbols, int64(len(symbols)))
}

func (h *AnalysisEchoHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := usecase.EvaluatePerformance(*req)
	if err != nil {
		return h.fail(c, "performance", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", xlogger.String("dependency", name), xlogger.Error(err))
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	return xhttp.DataResponse(c, code, status)
}

// fail maps use case errors onto the API error envelope.
func (h *AnalysisEchoHandler) fail(c echo.Context, op string, err error) error {
	var ae *predictive.AnalysisError
	msg := err.Error()
	if errors.As(err, &ae) {
		msg = ae.Msg
	}

	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest), errors.Is(err, predictive.ErrConfiguration):
		appErr = xhttp.BadRequestError(msg)
	case errors.Is(err, predictive.ErrDataShape):
		appErr = xhttp.UnprocessableError(msg)
	case errors.Is(err, domrepo.ErrNotFound):
		appErr = xhttp.NotFoundError(msg)
	case errors.Is(err, usecase.ErrAnalysisInProgress):
		appErr = xhttp.ConflictError(msg)
	default:
		h.logger.Error(op+" failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	h.logger.Info(op+" rejected", xlogger.Error(err), xlogger.Int("status", appErr.Status))
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}
