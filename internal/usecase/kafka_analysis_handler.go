package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/predictive"
	pkgkafka "FinScope/pkg/kafka"
	"FinScope/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// AnalysisRunner is satisfied by *AnalysisUseCase.
type AnalysisRunner interface {
	Run(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisReport, error)
}

// AnalysisRequestHandler runs analyses requested on a Kafka topic.
// Malformed or unanalysable requests are permanent failures and go to the DLQ.
type AnalysisRequestHandler struct {
	topic    string
	runner   AnalysisRunner
	validate *validator.Validate
	l        *logger.Logger
}

var _ pkgkafka.MessageHandler = (*AnalysisRequestHandler)(nil)

func NewAnalysisRequestHandler(topic string, runner AnalysisRunner, l *logger.Logger) *AnalysisRequestHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &AnalysisRequestHandler{topic: topic, runner: runner, validate: validator.New(), l: l}
}

func (h *AnalysisRequestHandler) Topic() string { return h.topic }

// incoming message schema: models.AnalysisRequest as JSON
func (h *AnalysisRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.AnalysisRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return fmt.Errorf("%w: decode request: %v", pkgkafka.ErrPermanent, err)
	}
	if err := h.validate.StructCtx(ctx, &req); err != nil {
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	}

	report, err := h.runner.Run(ctx, req)
	switch {
	case err == nil:
		h.l.Info("requested analysis done",
			logger.String("symbol", report.Symbol),
			logger.String("id", report.ID),
		)
		return nil
	case errors.Is(err, ErrAnalysisInProgress):
		// the running analysis answers this request too
		h.l.Info("analysis request coalesced", logger.String("symbol", req.Symbol))
		return nil
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, predictive.ErrConfiguration),
		errors.Is(err, predictive.ErrDataShape):
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	default:
		return err
	}
}
