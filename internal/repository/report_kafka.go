package repository

import (
	"context"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
)

// KeyedPublisher is satisfied by *kafka.Producer.
type KeyedPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaReportPublisher emits a compact summary per finished report, keyed by symbol
// so that one symbol's reports stay ordered on a partition.
type KafkaReportPublisher struct {
	producer KeyedPublisher
	topic    string
}

var _ domrepo.ReportPublisher = (*KafkaReportPublisher)(nil)

func NewKafkaReportPublisher(producer KeyedPublisher, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, r *models.AnalysisReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Symbol), r.Summary())
}
