package repository

import (
	"context"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
)

// KafkaEvents publishes domain events keyed by symbol so a symbol's events stay ordered.
// It also carries aggregated error logs for the log collector.
type KafkaEvents struct {
	producer          *pkgkafka.Producer
	predictionsTopic  string
	calibrationsTopic string
}

func NewKafkaEvents(producer *pkgkafka.Producer, predictionsTopic, calibrationsTopic string) *KafkaEvents {
	return &KafkaEvents{producer: producer, predictionsTopic: predictionsTopic, calibrationsTopic: calibrationsTopic}
}

func (p *KafkaEvents) PublishPrediction(ctx context.Context, ev models.PredictionEvent) error {
	return p.producer.Publish(ctx, p.predictionsTopic, []byte(ev.Symbol), ev)
}

func (p *KafkaEvents) PublishCalibration(ctx context.Context, ev models.CalibrationEvent) error {
	return p.producer.Publish(ctx, p.calibrationsTopic, []byte(ev.Record.Symbol), ev)
}

func (p *KafkaEvents) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaEvents) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var (
	_ domrepo.EventPublisher = (*KafkaEvents)(nil)
	_ applogger.Publisher    = (*KafkaEvents)(nil)
)
