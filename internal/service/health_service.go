package service

import (
	"context"
	"sync"
	"time"

	"docubot-be/internal/dto"
	"docubot-be/internal/pkg/logger"
	"docubot-be/internal/repository/contract"
	"docubot-be/pkg/events"
)

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthEmpty    = "empty"
)

// Pinger is satisfied by the Ollama embedding provider.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IngestStatus remembers the latest corpus ingest event seen on the bus.
type IngestStatus struct {
	mu   sync.RWMutex
	last events.Event
}

func NewIngestStatus() *IngestStatus {
	return &IngestStatus{}
}

// Record has the signature of a nats.EventHandler.
func (s *IngestStatus) Record(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || !event.Timestamp().Before(s.last.Timestamp()) {
		s.last = event
	}
	return nil
}

func (s *IngestStatus) Last() events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

type IHealthService interface {
	Check(ctx context.Context) *dto.HealthResponse
}

type healthService struct {
	store   contract.PassageReader
	model   Pinger
	status  *IngestStatus
	timeout time.Duration
	logger  logger.ILogger
}

// NewHealthService builds the health check. model and status may be nil.
func NewHealthService(store contract.PassageReader, model Pinger, status *IngestStatus, timeout time.Duration, log logger.ILogger) IHealthService {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &healthService{store: store, model: model, status: status, timeout: timeout, logger: log}
}

func (s *healthService) Check(ctx context.Context) *dto.HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := &dto.HealthResponse{Status: HealthOK, StoreReachable: true, ModelReachable: true}

	count, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn("HealthService", "Vector store unreachable", map[string]interface{}{"error": err.Error()})
		res.StoreReachable = false
		res.Status = HealthDegraded
	}
	res.Passages = count

	if s.model != nil {
		if err := s.model.Ping(ctx); err != nil {
			s.logger.Warn("HealthService", "Model backend unreachable", map[string]interface{}{"error": err.Error()})
			res.ModelReachable = false
			res.Status = HealthDegraded
		}
	}

	if res.Status == HealthOK && count == 0 {
		res.Status = HealthEmpty
	}

	if s.status != nil {
		if last := s.status.Last(); last != nil {
			res.LastIngest = &dto.LastIngestResponse{
				Type:       last.EventType(),
				OccurredAt: last.Timestamp(),
				Details:    last.Payload(),
			}
		}
	}
	return res
}
