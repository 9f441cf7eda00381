package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	"docubot-be/internal/dto"
	"docubot-be/internal/pkg/logger"
	"docubot-be/pkg/events"
	"docubot-be/pkg/rag/ingest"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bmatcuk/doublestar/v4"
)

const ingestModule = "IngestService"

// DocumentIngester stores one document; *ingest.Pipeline implements it.
type DocumentIngester interface {
	IngestDocument(ctx context.Context, doc ingest.Document) (int, error)
}

// MessageBus carries one message per document from discovery to the worker;
// *gochannel.GoChannel implements it.
type MessageBus interface {
	message.Publisher
	message.Subscriber
}

// EventPublisher sends operator events; *nats.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IngestReport struct {
	Root      string
	Documents int
	Passages  int
	Skipped   []string
	Failures  []dto.IngestFailure
	StartedAt time.Time
	Duration  time.Duration
}

func (r *IngestReport) ToResponse() *dto.IngestReportResponse {
	return &dto.IngestReportResponse{
		Root:       r.Root,
		Documents:  r.Documents,
		Passages:   r.Passages,
		Skipped:    r.Skipped,
		Failures:   r.Failures,
		DurationMs: r.Duration.Milliseconds(),
	}
}

type IIngestService interface {
	// IngestCorpus ingests every file under root matching pattern. A failed
	// document does not stop the run; the returned error then wraps
	// ingest.ErrIngestionFailure and the report lists the failures.
	IngestCorpus(ctx context.Context, root, pattern string) (*IngestReport, error)
}

type ingestService struct {
	pubSub    MessageBus
	topicName string
	pipeline  DocumentIngester
	publisher EventPublisher
	logger    logger.ILogger
}

// NewIngestService wires the corpus run. publisher may be nil.
func NewIngestService(
	pubSub MessageBus,
	topicName string,
	pipeline DocumentIngester,
	publisher EventPublisher,
	log logger.ILogger,
) IIngestService {
	return &ingestService{
		pubSub:    pubSub,
		topicName: topicName,
		pipeline:  pipeline,
		publisher: publisher,
		logger:    log,
	}
}

func (s *ingestService) IngestCorpus(ctx context.Context, root, pattern string) (*IngestReport, error) {
	report := &IngestReport{Root: root, StartedAt: time.Now()}

	paths, err := discover(root, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: discover %s in %s: %v", ingest.ErrIngestionFailure, pattern, root, err)
	}
	s.logger.Info(ingestModule, "Discovered documents", map[string]interface{}{
		"root":    root,
		"pattern": pattern,
		"count":   len(paths),
	})

	// a topic per run keeps concurrent runs apart
	topic := s.topicName + "." + watermill.NewShortUUID()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// gochannel drops messages published before anyone subscribes
	messages, err := s.pubSub.Subscribe(runCtx, topic)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe: %v", ingest.ErrIngestionFailure, err)
	}

	// every path ends up either delivered or unsent
	unsent := make(chan dto.IngestFailure, len(paths))
	go s.publishAll(topic, root, paths, unsent)

	for settled := 0; settled < len(paths); settled++ {
		select {
		case msg, ok := <-messages:
			if !ok {
				return s.finish(ctx, report, fmt.Errorf("%w: topic closed after %d of %d documents", ingest.ErrIngestionFailure, settled, len(paths)))
			}
			s.processMessage(runCtx, msg, report)
		case failure := <-unsent:
			report.Failures = append(report.Failures, failure)
		case <-ctx.Done():
			return s.finish(ctx, report, fmt.Errorf("%w: %v", ingest.ErrIngestionFailure, ctx.Err()))
		}
	}

	var runErr error
	if len(report.Failures) > 0 {
		runErr = fmt.Errorf("%w: %d of %d documents failed", ingest.ErrIngestionFailure, len(report.Failures), len(paths))
	}
	return s.finish(ctx, report, runErr)
}

func (s *ingestService) publishAll(topic, root string, paths []string, unsent chan<- dto.IngestFailure) {
	for _, path := range paths {
		payload, err := json.Marshal(dto.IngestDocumentMessage{Root: root, SourcePath: path})
		if err == nil {
			err = s.pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload))
		}
		if err != nil {
			s.logger.Error(ingestModule, "Failed to queue document", map[string]interface{}{"error": err, "source": path})
			unsent <- dto.IngestFailure{SourcePath: path, Error: err.Error()}
		}
	}
}

// processMessage ingests one document. Messages are always acked: the
// pipeline has already retried, and a redelivery would fail the same way.
func (s *ingestService) processMessage(ctx context.Context, msg *message.Message, report *IngestReport) {
	defer msg.Ack()

	var payload dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error(ingestModule, "Failed to unmarshal message", map[string]interface{}{"error": err})
		report.Failures = append(report.Failures, dto.IngestFailure{SourcePath: "?", Error: err.Error()})
		return
	}

	raw, err := os.ReadFile(filepath.Join(payload.Root, filepath.FromSlash(payload.SourcePath)))
	if err != nil || !utf8.Valid(raw) {
		reason := "not valid UTF-8"
		if err != nil {
			reason = err.Error()
		}
		s.logger.Warn(ingestModule, "Skipping unreadable document", map[string]interface{}{
			"source": payload.SourcePath,
			"reason": reason,
		})
		report.Skipped = append(report.Skipped, payload.SourcePath)
		return
	}

	n, err := s.pipeline.IngestDocument(ctx, ingest.Document{SourcePath: payload.SourcePath, Text: string(raw)})
	if err != nil {
		s.logger.Error(ingestModule, "Document ingestion failed", map[string]interface{}{
			"source": payload.SourcePath,
			"error":  err,
		})
		report.Failures = append(report.Failures, dto.IngestFailure{SourcePath: payload.SourcePath, Error: err.Error()})
		return
	}

	report.Documents++
	report.Passages += n
	s.logger.Info(ingestModule, "Document ingested", map[string]interface{}{
		"source":   payload.SourcePath,
		"passages": n,
	})
}

func (s *ingestService) finish(ctx context.Context, report *IngestReport, runErr error) (*IngestReport, error) {
	report.Duration = time.Since(report.StartedAt)
	sort.Strings(report.Skipped)
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].SourcePath < report.Failures[j].SourcePath
	})

	details := map[string]interface{}{
		"root":        report.Root,
		"documents":   report.Documents,
		"passages":    report.Passages,
		"skipped":     len(report.Skipped),
		"failed":      len(report.Failures),
		"duration_ms": report.Duration.Milliseconds(),
	}

	eventType := events.TypeCorpusIngested
	if runErr != nil {
		eventType = events.TypeCorpusIngestFailed
		details["error"] = runErr.Error()
		s.logger.Error(ingestModule, "Corpus ingestion finished with failures", details)
	} else {
		s.logger.Info(ingestModule, "Corpus ingestion finished", details)
	}

	if s.publisher != nil {
		// the run may have been cancelled; the event should still go out
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		evt := events.NewCorpusEvent(eventType, details)
		if err := s.publisher.Publish(pubCtx, evt); err != nil {
			s.logger.Warn(ingestModule, "Failed to publish ingest event", map[string]interface{}{"error": err.Error()})
		}
	}

	return report, runErr
}

// discover returns the slash-separated paths under root matching pattern, sorted.
func discover(root, pattern string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("not a directory")
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
