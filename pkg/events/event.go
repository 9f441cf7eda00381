package events

import "time"

// Published on the bus as subject "events.<type>".
const (
	TypeCorpusIngested     = "corpus.ingested"
	TypeCorpusIngestFailed = "corpus.ingest_failed"
)

type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// CorpusEvent reports the outcome of one ingest run.
type CorpusEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

// NewCorpusEvent stamps the event with the current time. A nil data map is
// replaced with an empty one so subscribers can index it freely.
func NewCorpusEvent(eventType string, data map[string]interface{}) CorpusEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	return CorpusEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e CorpusEvent) EventType() string              { return e.Type }
func (e CorpusEvent) Payload() map[string]interface{} { return e.Data }
func (e CorpusEvent) Timestamp() time.Time            { return e.OccurredAt }

// Failed reports whether the run ended with at least one failure.
func (e CorpusEvent) Failed() bool { return e.Type == TypeCorpusIngestFailed }
