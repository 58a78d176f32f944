package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/mockflow/internal/runtime/errors"
	jsoncodec "github.com/drblury/mockflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/mockflow/internal/runtime/logging"
)

// Call records one intercepted request.
type Call struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Endpoint      string    `json:"endpoint,omitempty"`
	Method        string    `json:"method"`
	URL           string    `json:"url"`
	Status        int       `json:"status"`
	Matched       bool      `json:"matched"`
	Passthrough   bool      `json:"passthrough"`
	Error         string    `json:"error,omitempty"`
	DurationNs    int64     `json:"duration_ns"`
	At            time.Time `json:"at"`
}

// journal keeps the most recent calls in a fixed-size ring.
type journal struct {
	mu      sync.Mutex
	entries []Call
	next    int
	filled  int
}

func newJournal(capacity int) *journal {
	if capacity <= 0 {
		capacity = 1
	}
	return &journal{entries: make([]Call, capacity)}
}

func (j *journal) add(c Call) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[j.next] = c
	j.next = (j.next + 1) % len(j.entries)
	if j.filled < len(j.entries) {
		j.filled++
	}
}

// snapshot returns the retained calls, oldest first.
func (j *journal) snapshot() []Call {
	j.mu.Lock()
	defer j.mu.Unlock()

	calls := make([]Call, j.filled)
	for i := 0; i < j.filled; i++ {
		idx := j.next - j.filled + i
		if idx < 0 {
			idx += len(j.entries)
		}
		calls[i] = j.entries[idx]
	}
	return calls
}

func (j *journal) clear() {
	j.mu.Lock()
	defer j.mu.Unlock()

	clear(j.entries)
	j.next = 0
	j.filled = 0
}

// Calls returns the most recent intercepted requests, oldest first.
func (s *Service) Calls() []Call {
	return s.journal.snapshot()
}

// ClearCalls empties the in-memory journal.
func (s *Service) ClearCalls() {
	s.journal.clear()
}

func (s *Service) recordCall(c Call) {
	s.journal.add(c)
	if s.publisher == nil {
		return
	}
	if err := PublishCall(context.Background(), s.publisher, s.Conf.JournalTopic, c); err != nil {
		s.Logger.Error("Failed to publish call record", err, loggingpkg.LogFields{
			"topic":   s.Conf.JournalTopic,
			"call_id": c.ID,
		})
	}
}

// PublishCall marshals the call and publishes it to the provided topic.
func PublishCall(ctx context.Context, publisher message.Publisher, topic string, c Call) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	payload, err := jsoncodec.Marshal(c)
	if err != nil {
		return err
	}

	msg := message.NewMessage(c.ID, payload)
	msg.Metadata.Set("content_type", "application/json")
	if c.CorrelationID != "" {
		msg.Metadata.Set("correlation_id", c.CorrelationID)
	}
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return publisher.Publish(topic, msg)
}

// Subscribe streams call records published by the journal sink. It needs a
// sink that delivers in-process, such as the channel sink. Only calls
// recorded after subscribing are delivered; the stream ends when ctx is done.
func (s *Service) Subscribe(ctx context.Context) (<-chan Call, error) {
	if s.subscriber == nil {
		return nil, errspkg.ErrSubscribeUnsupported
	}
	messages, err := s.subscriber.Subscribe(ctx, s.Conf.JournalTopic)
	if err != nil {
		return nil, err
	}

	out := make(chan Call)
	go func() {
		defer close(out)
		for msg := range messages {
			var c Call
			err := jsoncodec.Unmarshal(msg.Payload, &c)
			msg.Ack()
			if err != nil {
				s.Logger.Error("Failed to decode call record", err, loggingpkg.LogFields{"message_uuid": msg.UUID})
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
