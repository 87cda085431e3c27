package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"crm-telephony/internal/calls"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
)

// CallLogged is emitted once per newly stored call-log entry.
type CallLogged struct {
	ID               string          `json:"id"`
	ExternalUniqueID string          `json:"external_unique_id"`
	CallDate         string          `json:"call_date"`
	CallTime         string          `json:"call_time"`
	Source           string          `json:"source"`
	Destination      string          `json:"destination"`
	Direction        calls.Direction `json:"direction"`
	Status           calls.Status    `json:"status"`
	EmployeeID       *int64          `json:"employee_id,omitempty"`
	Origin           string          `json:"origin"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// NewCallLogged builds the event for e. origin is "sync" or "webhook".
func NewCallLogged(e calls.Entry, origin string, at time.Time) CallLogged {
	return CallLogged{
		ID:               e.ID,
		ExternalUniqueID: e.ExternalUniqueID,
		CallDate:         e.CallDate,
		CallTime:         e.CallTime,
		Source:           e.Source,
		Destination:      e.Destination,
		Direction:        e.Direction,
		Status:           e.Status,
		EmployeeID:       e.EmployeeID,
		Origin:           origin,
		OccurredAt:       at.UTC(),
	}
}

// Publisher delivers call events. Delivery is best-effort; callers log failures.
type Publisher interface {
	PublishCallLogged(ctx context.Context, ev CallLogged) error
	Close() error
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishCallLogged(context.Context, CallLogged) error { return nil }
func (Noop) Close() error                                        { return nil }

// NATSPublisher publishes JSON events on a single subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = "calls.logged"
	}
	conn, err := nats.Connect(url,
		nats.Name("crm-telephony"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "events: connect %s", url)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) PublishCallLogged(ctx context.Context, ev CallLogged) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "events: marshal call logged")
	}
	msg := &nats.Msg{Subject: p.subject, Data: b, Header: nats.Header{}}
	msg.Header.Set(nats.MsgIdHdr, ev.ExternalUniqueID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return eris.Wrapf(err, "events: publish %s", ev.ExternalUniqueID)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Memory records published events. Intended for tests.
type Memory struct {
	mu     sync.Mutex
	events []CallLogged
	Err    error
}

func (m *Memory) PublishCallLogged(_ context.Context, ev CallLogged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Events() []CallLogged {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallLogged, len(m.events))
	copy(out, m.events)
	return out
}
