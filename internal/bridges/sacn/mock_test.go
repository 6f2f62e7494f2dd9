package sacn

import (
	"errors"
	"strings"
	"sync"
)

var errMockPublish = errors.New("mock publish failure")

// MockTransport implements Transport for testing.
//
// Connect only counts attempts; tests decide the outcome with
// SimulateConnect and SimulateFailure.
type MockTransport struct {
	mu          sync.Mutex
	published   []mockPublish
	handlers    map[string]func(topic string, payload []byte) error
	connected   bool
	attempts    int
	failTopics  map[string]bool
	onConnect   func()
	onFailure   func(error)
	disconnects int
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		handlers:   make(map[string]func(topic string, payload []byte) error),
		failTopics: make(map[string]bool),
	}
}

func (m *MockTransport) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
}

func (m *MockTransport) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnects++
}

func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected || m.failTopics[topic] {
		return errMockPublish
	}
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockTransport) Subscribe(topic string, _ byte, handler func(topic string, payload []byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockTransport) SetConnectionHandlers(onConnect func(), onFailure func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnect = onConnect
	m.onFailure = onFailure
}

// SimulateConnect marks the link up and fires the connect handler.
func (m *MockTransport) SimulateConnect() {
	m.mu.Lock()
	m.connected = true
	cb := m.onConnect
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SimulateFailure marks the link down and fires the failure handler.
func (m *MockTransport) SimulateFailure(err error) {
	m.mu.Lock()
	m.connected = false
	cb := m.onFailure
	m.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// SimulateMessage delivers payload to every handler whose pattern matches topic.
func (m *MockTransport) SimulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	var matched []func(string, []byte) error
	for pattern, h := range m.handlers {
		if topicMatches(pattern, topic) {
			matched = append(matched, h)
		}
	}
	m.mu.Unlock()
	for _, h := range matched {
		_ = h(topic, payload) //nolint:errcheck // adapter handlers always return nil
	}
}

// FailPublish makes every publish to topic fail.
func (m *MockTransport) FailPublish(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTopics[topic] = true
}

func (m *MockTransport) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *MockTransport) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

// PublishedTo returns messages sent to topics starting with prefix.
func (m *MockTransport) PublishedTo(prefix string) []mockPublish {
	var out []mockPublish
	for _, p := range m.GetPublished() {
		if strings.HasPrefix(p.Topic, prefix) {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockTransport) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// topicMatches supports the single-level + wildcard.
func topicMatches(pattern, topic string) bool {
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")
	if len(pp) != len(tp) {
		return false
	}
	for i := range pp {
		if pp[i] != "+" && pp[i] != tp[i] {
			return false
		}
	}
	return true
}
