package types

import "time"

// Message is the inbound event envelope handed to the orchestrator or to a
// single agent. A message is immutable once created: producers build it,
// consumers only read it. It carries no identity beyond its contents and is
// never persisted.
type Message struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewMessage creates a message of the given type, stamped with the current
// time.
func NewMessage(msgType string, data map[string]any) *Message {
	return &Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Get returns the named data field, or nil when absent.
func (m *Message) Get(key string) any {
	if m == nil || m.Data == nil {
		return nil
	}
	return m.Data[key]
}

// GetString returns the named data field as a string, or "" when absent or
// not a string.
func (m *Message) GetString(key string) string {
	s, _ := m.Get(key).(string)
	return s
}
