package clip

import (
	"bytes"
	"sync"
)

// Memory is an in-process clipboard. It backs headless runs, where received
// content is kept for the lifetime of the process, and tests.
type Memory struct {
	name string

	mu     sync.Mutex
	text   []byte
	image  []byte
	writes int
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory {
	return &Memory{name: "memory"}
}

func newHeadless() *Memory {
	return &Memory{name: "headless (in-memory)"}
}

func (m *Memory) Name() string { return m.name }

func (m *Memory) ReadText() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.text), nil
}

func (m *Memory) ReadImage() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.image), nil
}

func (m *Memory) WriteText(text []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.text, m.image = bytes.Clone(text), nil
	return nil
}

func (m *Memory) WriteImage(png []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.text, m.image = nil, bytes.Clone(png)
	return nil
}

func (m *Memory) Close() {}

// SetText simulates a user copying text. It is not counted by Writes.
func (m *Memory) SetText(text string) {
	m.mu.Lock()
	m.text, m.image = []byte(text), nil
	m.mu.Unlock()
}

// SetImage simulates a user copying an image. It is not counted by Writes.
func (m *Memory) SetImage(img []byte) {
	m.mu.Lock()
	m.text, m.image = nil, bytes.Clone(img)
	m.mu.Unlock()
}

// Text returns the current clipboard text as a string.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.text)
}

// Writes returns how many times WriteText or WriteImage was called.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
