package observability

import "sync"

// Entry is one captured log record.
type Entry struct {
	Level  string
	Msg    string
	Fields []Field
}

// CaptureLogger records every log call. Intended for tests that assert on
// warnings (stack underflow, unsupported constructs, correlation drops).
type CaptureLogger struct {
	mu      sync.Mutex
	entries []Entry
	with    []Field
}

func NewCaptureLogger() *CaptureLogger { return &CaptureLogger{} }

func (c *CaptureLogger) log(level, msg string, fields []Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := append(append([]Field{}, c.with...), fields...)
	c.entries = append(c.entries, Entry{Level: level, Msg: msg, Fields: all})
}

func (c *CaptureLogger) Debug(msg string, fields ...Field) { c.log("debug", msg, fields) }
func (c *CaptureLogger) Info(msg string, fields ...Field)  { c.log("info", msg, fields) }
func (c *CaptureLogger) Warn(msg string, fields ...Field)  { c.log("warn", msg, fields) }
func (c *CaptureLogger) Error(msg string, fields ...Field) { c.log("error", msg, fields) }

func (c *CaptureLogger) With(fields ...Field) Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &CaptureLogger{entries: c.entries, with: append(append([]Field{}, c.with...), fields...)}
}

// Entries returns a copy of the captured records.
func (c *CaptureLogger) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

// Count returns how many records at the given level carry msg.
func (c *CaptureLogger) Count(level, msg string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.Level == level && e.Msg == msg {
			n++
		}
	}
	return n
}
