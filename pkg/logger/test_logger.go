package logger

import (
	"sync"
)

// Entry is one record captured by a TestLogger
type Entry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   string
}

// TestLogger records entries in memory so tests can assert on them.
// Loggers derived with WithField or WithError share one record.
type TestLogger struct {
	mu      *sync.Mutex
	entries *[]Entry
	bound   map[string]interface{}
	err     string
}

// NewTestLogger creates an empty capturing logger
func NewTestLogger() *TestLogger {
	return &TestLogger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (l *TestLogger) record(level, msg string, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(l.bound)+len(fields))
	for k, v := range l.bound {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, Entry{Level: level, Message: msg, Fields: merged, Error: l.err})
}

func (l *TestLogger) derive(key string, value interface{}, err string) *TestLogger {
	bound := make(map[string]interface{}, len(l.bound)+1)
	for k, v := range l.bound {
		bound[k] = v
	}
	if key != "" {
		bound[key] = value
	}
	return &TestLogger{mu: l.mu, entries: l.entries, bound: bound, err: err}
}

func (l *TestLogger) Info(msg string)  { l.record("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.record("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.record("ERROR", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.record("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.record("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.record("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.record("ERROR", msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.derive(key, value, l.err)
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.derive("", nil, err.Error())
}

// Entries returns a copy of everything captured so far
func (l *TestLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), *l.entries...)
}

// AtLevel returns the captured entries of one level
func (l *TestLogger) AtLevel(level string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// HasMessage reports whether an entry with exactly this message was captured
func (l *TestLogger) HasMessage(text string) bool {
	for _, e := range l.Entries() {
		if e.Message == text {
			return true
		}
	}
	return false
}
