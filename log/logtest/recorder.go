/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-utilkit/log"
)

// RecordedEntry is a logged entry kept by Recorder.
type RecordedEntry struct {
	LoggerName string
	Level      log.Level
	Time       time.Time
	Text       string
	Fields     []log.Field // own fields followed by the fields of the logger (added by With)
}

// FindField returns the first field with the given key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

type entryStore struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic // logf.EntryWriter interface requires passing by value
func (s *entryStore) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.Fields)+len(e.DerivedFields))
	fields = append(append(fields, e.Fields...), e.DerivedFields...)
	entry := RecordedEntry{
		LoggerName: e.LoggerName,
		Level:      fromLogfLevel(e.Level),
		Time:       e.Time,
		Text:       e.Text,
		Fields:     fields,
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

// Recorder is a log.FieldLogger that records entries of all levels.
// Loggers derived with With and WithLevel share the records with their parent.
type Recorder struct {
	*log.LogfAdapter
	store *entryStore
}

// NewRecorder creates a new Recorder.
func NewRecorder() *Recorder {
	store := &entryStore{}
	return &Recorder{LogfAdapter: &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, store)}, store: store}
}

func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{LogfAdapter: r.LogfAdapter.With(fs...).(*log.LogfAdapter), store: r.store}
}

func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return &Recorder{LogfAdapter: r.LogfAdapter.WithLevel(level).(*log.LogfAdapter), store: r.store}
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]RecordedEntry(nil), r.store.entries...)
}

// FindEntry returns the first entry with the given message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	return r.FindEntryByFilter(func(entry RecordedEntry) bool { return entry.Text == msg })
}

// FindEntryByFilter returns the first entry matching the filter.
func (r *Recorder) FindEntryByFilter(filter func(entry RecordedEntry) bool) (RecordedEntry, bool) {
	if found := r.FindAllEntriesByFilter(filter); len(found) != 0 {
		return found[0], true
	}
	return RecordedEntry{}, false
}

// FindAllEntriesByFilter returns all entries matching the filter.
func (r *Recorder) FindAllEntriesByFilter(filter func(entry RecordedEntry) bool) []RecordedEntry {
	var found []RecordedEntry
	for _, entry := range r.Entries() {
		if filter(entry) {
			found = append(found, entry)
		}
	}
	return found
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}

func fromLogfLevel(level logf.Level) log.Level {
	switch level {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	default:
		return log.LevelInfo
	}
}
