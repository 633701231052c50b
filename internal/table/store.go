// Package table implements the dynamic-schema, timestamp-keyed data table
// shared between the stream reader (writer) and the presentation layer
// (readers).
package table

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/tinytelemetry/serialscope/internal/model"
)

// ErrEmptyName is returned when a column name is empty.
var ErrEmptyName = errors.New("table: empty column name")

// Cell is one value slot in a row. Valid is false when no value was
// reported for that timestamp/name pair.
type Cell struct {
	Value float64
	Valid bool
}

// String renders the cell for display and export. Absent cells are empty.
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}

// Row is a fixed-width table row. Cells[i] holds the value of column i+1;
// column 0 is the Timestamp key.
type Row struct {
	Timestamp string
	Cells     []Cell
	// At is the instant of the first point that created the row. The
	// local-time key alone is ambiguous during a DST fall-back hour.
	At time.Time
}

// Time returns the row's instant, parsing the key when At is unset.
func (r Row) Time() (time.Time, bool) {
	if !r.At.IsZero() {
		return r.At, true
	}
	return model.ParseTimestamp(r.Timestamp)
}

// Width returns the number of columns the row spans, timestamp included.
func (r Row) Width() int { return len(r.Cells) + 1 }

// Fields renders the row as strings in column order.
func (r Row) Fields() []string {
	out := make([]string, 0, r.Width())
	out = append(out, r.Timestamp)
	for _, c := range r.Cells {
		out = append(out, c.String())
	}
	return out
}

// Store is the shared table. All mutations are serialized under a write
// lock; Snapshot copies under a read lock and never performs I/O while
// holding it.
type Store struct {
	mu       sync.RWMutex
	headers  []string
	colIndex map[string]int
	rows     []Row
	rowIndex map[string]int
	newest   time.Time

	events *eventBus
}

// NewStore creates an empty table holding only the Timestamp column.
func NewStore() *Store {
	s := &Store{events: newEventBus()}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.headers = []string{model.TimestampColumn}
	s.colIndex = map[string]int{model.TimestampColumn: 0}
	s.rows = nil
	s.rowIndex = make(map[string]int)
	s.newest = time.Time{}
}

// AddHeader appends a column if absent and back-fills every existing row
// with an absent cell. It is a no-op for an existing column.
func (s *Store) AddHeader(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	idx, added := s.addHeaderLocked(name)
	s.mu.Unlock()

	if added {
		s.events.publish(Event{Kind: EventHeaderAdded, Column: idx, Name: name})
	}
	return nil
}

func (s *Store) addHeaderLocked(name string) (int, bool) {
	if idx, ok := s.colIndex[name]; ok {
		return idx, false
	}
	idx := len(s.headers)
	s.headers = append(s.headers, name)
	s.colIndex[name] = idx
	for i := range s.rows {
		s.rows[i].Cells = append(s.rows[i].Cells, Cell{})
	}
	return idx, true
}

// AddPoint upserts value into the row keyed by the formatted timestamp.
// Points sharing a millisecond-formatted timestamp land in the same row; a
// second value for the same name in that row replaces the first.
func (s *Store) AddPoint(ts time.Time, name string, value float64) {
	if name == "" || name == model.TimestampColumn {
		return
	}
	key := model.FormatTimestamp(ts)

	s.mu.Lock()
	col, headerAdded := s.addHeaderLocked(name)
	rowIdx, exists := s.rowIndex[key]
	if !exists {
		rowIdx = len(s.rows)
		s.rows = append(s.rows, Row{
			Timestamp: key,
			Cells:     make([]Cell, len(s.headers)-1),
			At:        ts.Truncate(time.Millisecond),
		})
		s.rowIndex[key] = rowIdx
	}
	s.rows[rowIdx].Cells[col-1] = Cell{Value: value, Valid: true}
	if ts.After(s.newest) {
		s.newest = ts
	}
	s.mu.Unlock()

	if headerAdded {
		s.events.publish(Event{Kind: EventHeaderAdded, Column: col, Name: name})
	}
	kind := EventCellUpdated
	if !exists {
		kind = EventRowAdded
	}
	s.events.publish(Event{Kind: kind, Row: rowIdx, Column: col, Name: name})
}

// Clear resets the table to the empty single-column state.
func (s *Store) Clear() {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
	s.events.publish(Event{Kind: EventCleared})
}

// Snapshot is a point-in-time copy of the table, safe to use without locks.
type Snapshot struct {
	Headers []string
	Rows    []Row
	Newest  time.Time
}

// Snapshot returns a deep copy of headers and rows.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Headers: append([]string(nil), s.headers...),
		Rows:    make([]Row, len(s.rows)),
		Newest:  s.newest,
	}
	for i, r := range s.rows {
		snap.Rows[i] = Row{
			Timestamp: r.Timestamp,
			Cells:     append([]Cell(nil), r.Cells...),
			At:        r.At,
		}
	}
	return snap
}

// Tail returns a snapshot holding only the last n rows, copying nothing
// else. The HTTP table endpoint serves ?tail from it.
func (s *Store) Tail(n int) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if n >= 0 && len(s.rows) > n {
		start = len(s.rows) - n
	}
	snap := Snapshot{
		Headers: append([]string(nil), s.headers...),
		Rows:    make([]Row, 0, len(s.rows)-start),
		Newest:  s.newest,
	}
	for _, r := range s.rows[start:] {
		snap.Rows = append(snap.Rows, Row{
			Timestamp: r.Timestamp,
			Cells:     append([]Cell(nil), r.Cells...),
			At:        r.At,
		})
	}
	return snap
}

// Headers returns a copy of the column names.
func (s *Store) Headers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.headers...)
}

// RowCount returns the number of rows.
func (s *Store) RowCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Subscribe registers ch for change events. Delivery never blocks the
// writer: events are dropped when ch is full.
func (s *Store) Subscribe(id string, ch chan<- Event) error {
	return s.events.subscribe(id, ch)
}

// Unsubscribe removes a subscriber registered with Subscribe.
func (s *Store) Unsubscribe(id string) error {
	return s.events.unsubscribe(id)
}

// SubscriberStats returns delivery counters for a subscriber.
func (s *Store) SubscriberStats(id string) (DeliveryStats, error) {
	return s.events.stats(id)
}
