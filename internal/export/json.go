// Package export serializes the event log and aggregate cache to portable
// JSON and CSV documents, and restores state from them.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/screenly/internal/agg"
	"github.com/sadopc/screenly/internal/dates"
)

// ErrInvalidImport rejects malformed import documents before any stored data
// is touched.
var ErrInvalidImport = errors.New("invalid import document")

// SchemaVersion is the current export document version.
const SchemaVersion = 1

// Document is the portable dump of the store: the raw event log and the
// materialized aggregates, both keyed by day.
type Document struct {
	SchemaVersion int                                 `json:"schema_version"`
	ExportedAt    string                              `json:"exported_at"`
	Events        map[dates.DayKey][]agg.Event        `json:"events"`
	Aggregates    map[dates.DayKey]agg.DayAggregate   `json:"aggregates"`
}

// Dumper is what the exporters need from the store.
type Dumper interface {
	DumpEvents() (map[dates.DayKey][]agg.Event, error)
	DumpAggregates() (map[dates.DayKey]agg.DayAggregate, error)
}

// Replacer restores imported state atomically.
type Replacer interface {
	ReplaceAll(events map[dates.DayKey][]agg.Event, aggregates map[dates.DayKey]agg.DayAggregate) error
}

// BuildDocument assembles an export document from the store.
func BuildDocument(d Dumper) (*Document, error) {
	events, err := d.DumpEvents()
	if err != nil {
		return nil, fmt.Errorf("dump events: %w", err)
	}
	aggregates, err := d.DumpAggregates()
	if err != nil {
		return nil, fmt.Errorf("dump aggregates: %w", err)
	}
	if events == nil {
		events = map[dates.DayKey][]agg.Event{}
	}
	if aggregates == nil {
		aggregates = map[dates.DayKey]agg.DayAggregate{}
	}
	return &Document{
		SchemaVersion: SchemaVersion,
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		Events:        events,
		Aggregates:    aggregates,
	}, nil
}

// ToJSON writes the full store contents to path.
func ToJSON(d Dumper, path string) error {
	doc, err := BuildDocument(d)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// ParseDocument validates an import payload. Both top-level collections must
// be present objects and the schema version must be known; anything else is
// rejected up front so a bad file can never partially overwrite good data.
func ParseDocument(data []byte) (*Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrInvalidImport, err)
	}
	for _, key := range []string{"schema_version", "events", "aggregates"} {
		if _, ok := probe[key]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrInvalidImport, key)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if doc.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrInvalidImport, doc.SchemaVersion)
	}
	if doc.Events == nil || doc.Aggregates == nil {
		return nil, fmt.Errorf("%w: events and aggregates must be objects", ErrInvalidImport)
	}
	return &doc, nil
}

// FromJSON reads an export document from path and replaces the store contents
// with it. Validation failures leave the store untouched.
func FromJSON(r Replacer, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	if err := r.ReplaceAll(doc.Events, doc.Aggregates); err != nil {
		return nil, fmt.Errorf("replace store contents: %w", err)
	}
	return doc, nil
}
