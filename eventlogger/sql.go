package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type sqlEventLogger struct {
	db *sql.DB
}

// NewSqlEventLogger stores events in the events table created by the
// document store migrations. The queries work on PostgreSQL and SQLite.
func NewSqlEventLogger(db *sql.DB) *sqlEventLogger {
	return &sqlEventLogger{
		db: db,
	}
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding event metadata: %w", err)
	}
	statement := `INSERT INTO events (id, event_type, event_data, event_metadata, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = el.db.ExecContext(ctx, statement, e.ID.String(), e.Type, string(jsonData), string(jsonMetadata), e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

func (el *sqlEventLogger) GetByType(ctx context.Context, eventType string) ([]Event, error) {
	query := `SELECT id, event_type, event_data, event_metadata, created_at FROM events WHERE event_type = $1 ORDER BY created_at`
	result, err := el.db.QueryContext(ctx, query, eventType)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	events := make([]Event, 0)
	for result.Next() {
		var (
			event        Event
			id           string
			jsonData     []byte
			jsonMetadata []byte
			createdAt    int64
		)
		if err := result.Scan(&id, &event.Type, &jsonData, &jsonMetadata, &createdAt); err != nil {
			return events, err
		}
		if err := event.ID.UnmarshalText([]byte(id)); err != nil {
			return events, fmt.Errorf("parsing event id: %w", err)
		}
		if len(jsonData) > 0 {
			if err := json.Unmarshal(jsonData, &event.Data); err != nil {
				return events, fmt.Errorf("decoding event data: %w", err)
			}
		}
		var metadata map[string]string
		if len(jsonMetadata) > 0 {
			if err := json.Unmarshal(jsonMetadata, &metadata); err != nil {
				return events, fmt.Errorf("decoding event metadata: %w", err)
			}
		}
		event.Metadata = metadata
		event.CreatedAt = time.UnixMilli(createdAt).UTC()

		events = append(events, event)
	}

	if err := result.Err(); err != nil {
		return events, err
	}

	return events, nil
}
