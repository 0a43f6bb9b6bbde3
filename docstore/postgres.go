package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/billbatista/acasinha-trip/docstore/migrations"
	"github.com/billbatista/acasinha-trip/migrate"
	"github.com/lib/pq"
)

const notifyChannel = "docstore_changes"

var postgresDialect = dialect{
	name:      "postgres",
	selectDoc: `SELECT data::text, revision, updated_at FROM documents WHERE path = $1 FOR UPDATE`,
	getDoc:    `SELECT data::text, revision, updated_at FROM documents WHERE path = $1`,
	upsert: `INSERT INTO documents (path, data, revision, updated_at) VALUES ($1, $2::jsonb, $3, $4)
             ON CONFLICT (path) DO UPDATE SET data = excluded.data, revision = excluded.revision, updated_at = excluded.updated_at`,
	notify: `SELECT pg_notify('` + notifyChannel + `', $1)`,
}

// OpenPostgres opens a store shared by every server process pointing at the
// same database. Each process listens for change notifications and re-reads
// the changed document before handing it to its subscribers.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	if err := migrate.Apply(ctx, db, migrations.Postgres, "postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("docstore listener", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		_ = db.Close()
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	s := newSQLStore(db, postgresDialect)
	done := make(chan struct{})
	s.closers = append(s.closers, func() error {
		close(done)
		return listener.Close()
	})
	go s.listen(listener, done)
	return s, nil
}

func (s *SQLStore) listen(l *pq.Listener, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case n, ok := <-l.Notify:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if n == nil {
				// reconnected, notifications may have been lost
				for _, p := range s.hub.paths() {
					if err := s.refresh(ctx, p); err != nil {
						slog.Error("docstore refresh after reconnect", "path", p, "error", err)
					}
				}
				cancel()
				continue
			}
			if err := s.refresh(ctx, n.Extra); err != nil {
				slog.Error("docstore refresh", "path", n.Extra, "error", err)
			}
			cancel()
		case <-time.After(90 * time.Second):
			go l.Ping()
		}
	}
}
