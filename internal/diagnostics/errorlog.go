package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Error log constants.
const (
	// errorLogQueueSize bounds errors waiting to be written.
	errorLogQueueSize = 256

	// errorLogWriteTimeout bounds a single insert.
	errorLogWriteTimeout = 5 * time.Second

	// maxListLimit caps Recent.
	maxListLimit = 500

	// occurredAtLayout is fixed width so stored timestamps sort as text.
	occurredAtLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Logger defines the logging interface used by the error log.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ErrorLog persists recorded network errors to the network_errors table.
//
// WriteError never blocks: errors are queued and inserted by a background
// goroutine. When the queue is full the error is dropped and counted.
//
// Thread Safety: All methods are safe for concurrent use.
type ErrorLog struct {
	db     *sql.DB
	logger Logger

	queue   chan NetworkError
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.Mutex
	dropped uint64
}

// NewErrorLog creates an error log and starts its writer goroutine.
// The network_errors table must exist (see migrations).
func NewErrorLog(db *sql.DB, logger Logger) *ErrorLog {
	if logger == nil {
		logger = noopLogger{}
	}
	l := &ErrorLog{
		db:     db,
		logger: logger,
		queue:  make(chan NetworkError, errorLogQueueSize),
		done:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

// WriteError queues e for insertion.
func (l *ErrorLog) WriteError(e NetworkError) {
	select {
	case <-l.done:
		return
	default:
	}

	select {
	case l.queue <- e:
	default:
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
		l.logger.Warn("error log queue full, dropping entry", "type", string(e.Type))
	}
}

// Dropped returns the number of errors discarded because the queue was full.
func (l *ErrorLog) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func (l *ErrorLog) writer() {
	defer l.wg.Done()
	for {
		select {
		case e := <-l.queue:
			l.insert(e)
		case <-l.done:
			// Flush what is already queued.
			for {
				select {
				case e := <-l.queue:
					l.insert(e)
				default:
					return
				}
			}
		}
	}
}

func (l *ErrorLog) insert(e NetworkError) {
	ctx, cancel := context.WithTimeout(context.Background(), errorLogWriteTimeout)
	defer cancel()
	if err := l.Insert(ctx, e); err != nil {
		l.logger.Error("persisting network error", "error", err)
	}
}

// Insert writes e synchronously.
func (l *ErrorLog) Insert(ctx context.Context, e NetworkError) error {
	var universe any
	if e.Universe != nil {
		universe = *e.Universe
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO network_errors (id, type, message, universe, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.Message, universe,
		e.Timestamp.UTC().Format(occurredAtLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting network error: %w", err)
	}
	return nil
}

// Recent returns up to limit persisted errors, most recent first.
func (l *ErrorLog) Recent(ctx context.Context, limit int) ([]NetworkError, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, type, message, universe, occurred_at
		 FROM network_errors
		 ORDER BY occurred_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying network errors: %w", err)
	}
	defer rows.Close()

	var out []NetworkError
	for rows.Next() {
		var (
			e          NetworkError
			errType    string
			universe   sql.NullInt64
			occurredAt string
		)
		if err := rows.Scan(&e.ID, &errType, &e.Message, &universe, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning network error: %w", err)
		}
		e.Type = ErrorType(errType)
		if universe.Valid {
			e.Universe = UniverseRef(int(universe.Int64))
		}
		e.Timestamp, _ = time.Parse(occurredAtLayout, occurredAt) //nolint:errcheck // format is written by Insert
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating network errors: %w", err)
	}
	return out, nil
}

// Prune deletes errors recorded before cutoff and returns how many were removed.
func (l *ErrorLog) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM network_errors WHERE occurred_at < ?`,
		cutoff.UTC().Format(occurredAtLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning network errors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning network errors: %w", err)
	}
	return n, nil
}

// Close stops the writer after flushing queued errors.
func (l *ErrorLog) Close() error {
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
	return nil
}
