// Package queue serializes every read and write against a cache's
// SQLite database through a single worker goroutine, batching and
// coalescing operations so concurrent callers don't each pay their own
// round trip.
package queue

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/akavache-go/akavache/internal/cachemodel"
	akerrors "github.com/akavache-go/akavache/internal/errors"
	"github.com/akavache-go/akavache/internal/schema"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// kind identifies the shape of an operation's payload and result.
type kind int

const (
	kindInsert kind = iota
	kindInsertMany
	kindGet
	kindGetMany
	kindGetByType
	kindAllKeys
	kindInvalidate
	kindInvalidateMany
	kindInvalidateByType
	kindInvalidateAll
	kindVacuum
	kindFlush
)

// executionOrder fixes how a drained batch is applied: reads run before
// writes, so a read sees the database as it stood before any write
// drained into the same batch, and every batch applies in this order
// regardless of arrival order. Within a kind, operations keep arrival
// order.
var executionOrder = map[kind]int{
	kindGet:              0,
	kindGetMany:          0,
	kindGetByType:        1,
	kindAllKeys:          2,
	kindInsert:           3,
	kindInsertMany:       3,
	kindInvalidate:       4,
	kindInvalidateMany:   4,
	kindInvalidateByType: 5,
	kindInvalidateAll:    6,
	kindVacuum:           7,
	kindFlush:            8,
}

type operation struct {
	kind kind
	key  string
	keys []string

	element  cachemodel.CacheElement
	elements []cachemodel.CacheElement
	typ      string

	result chan opResult
}

type opResult struct {
	element  cachemodel.CacheElement
	elements map[string]cachemodel.CacheElement
	ok       bool
	keys     []string
	err      error
}

// Queue is the single-writer operation processor for one cache
// database. Callers submit operations and block on the returned
// channel; the worker goroutine drains, orders and executes batches.
type Queue struct {
	mgr    *schema.Manager
	ops    chan operation
	done   chan struct{}
	group  singleflight.Group
	logger *slog.Logger

	maxBatch int
}

// Options configures a Queue.
type Options struct {
	// MaxBatch bounds how many operations are drained into a single
	// batch before it's applied and a new one starts draining.
	MaxBatch int

	// Logger receives one debug-level record per applied batch, tagged
	// with a generated batch id. Defaults to slog.Default() if nil.
	Logger *slog.Logger
}

// New starts a worker goroutine processing operations against mgr's
// database. Callers must call Close to stop the worker and release the
// underlying connection.
func New(mgr *schema.Manager, opts Options) *Queue {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	q := &Queue{
		mgr:      mgr,
		ops:      make(chan operation),
		done:     make(chan struct{}),
		maxBatch: opts.MaxBatch,
		logger:   opts.Logger,
	}
	go q.run()
	return q
}

// Close drains any in-flight batch and stops the worker. The
// underlying schema.Manager is not closed; callers own its lifetime.
func (q *Queue) Close() error {
	close(q.ops)
	<-q.done
	return nil
}

func (q *Queue) run() {
	defer close(q.done)

	batch := make([]operation, 0, q.maxBatch)
	for {
		op, more := <-q.ops
		if !more {
			if len(batch) > 0 {
				q.apply(batch)
			}
			return
		}
		batch = append(batch, op)

		draining := true
		for draining && len(batch) < q.maxBatch {
			select {
			case op, more := <-q.ops:
				if !more {
					draining = false
					q.apply(batch)
					return
				}
				batch = append(batch, op)
			default:
				draining = false
			}
		}
		q.apply(batch)
		batch = batch[:0]
	}
}

func (q *Queue) apply(batch []operation) {
	sort.SliceStable(batch, func(i, j int) bool {
		return executionOrder[batch[i].kind] < executionOrder[batch[j].kind]
	})

	batchID := uuid.NewString()
	q.logger.Debug("applying batch", "batch_id", batchID, "size", len(batch))

	db := q.mgr.DB()
	for _, op := range batch {
		q.execute(db, op)
	}
}

func (q *Queue) execute(db *sql.DB, op operation) {
	defer func() {
		if r := recover(); r != nil {
			op.result <- opResult{err: akerrors.Backend(fmt.Errorf("panic executing operation: %v", r))}
		}
	}()
	switch op.kind {
	case kindInsert:
		op.result <- q.execInsert(db, op.element)
	case kindInsertMany:
		op.result <- q.execInsertMany(db, op.elements)
	case kindGet:
		op.result <- q.execGet(db, op.key)
	case kindGetMany:
		op.result <- q.execGetMany(db, op.keys)
	case kindGetByType:
		op.result <- q.execGetByType(db, op.typ)
	case kindAllKeys:
		op.result <- q.execAllKeys(db, op.typ)
	case kindInvalidate:
		op.result <- q.execInvalidate(db, op.key)
	case kindInvalidateMany:
		op.result <- q.execInvalidateMany(db, op.keys)
	case kindInvalidateByType:
		op.result <- q.execInvalidateByType(db, op.typ)
	case kindInvalidateAll:
		op.result <- q.execInvalidateAll(db)
	case kindVacuum:
		op.result <- q.execVacuum()
	case kindFlush:
		op.result <- opResult{ok: true}
	}
}

func (q *Queue) execInsert(db *sql.DB, el cachemodel.CacheElement) opResult {
	_, err := db.Exec(
		`INSERT INTO CacheElement (Key, TypeName, Value, CreatedAt, Expiration)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(Key) DO UPDATE SET TypeName=excluded.TypeName, Value=excluded.Value,
		   CreatedAt=excluded.CreatedAt, Expiration=excluded.Expiration`,
		el.Key, el.TypeName, el.Value, cachemodel.ToTicks(el.CreatedAt), cachemodel.ToTicks(el.Expiration),
	)
	if err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("insert %q: %w", el.Key, err))}
	}
	return opResult{ok: true}
}

// execInsertMany writes every element in one transaction: either all
// rows land or none do, matching insert_many's atomicity requirement.
func (q *Queue) execInsertMany(db *sql.DB, elements []cachemodel.CacheElement) opResult {
	tx, err := db.Begin()
	if err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("begin insert_many: %w", err))}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO CacheElement (Key, TypeName, Value, CreatedAt, Expiration)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(Key) DO UPDATE SET TypeName=excluded.TypeName, Value=excluded.Value,
		   CreatedAt=excluded.CreatedAt, Expiration=excluded.Expiration`,
	)
	if err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("prepare insert_many: %w", err))}
	}
	defer stmt.Close()

	for _, el := range elements {
		if _, err := stmt.Exec(
			el.Key, el.TypeName, el.Value, cachemodel.ToTicks(el.CreatedAt), cachemodel.ToTicks(el.Expiration),
		); err != nil {
			return opResult{err: akerrors.Backend(fmt.Errorf("insert_many %q: %w", el.Key, err))}
		}
	}

	if err := tx.Commit(); err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("commit insert_many: %w", err))}
	}
	return opResult{ok: true}
}

func (q *Queue) execGet(db *sql.DB, key string) opResult {
	var el cachemodel.CacheElement
	var typeName sql.NullString
	var createdAt, expiration int64

	err := db.QueryRow(
		"SELECT Key, TypeName, Value, CreatedAt, Expiration FROM CacheElement WHERE Key = ?",
		key,
	).Scan(&el.Key, &typeName, &el.Value, &createdAt, &expiration)
	if err == sql.ErrNoRows {
		return opResult{ok: false}
	}
	if err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("get %q: %w", key, err))}
	}
	if typeName.Valid {
		el.TypeName = &typeName.String
	}
	el.CreatedAt = cachemodel.FromTicks(createdAt)
	el.Expiration = cachemodel.FromTicks(expiration)
	return opResult{element: el, ok: true}
}

// execGetMany looks up every requested key in one query, evicting any
// expired rows it encounters and omitting them from the result rather
// than erroring, matching get_many's per-key-absent-is-not-an-error
// contract.
func (q *Queue) execGetMany(db *sql.DB, keys []string) opResult {
	results := make(map[string]cachemodel.CacheElement, len(keys))
	if len(keys) == 0 {
		return opResult{elements: results, ok: true}
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}
	query := fmt.Sprintf(
		"SELECT Key, TypeName, Value, CreatedAt, Expiration FROM CacheElement WHERE Key IN (%s)",
		strings.Join(placeholders, ","),
	)
	rows, err := db.Query(query, args...)
	if err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("get_many: %w", err))}
	}
	defer rows.Close()

	now := time.Now().UTC()
	var expired []string
	for rows.Next() {
		var el cachemodel.CacheElement
		var typeName sql.NullString
		var createdAt, expiration int64
		if err := rows.Scan(&el.Key, &typeName, &el.Value, &createdAt, &expiration); err != nil {
			return opResult{err: akerrors.Backend(fmt.Errorf("scan get_many: %w", err))}
		}
		if typeName.Valid {
			el.TypeName = &typeName.String
		}
		el.CreatedAt = cachemodel.FromTicks(createdAt)
		el.Expiration = cachemodel.FromTicks(expiration)
		if el.Expired(now) {
			expired = append(expired, el.Key)
			continue
		}
		results[el.Key] = el
	}
	if err := rows.Err(); err != nil {
		return opResult{err: akerrors.Backend(err)}
	}

	if len(expired) > 0 {
		if r := q.execInvalidateMany(db, expired); r.err != nil {
			return r
		}
	}
	return opResult{elements: results, ok: true}
}

func (q *Queue) execGetByType(db *sql.DB, typeName string) opResult {
	rows, err := db.Query(
		"SELECT Key, TypeName, Value, CreatedAt, Expiration FROM CacheElement WHERE TypeName = ? AND Expiration >= ?",
		typeName, cachemodel.ToTicks(time.Now().UTC()),
	)
	if err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("get by type %q: %w", typeName, err))}
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		var tn sql.NullString
		var value []byte
		var createdAt, expiration int64
		if err := rows.Scan(&key, &tn, &value, &createdAt, &expiration); err != nil {
			return opResult{err: akerrors.Backend(fmt.Errorf("scan %q: %w", typeName, err))}
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return opResult{err: akerrors.Backend(err)}
	}
	return opResult{keys: keys, ok: true}
}

func (q *Queue) execAllKeys(db *sql.DB, typeName string) opResult {
	query := "SELECT Key FROM CacheElement WHERE Expiration >= ?"
	args := []any{cachemodel.ToTicks(time.Now().UTC())}
	if typeName != "" {
		query += " AND TypeName = ?"
		args = append(args, typeName)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("list keys: %w", err))}
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return opResult{err: akerrors.Backend(err)}
		}
		keys = append(keys, key)
	}
	return opResult{keys: keys, ok: true}
}

func (q *Queue) execInvalidate(db *sql.DB, key string) opResult {
	if _, err := db.Exec("DELETE FROM CacheElement WHERE Key = ?", key); err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("invalidate %q: %w", key, err))}
	}
	return opResult{ok: true}
}

func (q *Queue) execInvalidateMany(db *sql.DB, keys []string) opResult {
	if len(keys) == 0 {
		return opResult{ok: true}
	}
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}
	query := fmt.Sprintf("DELETE FROM CacheElement WHERE Key IN (%s)", strings.Join(placeholders, ","))
	if _, err := db.Exec(query, args...); err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("invalidate_many: %w", err))}
	}
	return opResult{ok: true}
}

func (q *Queue) execInvalidateByType(db *sql.DB, typeName string) opResult {
	if _, err := db.Exec("DELETE FROM CacheElement WHERE TypeName = ?", typeName); err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("invalidate type %q: %w", typeName, err))}
	}
	return opResult{ok: true}
}

func (q *Queue) execInvalidateAll(db *sql.DB) opResult {
	if _, err := db.Exec("DELETE FROM CacheElement"); err != nil {
		return opResult{err: akerrors.Backend(fmt.Errorf("invalidate all: %w", err))}
	}
	return opResult{ok: true}
}

func (q *Queue) execVacuum() opResult {
	if err := q.mgr.Vacuum(); err != nil {
		return opResult{err: err}
	}
	return opResult{ok: true}
}

// submit enqueues op and blocks until the worker has executed it or ctx
// is cancelled first.
func (q *Queue) submit(ctx context.Context, op operation) (opResult, error) {
	op.result = make(chan opResult, 1)
	select {
	case q.ops <- op:
	case <-ctx.Done():
		return opResult{}, ctx.Err()
	}
	select {
	case r := <-op.result:
		return r, nil
	case <-ctx.Done():
		return opResult{}, ctx.Err()
	}
}

// Insert enqueues a write and waits for it to land.
func (q *Queue) Insert(ctx context.Context, el cachemodel.CacheElement) error {
	r, err := q.submit(ctx, operation{kind: kindInsert, element: el})
	if err != nil {
		return err
	}
	return r.err
}

// InsertMany enqueues a batch write applied as a single transaction:
// every element lands or none do.
func (q *Queue) InsertMany(ctx context.Context, elements []cachemodel.CacheElement) error {
	r, err := q.submit(ctx, operation{kind: kindInsertMany, elements: elements})
	if err != nil {
		return err
	}
	return r.err
}

// Get coalesces concurrent reads of the same key into a single queue
// submission via singleflight, so a cache stampede on a hot key costs
// one worker round trip instead of N.
func (q *Queue) Get(ctx context.Context, key string) (cachemodel.CacheElement, bool, error) {
	v, err, _ := q.group.Do("get:"+key, func() (any, error) {
		r, err := q.submit(ctx, operation{kind: kindGet, key: key})
		if err != nil {
			return nil, err
		}
		return r, r.err
	})
	if err != nil {
		return cachemodel.CacheElement{}, false, err
	}
	r := v.(opResult)
	return r.element, r.ok, nil
}

// GetMany coalesces concurrent bulk reads of the same key set into a
// single queue submission, keyed by the sorted key set so two callers
// racing on the same batch share one round trip.
func (q *Queue) GetMany(ctx context.Context, keys []string) (map[string]cachemodel.CacheElement, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	digest := "get_many:" + strings.Join(sorted, "\x00")

	v, err, _ := q.group.Do(digest, func() (any, error) {
		r, err := q.submit(ctx, operation{kind: kindGetMany, keys: keys})
		if err != nil {
			return nil, err
		}
		return r, r.err
	})
	if err != nil {
		return nil, err
	}
	r := v.(opResult)
	return r.elements, nil
}

// KeysByType returns the keys of every element with the given type
// name, ordered as SQLite returns them (insertion order for small
// tables, no guarantee beyond that).
func (q *Queue) KeysByType(ctx context.Context, typeName string) ([]string, error) {
	r, err := q.submit(ctx, operation{kind: kindGetByType, typ: typeName})
	if err != nil {
		return nil, err
	}
	return r.keys, r.err
}

// AllKeys returns every key in the cache, or every key with the given
// type name if typeName is non-empty.
func (q *Queue) AllKeys(ctx context.Context, typeName string) ([]string, error) {
	r, err := q.submit(ctx, operation{kind: kindAllKeys, typ: typeName})
	if err != nil {
		return nil, err
	}
	return r.keys, r.err
}

// Invalidate deletes a single key.
func (q *Queue) Invalidate(ctx context.Context, key string) error {
	r, err := q.submit(ctx, operation{kind: kindInvalidate, key: key})
	if err != nil {
		return err
	}
	return r.err
}

// InvalidateMany deletes every key in the batch.
func (q *Queue) InvalidateMany(ctx context.Context, keys []string) error {
	r, err := q.submit(ctx, operation{kind: kindInvalidateMany, keys: keys})
	if err != nil {
		return err
	}
	return r.err
}

// InvalidateByType deletes every element with the given type name.
func (q *Queue) InvalidateByType(ctx context.Context, typeName string) error {
	r, err := q.submit(ctx, operation{kind: kindInvalidateByType, typ: typeName})
	if err != nil {
		return err
	}
	return r.err
}

// InvalidateAll deletes every element in the cache.
func (q *Queue) InvalidateAll(ctx context.Context) error {
	r, err := q.submit(ctx, operation{kind: kindInvalidateAll})
	if err != nil {
		return err
	}
	return r.err
}

// Vacuum enqueues a VACUUM, ordered after every write already queued.
func (q *Queue) Vacuum(ctx context.Context) error {
	r, err := q.submit(ctx, operation{kind: kindVacuum})
	if err != nil {
		return err
	}
	return r.err
}

// Flush is a barrier: it returns only once every operation submitted
// before it has been applied. Operations submitted concurrently from
// other goroutines after Flush is called may or may not be included.
func (q *Queue) Flush(ctx context.Context) error {
	r, err := q.submit(ctx, operation{kind: kindFlush})
	if err != nil {
		return err
	}
	return r.err
}
