package document

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dDoc/lib/envelope"
	"github.com/ValentinKolb/dDoc/lib/gateway"
	"github.com/ValentinKolb/dDoc/lib/lockmgr"
	"github.com/ValentinKolb/dDoc/lib/retry"
	"github.com/ValentinKolb/dDoc/lib/storability"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/looplab/fsm"
	"github.com/mitchellh/copystructure"
)

var log = logger.GetLogger("document")

// Document is a schema versioned value stored under a single key.
//
// Foreground operations are serialized by a mutex. While the document is open, an
// auto-save and (with session locking) a renewal goroutine run next to them. Both take the
// same mutex per tick and stop once the document leaves StatusOpened.
type Document struct {
	key   string
	gw    gateway.IGateway
	locks lockmgr.ILockManager
	opts  Options
	log   logger.ILogger

	mu      sync.Mutex       // serializes Open, Close, Update, Save and Erase
	status  *fsm.FSM         // lifecycle, safe to read without mu
	session *lockmgr.Session // guarded by mu
	steal   atomic.Bool

	cacheMu sync.RWMutex
	cache   any

	bgCancel context.CancelFunc // stops the background tasks of the current open, guarded by mu
	bgDone   *sync.WaitGroup    // guarded by mu

	events events
}

// New creates a closed document for key
func New(key string, gw gateway.IGateway, locks lockmgr.ILockManager, opts Options) *Document {
	opts.applyDefaults()
	return &Document{
		key:    key,
		gw:     gw,
		locks:  locks,
		opts:   opts,
		log:    opts.Logger,
		status: newStatusMachine(key, opts.Logger),
	}
}

// Key returns the store key of the document
func (d *Document) Key() string {
	return d.key
}

func (d *Document) String() string {
	return fmt.Sprintf("Document(%s)", d.key)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Open acquires the session lock, loads and migrates the stored data and caches the result.
// The returned envelope is the one that is stored after the open.
func (d *Document) Open(ctx context.Context) (envelope.Envelope, error) {
	env, err := d.open(ctx)
	d.emitOpened(err)
	return env, err
}

func (d *Document) open(ctx context.Context) (envelope.Envelope, error) {
	// fail fast instead of queueing behind a running close
	if err := d.checkOpenable(); err != nil {
		return envelope.Envelope{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkOpenable(); err != nil {
		return envelope.Envelope{}, err
	}
	d.fire(eventOpen)

	if d.opts.SessionLocking && d.session == nil {
		session, err := retry.Do(ctx, d.opts.OpenLockPolicy, func(ctx context.Context, _ retry.CancelFunc) (lockmgr.Session, error) {
			return d.locks.TryAcquire(ctx, d.key, d.steal.Load())
		})
		if err != nil {
			d.fire(eventOpenFailed)
			d.log.Infof("could not lock %s: %v", d, err)
			return envelope.Envelope{}, classify(err)
		}
		d.steal.Store(false)
		d.session = &session
		d.log.Debugf("%s locked by session %s", d, session.ID)
	}

	var opened envelope.Envelope
	_, _, err := d.gw.ConditionalUpdate(ctx, d.key, func(current []byte, cancel retry.CancelFunc) []byte {
		env, err := d.load(current)
		if err != nil {
			cancel(err)
			return current
		}
		raw, err := envelope.Encode(env)
		if err != nil {
			cancel(fail(ErrUnknown, err))
			return current
		}
		opened = env
		return raw
	})
	if err != nil {
		d.compensate()
		d.fire(eventOpenFailed)
		d.log.Infof("could not open %s: %v", d, err)
		return envelope.Envelope{}, classify(err)
	}

	d.setCache(opened.Data)
	d.fire(eventOpened)
	d.startBackground()
	openDocuments.Add(1)

	d.log.Infof("%s opened at schema version %d", d, opened.SchemaVersion)
	opened.Data = d.snapshot()
	return opened, nil
}

func (d *Document) checkOpenable() error {
	switch d.Status() {
	case StatusOpened:
		return ErrAlreadyOpen
	case StatusClosing:
		return ErrClosePending
	}
	return nil
}

// load turns the stored value into the envelope written by Open
func (d *Document) load(current []byte) (envelope.Envelope, error) {
	data, err := deepCopy(d.opts.DefaultData)
	if err != nil {
		return envelope.Envelope{}, fail(ErrUnknown, err)
	}
	version, floor := 0, 0

	if current != nil {
		stored, err := envelope.Decode(current)
		switch {
		case errors.Is(err, envelope.ErrVersionRange):
			// an envelope with corrupt versions cannot be migrated safely
			return envelope.Envelope{}, fail(ErrVersionIncompatible, err)
		case err != nil:
			// legacy value, adopt it as data at version 0
			d.log.Warningf("%s holds no valid envelope (%v), treating the value as data", d, err)
			data = envelope.Unwrap(current)
		default:
			if !d.opts.Migrations.Accepts(stored.MinimalSupportedVersion) {
				return envelope.Envelope{}, fail(ErrVersionIncompatible, fmt.Errorf(
					"stored data needs schema version %d, have %d", stored.MinimalSupportedVersion, d.opts.Migrations.Version()))
			}
			data, version, floor = stored.Data, stored.SchemaVersion, stored.MinimalSupportedVersion
		}
	}

	if d.opts.Transformation != nil {
		if data, err = d.opts.Transformation(data); err != nil {
			return envelope.Envelope{}, fail(ErrTransformation, err)
		}
	}

	data, version, err = d.opts.Migrations.Apply(data, version)
	if err != nil {
		return envelope.Envelope{}, fail(ErrMigrations, err)
	}
	if data == nil {
		data = map[string]any{}
	}

	if err := d.validate(data); err != nil {
		return envelope.Envelope{}, err
	}
	data = storability.Normalize(data)

	return envelope.Envelope{
		SchemaVersion:           max(d.opts.Migrations.Version(), version),
		MinimalSupportedVersion: d.opts.Migrations.MinimalSupportedVersion(floor),
		Data:                    data,
	}, nil
}

// compensate releases a session after a failed open. Failures are only logged.
func (d *Document) compensate() {
	if d.session == nil {
		return
	}
	session := *d.session
	d.session = nil

	err := retry.Run(context.Background(), d.opts.CompensationPolicy, func(ctx context.Context, cancel retry.CancelFunc) error {
		err := d.locks.Release(ctx, d.key, session, false)
		if lockmgr.IsConflict(err) {
			cancel(err)
		}
		return err
	})
	if err != nil {
		d.log.Warningf("could not release session %s of %s: %v", session.ID, d, err)
	}
}

// Close saves the cache, releases the session and stops the background tasks.
//
// If the session was taken over by someone else, the document is closed anyway and
// ErrSessionLocked is returned. The foreign lock is left alone and the cache is only saved
// when the takeover happened after the final save. Any other failure leaves the document
// open so Close can be retried.
func (d *Document) Close(ctx context.Context) error {
	stopped, err := d.close(ctx)
	if stopped != nil {
		// the background tasks need the mutex to notice the cancellation
		stopped.Wait()
	}
	d.emitClosed(err)
	return err
}

func (d *Document) close(ctx context.Context) (*sync.WaitGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Status() == StatusClosed {
		return nil, ErrAlreadyClosed
	}
	d.fire(eventClose)

	if _, err := d.update(ctx, identity); err != nil {
		if errors.Is(err, ErrSessionLocked) {
			// retrying cannot succeed, the new owner keeps its lock
			d.log.Warningf("%s was taken over by another session, closing without saving", d)
			return d.teardown(), err
		}
		d.fire(eventCloseFailed)
		d.log.Warningf("could not save %s before closing: %v", d, err)
		return nil, err
	}

	if d.opts.SessionLocking && d.session != nil {
		err := d.locks.Release(ctx, d.key, *d.session, d.steal.Load())
		switch {
		case lockmgr.IsConflict(err):
			d.log.Warningf("%s was saved but its session had been taken over", d)
			return d.teardown(), fail(ErrSessionLocked, err)
		case err != nil:
			d.fire(eventCloseFailed)
			return nil, classify(err)
		}
	}

	stopped := d.teardown()
	d.log.Infof("%s closed", d)
	return stopped, nil
}

// teardown moves an open document to StatusClosed and returns the wait group of the
// stopped background tasks
func (d *Document) teardown() *sync.WaitGroup {
	stopped := d.bgDone
	if d.bgCancel != nil {
		d.bgCancel()
	}
	d.bgCancel, d.bgDone = nil, nil
	d.session = nil
	d.cacheMu.Lock()
	d.cache = nil
	d.cacheMu.Unlock()
	d.fire(eventClosed)
	openDocuments.Add(-1)
	return stopped
}

// --------------------------------------------------------------------------
// Cache
// --------------------------------------------------------------------------

// Cache returns a copy of the cached data
func (d *Document) Cache() (any, error) {
	if d.Status() != StatusOpened {
		return nil, ErrNotOpen
	}
	return d.snapshot(), nil
}

// Decode copies the cached data into out, which must be a pointer. Struct fields are matched
// by their json tags and numbers are converted to the field types.
func (d *Document) Decode(out any) error {
	if d.Status() != StatusOpened {
		return ErrNotOpen
	}
	if err := envelope.DecodeData(envelope.Envelope{Data: d.snapshot()}, out); err != nil {
		return fail(ErrUnknown, err)
	}
	return nil
}

// SetCache replaces the cached data with a copy of v. The store is written on the next
// save.
func (d *Document) SetCache(v any) (any, error) {
	if d.Status() != StatusOpened {
		return nil, ErrNotOpen
	}
	copied, err := deepCopy(v)
	if err != nil {
		return nil, fail(ErrUnknown, err)
	}
	d.setCache(copied)
	d.emitCacheUpdated()
	return d.snapshot(), nil
}

func (d *Document) setCache(v any) {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	d.cache = v
}

// snapshot returns a private copy of the cache. The cache itself is replaced on every write
// and never mutated in place.
func (d *Document) snapshot() any {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	copied, err := deepCopy(d.cache)
	if err != nil {
		// the cache only ever holds copies that were made successfully
		d.log.Errorf("could not copy cache of %s: %v", d, err)
		return nil
	}
	return copied
}

// --------------------------------------------------------------------------
// Data operations
// --------------------------------------------------------------------------

// Update applies fn to a copy of the cache, caches the result and writes it to the store.
// fn must not keep references to its argument.
func (d *Document) Update(ctx context.Context, fn func(data any) (any, error)) (any, error) {
	if s := d.Status(); s == StatusClosed || s == StatusOpening {
		return nil, ErrNotOpen
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.Status(); s == StatusClosed || s == StatusOpening {
		return nil, ErrNotOpen
	}
	return d.update(ctx, fn)
}

// Save writes the cache to the store
func (d *Document) Save(ctx context.Context) (any, error) {
	return d.Update(ctx, identity)
}

func identity(data any) (any, error) {
	return data, nil
}

func (d *Document) update(ctx context.Context, fn func(data any) (any, error)) (result any, err error) {
	defer func() {
		documentSaves.Inc()
		if err != nil {
			documentSaveErrors.Inc()
		}
	}()

	if err := d.verifySession(ctx); err != nil {
		return nil, err
	}

	next, err := fn(d.snapshot())
	if err != nil {
		return nil, fmt.Errorf("update function: %w", err)
	}
	frozen, err := deepCopy(next)
	if err != nil {
		return nil, fail(ErrUnknown, err)
	}
	// a rejected result never reaches the cache, later saves would fail on it forever
	if err := d.validate(frozen); err != nil {
		return nil, err
	}
	frozen = storability.Normalize(frozen)
	d.setCache(frozen)

	_, _, err = d.gw.ConditionalUpdate(ctx, d.key, func(current []byte, cancel retry.CancelFunc) []byte {
		stored, err := envelope.Decode(current)
		if current == nil || err != nil {
			cancel(fail(ErrUnknown, fmt.Errorf("stored envelope is missing or malformed: %v", err)))
			return current
		}
		stored.Data = frozen
		raw, err := envelope.Encode(stored)
		if err != nil {
			cancel(fail(ErrUnknown, err))
			return current
		}
		return raw
	})
	if err != nil {
		return nil, classify(err)
	}
	return d.snapshot(), nil
}

// verifySession fails with ErrSessionLocked if another session holds the lock.
// A free lock, e.g. an expired one, is accepted.
func (d *Document) verifySession(ctx context.Context) error {
	if !d.opts.SessionLocking {
		return nil
	}
	holder, held, err := d.locks.GetLockHolder(ctx, d.key)
	if err != nil {
		return classify(err)
	}
	if held && (d.session == nil || d.session.ID != holder) {
		return ErrSessionLocked
	}
	return nil
}

func (d *Document) validate(data any) error {
	if d.opts.Validator != nil {
		if err := d.opts.Validator.Validate(data); err != nil {
			return fail(ErrSchemaValidation, err)
		}
	}
	if err := storability.Check(data); err != nil {
		return fail(ErrUnstorable, err)
	}
	if !isNode(data) {
		return fail(ErrUnstorable, fmt.Errorf("document data must be a map or a list, got %T", data))
	}
	return nil
}

// Steal allows the next Open and Close to take over and remove a lock held by another
// session, e.g. one of a crashed process.
func (d *Document) Steal() error {
	if d.Status() == StatusClosing {
		return ErrClosePending
	}
	if !d.opts.SessionLocking {
		return ErrNotSupported
	}
	d.steal.Store(true)
	d.log.Infof("%s marked for stealing", d)
	return nil
}

// Erase removes the document from the store. The document must be closed.
func (d *Document) Erase(ctx context.Context) error {
	if s := d.Status(); s == StatusOpened || s == StatusClosing {
		return ErrMustBeClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Status() != StatusClosed {
		return ErrMustBeClosed
	}
	if err := d.gw.Remove(ctx, d.key); err != nil {
		return classify(err)
	}
	d.log.Infof("%s erased", d)
	return nil
}

// IsOpenAvailable reports whether Open could currently succeed from the lock's point of
// view: the document is not open and no other session holds the lock.
func (d *Document) IsOpenAvailable(ctx context.Context) (bool, error) {
	if d.Status() == StatusOpened {
		return false, nil
	}
	if !d.opts.SessionLocking {
		return true, nil
	}
	holder, held, err := d.locks.GetLockHolder(ctx, d.key)
	if err != nil {
		return false, classify(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if held && (d.session == nil || d.session.ID != holder) {
		return false, nil
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// isNode reports whether v is a map or a list, the only root values an envelope accepts
func isNode(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func deepCopy(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return copystructure.Copy(v)
}
