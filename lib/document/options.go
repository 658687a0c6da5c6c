package document

import (
	"time"

	"github.com/ValentinKolb/dDoc/lib/migration"
	"github.com/ValentinKolb/dDoc/lib/retry"
	"github.com/ValentinKolb/dDoc/lib/schema"
	"github.com/lni/dragonboat/v4/logger"
)

const (
	DefaultAutoSaveInterval           = 120 * time.Second
	DefaultConcurrentAutoSaveInterval = 300 * time.Second
	DefaultRenewInterval              = 60 * time.Second
)

// Options configures a document. Start from DefaultOptions or ConcurrentOptions, the zero
// value disables session locking.
type Options struct {
	DefaultData    any                      // Data of a document that was never written
	Migrations     migration.Chain          // Ordered schema migrations
	Transformation migration.Transformation // Applied to loaded data before migrations (optional)
	Validator      schema.Validator         // Checked on every open and update (optional)

	AutoSaveInterval time.Duration // Interval of the background save
	RenewInterval    time.Duration // Interval of the background session renewal
	SessionLocking   bool          // Guard the document with a session lock

	OpenLockPolicy     retry.Policy // Retries of the session acquisition in Open
	CompensationPolicy retry.Policy // Retries of the lock release after a failed Open

	Logger logger.ILogger // Defaults to the "document" logger
}

// DefaultOptions returns options for a session locked document
func DefaultOptions() Options {
	return Options{
		DefaultData:        map[string]any{},
		AutoSaveInterval:   DefaultAutoSaveInterval,
		RenewInterval:      DefaultRenewInterval,
		SessionLocking:     true,
		OpenLockPolicy:     retry.OpenLockPolicy,
		CompensationPolicy: retry.CompensationPolicy,
	}
}

// ConcurrentOptions returns options for a document without session locking.
// Every process may write it, the last save wins.
func ConcurrentOptions() Options {
	opts := DefaultOptions()
	opts.SessionLocking = false
	opts.AutoSaveInterval = DefaultConcurrentAutoSaveInterval
	return opts
}

func (o *Options) applyDefaults() {
	if o.AutoSaveInterval <= 0 {
		if o.SessionLocking {
			o.AutoSaveInterval = DefaultAutoSaveInterval
		} else {
			o.AutoSaveInterval = DefaultConcurrentAutoSaveInterval
		}
	}
	if o.RenewInterval <= 0 {
		o.RenewInterval = DefaultRenewInterval
	}
	if o.Logger == nil {
		o.Logger = log
	}
}
