// Package docstore keeps one Document instance per key and closes all of them on shutdown.
package docstore

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ValentinKolb/dDoc/lib/document"
	"github.com/ValentinKolb/dDoc/lib/gateway"
	"github.com/ValentinKolb/dDoc/lib/lockmgr"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

var log = logger.GetLogger("docstore")

// Store is a registry of documents sharing a gateway, a lock manager and options
type Store struct {
	gw    gateway.IGateway
	locks lockmgr.ILockManager
	opts  document.Options
	docs  *xsync.MapOf[string, *document.Document]
}

// New creates an empty registry
func New(gw gateway.IGateway, locks lockmgr.ILockManager, opts document.Options) *Store {
	return &Store{
		gw:    gw,
		locks: locks,
		opts:  opts,
		docs:  xsync.NewMapOf[string, *document.Document](),
	}
}

// Get returns the document for key, creating it on first use. The document is not opened.
func (s *Store) Get(key string) *document.Document {
	doc, _ := s.docs.LoadOrCompute(key, func() *document.Document {
		return document.New(key, s.gw, s.locks, s.opts)
	})
	return doc
}

// Len returns the number of known documents
func (s *Store) Len() int {
	return s.docs.Size()
}

// MaxConcurrentCloses bounds the number of documents CloseAll closes at the same time
const MaxConcurrentCloses = 32

// CloseAll closes every open document concurrently. All documents are attempted, the
// failures are returned together.
func (s *Store) CloseAll(ctx context.Context) error {
	var open []*document.Document
	s.docs.Range(func(_ string, doc *document.Document) bool {
		if doc.Status() == document.StatusOpened {
			open = append(open, doc)
		}
		return true
	})

	var g errgroup.Group
	g.SetLimit(MaxConcurrentCloses)
	errs := make([]error, len(open))
	for i, doc := range open {
		g.Go(func() error {
			if err := doc.Close(ctx); err != nil {
				log.Warningf("could not close %s: %v", doc, err)
				errs[i] = err
				return err
			}
			return nil
		})
	}

	// Wait only reports the first failure
	if err := g.Wait(); err == nil {
		return nil
	}
	return multierror.Append(nil, errs...).ErrorOrNil()
}

// BindToClose closes all documents once the process receives SIGINT or SIGTERM or ctx is
// done. The returned function removes the signal handler; it does not close the documents.
func (s *Store) BindToClose(ctx context.Context) (stop func()) {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	stopped := make(chan struct{})
	var once sync.Once

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		select {
		case <-stopped:
			return
		default:
		}
		log.Infof("closing %d documents", s.Len())
		if err := s.CloseAll(context.WithoutCancel(ctx)); err != nil {
			log.Errorf("closing documents on shutdown: %v", err)
		}
	}()

	return func() {
		once.Do(func() {
			close(stopped)
			cancel()
		})
	}
}
