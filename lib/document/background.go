package document

import (
	"context"
	"sync"
	"time"
)

// startBackground launches auto-save and session renewal for the current open
func (d *Document) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	d.bgCancel, d.bgDone = cancel, wg

	wg.Add(1)
	go d.every(ctx, wg, d.opts.AutoSaveInterval, d.autoSave)

	if d.opts.SessionLocking {
		wg.Add(1)
		go d.every(ctx, wg, d.opts.RenewInterval, d.renew)
	}
}

// every runs task on each tick until ctx is cancelled
func (d *Document) every(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, task func(ctx context.Context)) {
	defer wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task(ctx)
		}
	}
}

func (d *Document) autoSave(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ctx.Err() != nil || d.Status() != StatusOpened {
		return
	}
	if _, err := d.update(ctx, identity); err != nil {
		d.log.Warningf("auto-save of %s failed: %v", d, err)
		return
	}
	d.log.Debugf("auto-saved %s", d)
}

// renew holds the mutex for the whole call, so Close cannot release the lock while a
// renewal is in flight
func (d *Document) renew(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ctx.Err() != nil || d.Status() != StatusOpened || d.session == nil {
		return
	}
	session := *d.session

	if err := d.locks.Renew(ctx, d.key, session); err != nil {
		if ctx.Err() != nil {
			return
		}
		lockRenewErrors.Inc()
		d.log.Warningf("renewal of session %s for %s failed: %v", session.ID, d, err)
		return
	}
	d.log.Debugf("renewed session %s for %s", session.ID, d)
}
