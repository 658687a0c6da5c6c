package document

import "sync"

// subscribers is a set of event handlers
type subscribers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]T
}

func (s *subscribers[T]) add(fn T) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]T)
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.fns, id)
		})
	}
}

// each calls fn for every handler. Handlers run without the lock held and may unsubscribe.
func (s *subscribers[T]) each(fn func(T)) {
	s.mu.Lock()
	handlers := make([]T, 0, len(s.fns))
	for id := 0; id < s.next; id++ {
		if h, ok := s.fns[id]; ok {
			handlers = append(handlers, h)
		}
	}
	s.mu.Unlock()

	for _, h := range handlers {
		fn(h)
	}
}

type events struct {
	opened       subscribers[func(error)]
	closed       subscribers[func(error)]
	cacheUpdated subscribers[func()]
}

// OnOpened registers a handler that receives the result of every Open call.
// The returned function removes the handler.
func (d *Document) OnOpened(fn func(err error)) (unsubscribe func()) {
	return d.events.opened.add(fn)
}

// OnClosed registers a handler that receives the result of every Close call.
func (d *Document) OnClosed(fn func(err error)) (unsubscribe func()) {
	return d.events.closed.add(fn)
}

// OnCacheUpdated registers a handler that is called after SetCache.
func (d *Document) OnCacheUpdated(fn func()) (unsubscribe func()) {
	return d.events.cacheUpdated.add(fn)
}

func (d *Document) emitOpened(err error) {
	d.events.opened.each(func(h func(error)) { h(err) })
}

func (d *Document) emitClosed(err error) {
	d.events.closed.each(func(h func(error)) { h(err) })
}

func (d *Document) emitCacheUpdated() {
	d.events.cacheUpdated.each(func(h func()) { h() })
}
