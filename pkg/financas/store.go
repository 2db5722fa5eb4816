package financas

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"
)

type entity interface {
	key() string
}

// cache is the state shared by every entity store: the collection from the
// last acknowledged backend response plus loading/error bookkeeping. Reads
// hand out copies; writes bump the revision.
type cache[T entity] struct {
	mu       sync.RWMutex
	items    []T
	gen      uint64 // session generation the items belong to
	inflight int
	err      string
	revision uint64

	// seq numbers backend reads and acknowledged writes in request order;
	// installed is the seq the items reflect
	seq       uint64
	installed uint64

	flight singleflight.Group
}

func (c *cache[T]) list() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *cache[T]) find(id string) *T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.key() == id {
			found := item
			return &found
		}
	}
	return nil
}

// filter returns copies of the items matching keep
func (c *cache[T]) filter(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// begin marks an operation in flight; the returned func ends it
func (c *cache[T]) begin() func() {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.inflight--
			c.mu.Unlock()
		})
	}
}

// ticket numbers a backend read before it is sent
func (c *cache[T]) ticket() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// replace installs a freshly loaded collection unless the session moved on
// or a read requested later (or a write acknowledged since) got there first
func (c *cache[T]) replace(gen uint64, current func() uint64, seq uint64, items []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != current() || seq < c.installed {
		return false
	}
	c.installed = seq
	c.items = items
	c.gen = gen
	c.err = ""
	c.revision++
	return true
}

// apply mutates the collection unless the session moved on
func (c *cache[T]) apply(gen uint64, current func() uint64, fn func(items []T) []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != current() {
		return false
	}
	c.seq++
	c.installed = c.seq
	c.items = fn(c.items)
	c.gen = gen
	c.err = ""
	c.revision++
	return true
}

// fail records a normalized error unless the session moved on
func (c *cache[T]) fail(gen uint64, current func() uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != current() {
		return
	}
	c.err = ErrorMessage(err)
}

func (c *cache[T]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.gen = 0
	c.err = ""
	c.revision++
}

// seed fills an empty collection from a mirror
func (c *cache[T]) seed(gen uint64, items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) > 0 {
		return
	}
	c.items = items
	c.gen = gen
	c.revision++
}

func (c *cache[T]) state() StoreState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return StoreState{
		IsLoading: c.inflight > 0,
		Error:     c.err,
		Revision:  c.revision,
		Count:     len(c.items),
	}
}

func (c *cache[T]) clearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = ""
}

func (c *cache[T]) rev() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// once collapses identical concurrent submissions into one backend call
func (c *cache[T]) once(key string, fn func() (interface{}, error)) (interface{}, error) {
	v, err, _ := c.flight.Do(key, fn)
	return v, err
}

func upsert[T entity](items []T, item T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if out[i].key() == item.key() {
			out[i] = item
			return out
		}
	}
	return append(out, item)
}

func without[T entity](items []T, id string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.key() != id {
			out = append(out, item)
		}
	}
	return out
}

func prepend[T entity](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

func appendItem[T entity](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}

// flightKey identifies a submission by operation, target and payload
func flightKey(op, id string, payload interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(data)
	return op + ":" + id + ":" + hex.EncodeToString(sum[:8])
}

// storeBase wires a cache to the client
type storeBase[T entity] struct {
	client *Client
	cache  cache[T]
	name   string
	path   string
	mirror string

	// mutated runs once per acknowledged mutation, inside the duplicate guard
	mutated func(ctx context.Context, method string)
}

func (s *storeBase[T]) List() []T {
	return s.cache.list()
}

func (s *storeBase[T]) State() StoreState {
	return s.cache.state()
}

func (s *storeBase[T]) ClearError() {
	s.cache.clearError()
}

func (s *storeBase[T]) Revision() uint64 {
	return s.cache.rev()
}

// load fetches the whole collection, joining a load already in flight.
// Without a session the cache is cleared.
func (s *storeBase[T]) load(ctx context.Context) error {
	return s.fetch(ctx, true)
}

// reload always sends its own request, so the result reflects every write
// the backend acknowledged before it was called
func (s *storeBase[T]) reload(ctx context.Context) error {
	return s.fetch(ctx, false)
}

func (s *storeBase[T]) fetch(ctx context.Context, shared bool) error {
	gen := s.client.session.generation()
	if !s.client.session.authenticated() {
		s.cache.clear()
		return nil
	}

	end := s.cache.begin()
	defer end()

	run := func() (interface{}, error) {
		seq := s.cache.ticket()
		var items []T
		if err := s.client.do(ctx, http.MethodGet, s.path, nil, &items); err != nil {
			s.cache.fail(gen, s.client.session.generation, err)
			s.client.logError("Failed to load "+s.name, err)
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		if s.cache.replace(gen, s.client.session.generation, seq, items) {
			s.client.logDebug("Loaded "+s.name, "count", len(items))
			s.saveMirror(ctx, gen)
		} else {
			s.client.logDebug("Discarded stale "+s.name+" response")
		}
		return nil, nil
	}

	if !shared {
		_, err := run()
		return err
	}
	_, err := s.cache.once(fmt.Sprintf("load:%d", gen), run)
	return err
}

// mutate sends one mutation and applies the acknowledged result locally
func (s *storeBase[T]) mutate(ctx context.Context, key, method, path string, body interface{}, apply func(items []T, result T) []T) (*T, error) {
	gen := s.client.session.generation()
	end := s.cache.begin()
	defer end()

	v, err := s.cache.once(key, func() (interface{}, error) {
		var result T
		if err := s.client.do(ctx, method, path, body, &result); err != nil {
			s.cache.fail(gen, s.client.session.generation, err)
			return nil, err
		}
		if s.cache.apply(gen, s.client.session.generation, func(items []T) []T { return apply(items, result) }) {
			s.saveMirror(ctx, gen)
		}
		if s.mutated != nil {
			s.mutated(ctx, method)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	result := v.(T)
	return &result, nil
}

// remove deletes on the backend first, then locally
func (s *storeBase[T]) remove(ctx context.Context, id string) error {
	if id == "" {
		return validationError(s.name + " id is required")
	}
	gen := s.client.session.generation()
	end := s.cache.begin()
	defer end()

	_, err := s.cache.once("delete:"+id, func() (interface{}, error) {
		if err := s.client.do(ctx, http.MethodDelete, s.path+"/"+id, nil, nil); err != nil {
			s.cache.fail(gen, s.client.session.generation, err)
			return nil, err
		}
		if s.cache.apply(gen, s.client.session.generation, func(items []T) []T { return without(items, id) }) {
			s.saveMirror(ctx, gen)
		}
		if s.mutated != nil {
			s.mutated(ctx, http.MethodDelete)
		}
		return nil, nil
	})
	return err
}

func (s *storeBase[T]) saveMirror(ctx context.Context, gen uint64) {
	userID := s.client.session.userIDFor(gen)
	if userID == "" {
		return
	}
	s.client.saveMirror(ctx, s.mirror, userID, s.cache.list())
}

// onSession reloads or clears on identity change
func (s *storeBase[T]) onSession(ctx context.Context, evt SessionEvent) {
	if evt.User == nil {
		s.cache.clear()
		return
	}
	s.cache.clear()

	var mirrored []T
	if s.client.loadMirror(ctx, s.mirror, evt.User.ID, &mirrored) {
		s.cache.seed(s.client.session.generation(), mirrored)
	}
	if err := s.load(ctx); err != nil {
		s.client.logWarn("Reload after session change failed", "store", s.name, "error", err)
	}
}
