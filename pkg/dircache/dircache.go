/*
 Copyright 2023 NanaFS Authors.

 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package dircache

import (
	"sync"
	"sync/atomic"
)

// Dircache caches the name mappings of one directory. A generation token
// supplied by the directory read pass decides which entries are current;
// entries not reconfirmed during a pass are dropped when the pass commits.
//
// The cache lock is held exclusively from BeginUpdate until the matching
// EndUpdate or AbortUpdate, by a single writer. Lookups synchronize on the
// pool shard locks only.
type Dircache struct {
	pool *Pool
	id   uint32

	mu sync.RWMutex

	// gen and updating are mutated under mu and read lock-free by the
	// lookup paths.
	gen      atomic.Uint64
	updating atomic.Bool
	staleLen atomic.Int64

	// sets double-buffer the directory's entries; swapped picks which one
	// is active. Flipping swapped expires every active entry in O(1).
	sets    [2]map[*Entry]struct{}
	swapped bool
}

var cacheID atomic.Uint32

// NewDircache builds an empty cache referencing pool. A nil pool (cache
// disabled) yields a nil cache whose operations are all no-ops.
func NewDircache(pool *Pool) *Dircache {
	if pool == nil {
		return nil
	}
	c := &Dircache{
		pool: pool,
		id:   cacheID.Add(1),
	}
	c.sets[0] = make(map[*Entry]struct{})
	c.sets[1] = make(map[*Entry]struct{})
	return c
}

func (c *Dircache) active() map[*Entry]struct{} {
	if c.swapped {
		return c.sets[1]
	}
	return c.sets[0]
}

func (c *Dircache) stale() map[*Entry]struct{} {
	if c.swapped {
		return c.sets[0]
	}
	return c.sets[1]
}

func (c *Dircache) hashName(s string) uint32 {
	return mix32(c.id) ^ c.pool.hash(hashInit*uint32(len(s)), []byte(s))
}

// Generation reports the token of the last committed or in-flight pass,
// zero when the cache holds no valid snapshot.
func (c *Dircache) Generation() uint64 {
	if c == nil {
		return 0
	}
	return c.gen.Load()
}

// expire invalidates every active entry. When the stale set is empty a
// flag flip retires the whole active set at once; otherwise entries are
// demoted one by one with their generation stamps cleared. Active is empty
// afterwards.
func (c *Dircache) expire() {
	c.gen.Store(0)
	if len(c.stale()) == 0 {
		c.swapped = !c.swapped
	} else {
		stale := c.stale()
		for e := range c.active() {
			e.gen.Store(0)
			delete(c.active(), e)
			stale[e] = struct{}{}
			dcLog.Debugf("expire: active entry %s", e.name)
		}
	}
	expireCounter.Inc()
	c.staleLen.Store(int64(len(c.stale())))
}

// update is the reconfirmation primitive behind Reconfirm and the tail of
// Insert. With a pass open the entry is stamped with the pass generation
// and moved to the active set. Idle, a generation mismatch means the cache
// and the underlying directory disagree: expire everything and strand the
// entry on the stale set.
func (c *Dircache) update(e *Entry, onList bool) {
	if c.updating.Load() {
		dcLog.Debugf("update: %s -> %s", e.name, e.encName)
		e.gen.Store(c.gen.Load())
		if onList {
			delete(c.sets[0], e)
			delete(c.sets[1], e)
		}
		c.active()[e] = struct{}{}
	} else if g := c.gen.Load(); g == 0 || g != e.gen.Load() {
		dcLog.Debugf("inconsistent cache: gen=%d old_gen=%d name=%s",
			g, e.gen.Load(), e.name)
		inconsistentCounter.Inc()
		c.expire()
		e.gen.Store(0)
		if !onList {
			c.stale()[e] = struct{}{}
		}
	}
	c.staleLen.Store(int64(len(c.stale())))
}

// Reconfirm marks an existing entry as present in the open pass on its
// cache. Outside a pass it is an out-of-band freshness check that expires
// the cache on a generation mismatch.
func (c *Dircache) Reconfirm(e *Entry) {
	if c == nil || e == nil {
		return
	}
	if c.updating.Load() {
		c.update(e, true)
		return
	}
	c.mu.Lock()
	c.update(e, true)
	c.mu.Unlock()
}

// BeginUpdate opens an update pass for the directory content version gen
// and acquires the cache exclusively until EndUpdate or AbortUpdate. A
// zero gen or a repeat of the current one re-enters the same pass without
// expiring anything.
func (c *Dircache) BeginUpdate(gen uint64) {
	if c == nil {
		return
	}
	if c.updating.Load() && (gen == 0 || gen == c.gen.Load()) {
		// pass holder re-entering the open pass
		return
	}
	c.mu.Lock()
	if gen != 0 && c.gen.Load() != gen {
		dcLog.Debugf("begin update: gen=%d", gen)
		if len(c.active()) != 0 {
			c.expire()
		}
		c.gen.Store(gen)
		c.updating.Store(true)
	}
}

// EndUpdate commits the pass: stale survivors were never reconfirmed and
// are gone from the underlying directory, so they are freed. The active
// set is exactly the confirmed content at the new generation. Without an
// open pass this is a no-op. Releases the pass lock.
func (c *Dircache) EndUpdate() {
	if c == nil {
		return
	}
	defer c.mu.Unlock()

	if !c.updating.Load() {
		c.assertSettled()
		return
	}
	for e := range c.stale() {
		c.freeEntry(e)
	}
	c.updating.Store(false)
	c.staleLen.Store(0)
}

// AbortUpdate abandons the pass without making it authoritative: entries
// confirmed so far are demoted back to stale rather than freed, staying
// candidates for the next pass. Releases the pass lock.
func (c *Dircache) AbortUpdate() {
	if c == nil {
		return
	}
	defer c.mu.Unlock()

	if c.updating.Load() {
		dcLog.Debugf("abort update: gen=%d", c.gen.Load())
		c.expire()
		c.updating.Store(false)
	}
	c.assertSettled()
}

// Purge frees every entry on both sets, leaving the cache empty and
// reusable.
func (c *Dircache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	for e := range c.stale() {
		c.freeEntry(e)
	}
	for e := range c.active() {
		c.freeEntry(e)
	}
	c.staleLen.Store(0)
	purgeCounter.Inc()
	c.mu.Unlock()
}

// Free purges the cache and detaches it from its pool. The cache must not
// be used afterwards.
func (c *Dircache) Free() {
	if c == nil {
		return
	}
	c.Purge()
	c.mu.Lock()
	c.pool = nil
	c.sets[0] = nil
	c.sets[1] = nil
	c.mu.Unlock()
}

// At most one of the two sets may hold entries while no pass is open.
func (c *Dircache) assertSettled() {
	if len(c.sets[0]) != 0 && len(c.sets[1]) != 0 {
		panic("dircache: both entry sets populated outside update pass")
	}
}
