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
	"fmt"
	"sync/atomic"
)

// MaxNameLen bounds plaintext and encrypted names alike.
const MaxNameLen = 255

// Key is an opaque reference-counted handle to the key material used to
// translate between a plaintext name and its encrypted counterpart. The
// cache only acquires and releases references, it never inspects the key.
type Key interface {
	Ref()
	Release()
}

// Entry is one cached plaintext to encrypted name mapping plus the key
// that produced it. An entry lives on exactly one of its cache's two
// entry sets and in one bucket of each pool table.
type Entry struct {
	cache *Dircache
	key   Key

	name    string
	encName string

	nameHash uint32
	encHash  uint32

	// gen is stamped from the cache generation on reconfirmation and read
	// lock-free by plaintext lookups.
	gen atomic.Uint64
}

func (e *Entry) Name() string    { return e.name }
func (e *Entry) EncName() string { return e.encName }
func (e *Entry) Key() Key        { return e.key }

// Insert adds a new mapping to the cache. During an open update pass the
// entry lands on the active list stamped with the pass generation;
// otherwise it is treated like a detected inconsistency and lands on the
// stale list, reachable only through LookupByEncName until the next pass.
//
// Name lengths are validated upstream by the layer that encodes directory
// entries; violating the bounds here panics.
func (c *Dircache) Insert(key Key, name, encName string) *Entry {
	if c == nil {
		return nil
	}
	if len(name) == 0 || len(name) > MaxNameLen ||
		len(encName) == 0 || len(encName) > MaxNameLen {
		panic(fmt.Sprintf("dircache: invalid file name length: %d/%d",
			len(name), len(encName)))
	}

	e := &Entry{
		cache:   c,
		key:     key,
		name:    name,
		encName: encName,
	}
	e.nameHash = c.hashName(name)
	e.encHash = c.hashName(encName)
	key.Ref()

	if c.updating.Load() {
		c.insertLocked(e)
	} else {
		c.mu.Lock()
		c.insertLocked(e)
		c.mu.Unlock()
	}

	dcLog.Debugf("insert hash=%x enchash=%x: %s -> %s",
		e.nameHash, e.encHash, e.name, e.encName)
	return e
}

func (c *Dircache) insertLocked(e *Entry) {
	c.update(e, false)

	p := c.pool
	mtx := p.shardFor(e.nameHash)
	mtx.Lock()
	p.bucketFor(e.nameHash)[e] = struct{}{}
	mtx.Unlock()

	mtx = p.shardFor(e.encHash)
	mtx.Lock()
	p.encBucketFor(e.encHash)[e] = struct{}{}
	mtx.Unlock()

	p.entries.Add(1)
	totalEntries.Add(1)
}

// LookupByName resolves a plaintext name against the current generation.
// It must not be called while an update pass is open or while stale
// entries are pending; both are caller errors.
func (c *Dircache) LookupByName(name string) *Entry {
	if c == nil {
		return nil
	}
	if c.updating.Load() {
		panic("dircache: lookup during open update pass")
	}
	if c.staleLen.Load() != 0 {
		panic("dircache: lookup with stale entries pending")
	}

	var (
		h   = c.hashName(name)
		gen = c.gen.Load()
		mtx = c.pool.shardFor(h)
	)
	mtx.Lock()
	for e := range c.pool.bucketFor(h) {
		if e.nameHash == h && e.cache == c && e.gen.Load() == gen &&
			e.name == name {
			mtx.Unlock()
			countLookup("name", true)
			dcLog.Debugf("lookup: found %s -> %s", e.name, e.encName)
			return e
		}
	}
	mtx.Unlock()
	countLookup("name", false)
	dcLog.Debugf("lookup: not found %s", name)
	return nil
}

// LookupByEncName resolves an encrypted on-disk name back to its cached
// mapping. Generation freshness is deliberately not required: the mapping
// is valid for the stored name whether or not the directory has been
// re-read since. Legal while an update pass is open.
func (c *Dircache) LookupByEncName(encName string) *Entry {
	if c == nil {
		return nil
	}

	var (
		h   = c.hashName(encName)
		mtx = c.pool.shardFor(h)
	)
	mtx.Lock()
	for e := range c.pool.encBucketFor(h) {
		if e.encHash == h && e.cache == c && e.encName == encName {
			mtx.Unlock()
			countLookup("enc", true)
			dcLog.Debugf("enclookup: found %s -> %s", e.name, e.encName)
			return e
		}
	}
	mtx.Unlock()
	countLookup("enc", false)
	dcLog.Debugf("enclookup: not found %s", encName)
	return nil
}

// freeEntry unlinks e from its cache set and both pool buckets and drops
// the key reference. Callers hold the cache lock exclusively.
func (c *Dircache) freeEntry(e *Entry) {
	dcLog.Debugf("free entry: %s -> %s", e.name, e.encName)

	e.key.Release()
	delete(c.sets[0], e)
	delete(c.sets[1], e)

	p := c.pool
	mtx := p.shardFor(e.nameHash)
	mtx.Lock()
	delete(p.bucketFor(e.nameHash), e)
	mtx.Unlock()

	mtx = p.shardFor(e.encHash)
	mtx.Lock()
	delete(p.encBucketFor(e.encHash), e)
	mtx.Unlock()

	p.entries.Add(-1)
	totalEntries.Add(-1)
}
