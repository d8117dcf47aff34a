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

package keys

import (
	"errors"

	"github.com/bluele/gcache"
)

var ErrNotFound = errors.New("no key")

// DeriveFunc produces key material for a principal on cache miss.
type DeriveFunc func(principal int64) (*ChainKey, error)

// Cache is an LRU key-derivation cache. It owns one reference per cached
// handle, dropped when the handle is evicted; Get hands the caller its own
// reference.
type Cache struct {
	keys   gcache.Cache
	derive DeriveFunc
}

func NewCache(size int, derive DeriveFunc) *Cache {
	c := &Cache{derive: derive}

	release := func(_, value interface{}) {
		value.(*ChainKey).Release()
	}
	builder := gcache.New(size).LRU().
		EvictedFunc(release).
		PurgeVisitorFunc(release)
	if derive != nil {
		builder = builder.LoaderFunc(func(k interface{}) (interface{}, error) {
			// the fresh handle's initial reference belongs to the cache
			return derive(k.(int64))
		})
	}
	c.keys = builder.Build()
	return c
}

// Get returns the handle for principal, deriving it on miss when a
// DeriveFunc is configured. The returned handle carries a reference owned
// by the caller.
func (c *Cache) Get(principal int64) (*ChainKey, error) {
	cached, err := c.keys.Get(principal)
	if err != nil {
		if err == gcache.KeyNotFoundError {
			return nil, ErrNotFound
		}
		return nil, err
	}

	key := cached.(*ChainKey)
	key.Ref()
	return key, nil
}

// Put caches a handle, taking a reference for the cache. A handle already
// cached under the same principal is released first.
func (c *Cache) Put(principal int64, key *ChainKey) {
	c.keys.Remove(principal)
	key.Ref()
	_ = c.keys.Set(principal, key)
}

// Remove drops the cached handle for principal, releasing the cache's
// reference.
func (c *Cache) Remove(principal int64) {
	c.keys.Remove(principal)
}

// Purge drops every cached handle.
func (c *Cache) Purge() {
	c.keys.Purge()
}

func (c *Cache) Len() int {
	return c.keys.Len(true)
}
