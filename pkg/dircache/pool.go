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
	"math/bits"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/basenana/dircache/config"
	"github.com/basenana/dircache/utils/logger"
)

const (
	// shardCount bounds lock memory regardless of bucket table size.
	shardCount = 32

	minBuckets     = 512
	defaultBuckets = 1 << 14
)

type bucket map[*Entry]struct{}

// Pool is a pair of hash tables shared by many directory caches: entries
// indexed by salted plaintext-name hash and by salted encrypted-name hash.
// Caches reference a pool without owning it.
type Pool struct {
	tbl    []bucket
	encTbl []bucket
	mask   uint32

	shards [shardCount]sync.Mutex

	hash    NameHash
	entries atomic.Int64

	global bool
}

type settings struct {
	enable  bool
	buckets uint32
	global  bool
	hash    NameHash
}

type Option func(*settings)

// WithNameHash overrides the hash primitive used by pools created after
// Init.
func WithNameHash(h NameHash) Option {
	return func(s *settings) { s.hash = h }
}

var (
	poolCfg    settings
	globalPool *Pool

	dcLog *zap.SugaredLogger
)

// Init applies the cache configuration for the process or owning context.
// It must be called before NewPool; in global mode it also builds the
// shared pool.
func Init(cfg config.Config, opts ...Option) {
	dcLog = logger.NewLogger("dircache")

	poolCfg = settings{
		enable:  cfg.Enable,
		buckets: roundBuckets(cfg.Buckets),
		global:  cfg.GlobalPool,
		hash:    XXHash32,
	}
	for _, opt := range opts {
		opt(&poolCfg)
	}

	globalPool = nil
	if poolCfg.enable && poolCfg.global {
		globalPool = newPool(poolCfg.buckets, poolCfg.hash)
		globalPool.global = true
	}
	bucketGauge.Set(float64(poolCfg.buckets))
}

// NewPool returns the shared pool in global mode, or a fresh pool owned by
// the calling context. It returns nil when the cache is disabled.
func NewPool() *Pool {
	if !poolCfg.enable {
		return nil
	}
	if poolCfg.global {
		return globalPool
	}
	return newPool(poolCfg.buckets, poolCfg.hash)
}

func newPool(buckets uint32, h NameHash) *Pool {
	if h == nil {
		h = XXHash32
	}
	p := &Pool{
		tbl:    make([]bucket, buckets),
		encTbl: make([]bucket, buckets),
		mask:   buckets - 1,
		hash:   h,
	}
	for i := range p.tbl {
		p.tbl[i] = make(bucket)
		p.encTbl[i] = make(bucket)
	}
	return p
}

// Free releases a context-owned pool. Freeing the shared global pool is a
// no-op, its lifetime is the process.
func (p *Pool) Free() {
	if p == nil || p.global {
		return
	}
	p.tbl = nil
	p.encTbl = nil
}

// Buckets reports the size of each of the two tables.
func (p *Pool) Buckets() int {
	if p == nil {
		return 0
	}
	return len(p.tbl)
}

// Entries reports the number of live entries across all caches on this
// pool.
func (p *Pool) Entries() int64 {
	if p == nil {
		return 0
	}
	return p.entries.Load()
}

func (p *Pool) bucketFor(h uint32) bucket    { return p.tbl[h&p.mask] }
func (p *Pool) encBucketFor(h uint32) bucket { return p.encTbl[h&p.mask] }
func (p *Pool) shardFor(h uint32) *sync.Mutex {
	return &p.shards[h%shardCount]
}

func roundBuckets(n uint64) uint32 {
	if n == 0 {
		return defaultBuckets
	}
	if n < minBuckets {
		n = minBuckets
	}
	if n > config.MaxBuckets {
		n = config.MaxBuckets
	}
	if n&(n-1) != 0 {
		n = 1 << bits.Len64(n)
	}
	return uint32(n)
}
