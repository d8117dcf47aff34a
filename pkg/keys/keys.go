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
	"sync/atomic"

	"github.com/basenana/dircache/pkg/dircache"
)

// ChainKey is a reference-counted handle to derived per-directory key
// material. The directory cache holds one reference per entry it caches;
// the material is wiped once the last reference is gone.
type ChainKey struct {
	refs atomic.Int64
	data []byte
}

var _ dircache.Key = &ChainKey{}

// NewChainKey wraps key material in a handle owned by the caller, refcount
// one.
func NewChainKey(material []byte) *ChainKey {
	k := &ChainKey{data: append([]byte(nil), material...)}
	k.refs.Store(1)
	return k
}

func (k *ChainKey) Ref() {
	k.refs.Add(1)
}

func (k *ChainKey) Release() {
	switch n := k.refs.Add(-1); {
	case n < 0:
		panic("keys: release of dropped key")
	case n == 0:
		for i := range k.data {
			k.data[i] = 0
		}
		k.data = nil
	}
}

// Bytes exposes the material to the owning translation layer. The cache
// itself never calls this.
func (k *ChainKey) Bytes() []byte {
	return k.data
}

// Refs reports the current reference count.
func (k *ChainKey) Refs() int64 {
	return k.refs.Load()
}
