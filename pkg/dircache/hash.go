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
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// NameHash is a 32-bit seedable hash over a byte buffer. The pool applies
// it to plaintext and encrypted names alike; implementations must be pure
// functions of (seed, data).
type NameHash func(seed uint32, data []byte) uint32

const hashInit = 0x9e3779b9

// XXHash32 is the default NameHash, built on xxhash with the seed folded
// into the digest ahead of the data.
func XXHash32(seed uint32, data []byte) uint32 {
	var (
		d  xxhash.Digest
		sb [4]byte
	)
	d.Reset()
	binary.LittleEndian.PutUint32(sb[:], seed)
	_, _ = d.Write(sb[:])
	_, _ = d.Write(data)
	s := d.Sum64()
	return uint32(s ^ (s >> 32))
}

// mix32 spreads a cache identity over 32 bits (murmur3 finalizer). Salting
// name hashes with the owning cache keeps identical names from different
// directories in different buckets of the shared tables.
func mix32(v uint32) uint32 {
	v ^= v >> 16
	v *= 0x85ebca6b
	v ^= v >> 13
	v *= 0xc2b2ae35
	v ^= v >> 16
	return v
}
