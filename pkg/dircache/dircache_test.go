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
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("TestInsertCommitLookup", func() {
	var (
		d   *Dircache
		key *testKey
	)
	Context("commit one mapping", func() {
		It("init should be succeed", func() {
			initTestConfig()
			d = NewDircache(NewPool())
			key = newTestKey()
			Expect(d).ShouldNot(BeNil())
		})
		It("insert during a pass should be succeed", func() {
			d.BeginUpdate(1)
			e := d.Insert(key, "foo", "ABC")
			Expect(e).ShouldNot(BeNil())
			d.EndUpdate()
		})
	})
	Context("lookup after commit", func() {
		It("plaintext lookup should hit", func() {
			e := d.LookupByName("foo")
			Expect(e).ShouldNot(BeNil())
			Expect(e.EncName()).Should(Equal("ABC"))
		})
		It("encrypted lookup should hit", func() {
			e := d.LookupByEncName("ABC")
			Expect(e).ShouldNot(BeNil())
			Expect(e.Name()).Should(Equal("foo"))
		})
		It("unknown names should miss", func() {
			Expect(d.LookupByName("bar")).Should(BeNil())
			Expect(d.LookupByEncName("XYZ")).Should(BeNil())
		})
	})
})

var _ = Describe("TestEvictionOnNewGeneration", func() {
	var (
		d   *Dircache
		key *testKey
	)
	Context("entry not reconfirmed in the next pass", func() {
		It("init should be succeed", func() {
			initTestConfig()
			d = NewDircache(NewPool())
			key = newTestKey()
			d.BeginUpdate(1)
			d.Insert(key, "foo", "ABC")
			d.EndUpdate()
			Expect(key.refs.Load()).Should(Equal(int64(2)))
		})
		It("an empty pass with a new generation should evict", func() {
			d.BeginUpdate(2)
			d.EndUpdate()
			Expect(d.LookupByName("foo")).Should(BeNil())
			Expect(d.LookupByEncName("ABC")).Should(BeNil())
		})
		It("the key reference should be released", func() {
			Expect(key.refs.Load()).Should(Equal(int64(1)))
		})
	})
})

var _ = Describe("TestReconfirmPreserves", func() {
	var (
		d      *Dircache
		e1, e2 *Entry
		key    *testKey
	)
	Context("one of two entries reconfirmed", func() {
		It("init should be succeed", func() {
			initTestConfig()
			d = NewDircache(NewPool())
			key = newTestKey()
			d.BeginUpdate(1)
			e1 = d.Insert(key, "n1", "E1")
			e2 = d.Insert(key, "n2", "E2")
			d.EndUpdate()
			Expect(e1).ShouldNot(BeNil())
			Expect(e2).ShouldNot(BeNil())
		})
		It("reconfirm n1 only", func() {
			d.BeginUpdate(2)
			d.Reconfirm(e1)
			d.EndUpdate()
		})
		It("n1 should survive, n2 should be gone", func() {
			Expect(d.LookupByName("n1")).Should(Equal(e1))
			Expect(d.LookupByName("n2")).Should(BeNil())
			Expect(d.LookupByEncName("E2")).Should(BeNil())
		})
	})
})

var _ = Describe("TestIdempotentBeginUpdate", func() {
	var (
		d   *Dircache
		key *testKey
	)
	Context("repeat generation", func() {
		It("init should be succeed", func() {
			initTestConfig()
			d = NewDircache(NewPool())
			key = newTestKey()
			d.BeginUpdate(7)
			d.Insert(key, "foo", "ABC")
			d.EndUpdate()
		})
		It("re-entering the open pass should be a no-op", func() {
			d.BeginUpdate(8)
			d.Insert(key, "foo", "ABC2")
			d.BeginUpdate(8)
			d.BeginUpdate(0)
			d.EndUpdate()
			Expect(d.Generation()).Should(Equal(uint64(8)))
			Expect(d.LookupByName("foo").EncName()).Should(Equal("ABC2"))
		})
		It("a pass repeating the committed generation should expire nothing", func() {
			d.BeginUpdate(8)
			d.EndUpdate()
			Expect(d.Generation()).Should(Equal(uint64(8)))
			Expect(d.LookupByName("foo")).ShouldNot(BeNil())
		})
		It("a zero generation should never invalidate", func() {
			d.BeginUpdate(0)
			d.EndUpdate()
			Expect(d.Generation()).Should(Equal(uint64(8)))
			Expect(d.LookupByName("foo")).ShouldNot(BeNil())
		})
	})
})

var _ = Describe("TestAbortUpdate", func() {
	var (
		d   *Dircache
		e1  *Entry
		key *testKey
	)
	Context("abort a partially confirmed pass", func() {
		It("init should be succeed", func() {
			initTestConfig()
			d = NewDircache(NewPool())
			key = newTestKey()
			d.BeginUpdate(1)
			e1 = d.Insert(key, "n1", "E1")
			d.EndUpdate()
		})
		It("abort should demote, not free", func() {
			d.BeginUpdate(2)
			d.Reconfirm(e1)
			d.AbortUpdate()
			Expect(key.refs.Load()).Should(Equal(int64(2)))
			Expect(d.LookupByEncName("E1")).Should(Equal(e1))
		})
		It("plaintext lookup with stale entries pending should be refused", func() {
			Expect(func() { d.LookupByName("n1") }).Should(Panic())
		})
		It("the next committed pass should drop the unconfirmed entry", func() {
			d.BeginUpdate(3)
			d.EndUpdate()
			Expect(key.refs.Load()).Should(Equal(int64(1)))
			Expect(d.LookupByEncName("E1")).Should(BeNil())
		})
	})
})

var _ = Describe("TestEncLookupIgnoresFreshness", func() {
	var (
		d   *Dircache
		key *testKey
	)
	Context("lookups while a pass is open", func() {
		It("init should be succeed", func() {
			initTestConfig()
			d = NewDircache(NewPool())
			key = newTestKey()
		})
		It("encrypted lookup should hit before commit", func() {
			d.BeginUpdate(1)
			d.Insert(key, "foo", "ABC")
			e := d.LookupByEncName("ABC")
			Expect(e).ShouldNot(BeNil())
			Expect(e.Name()).Should(Equal("foo"))
		})
		It("plaintext lookup should be refused mid-pass", func() {
			Expect(func() { d.LookupByName("foo") }).Should(Panic())
			d.EndUpdate()
		})
	})
})

var _ = Describe("TestNameBoundary", func() {
	var (
		d   *Dircache
		key *testKey
	)
	Context("invalid name lengths", func() {
		It("init should be succeed", func() {
			initTestConfig()
			d = NewDircache(NewPool())
			key = newTestKey()
			d.BeginUpdate(1)
		})
		It("empty names should panic", func() {
			Expect(func() { d.Insert(key, "", "ABC") }).Should(Panic())
			Expect(func() { d.Insert(key, "foo", "") }).Should(Panic())
		})
		It("overlong names should panic", func() {
			long := strings.Repeat("x", MaxNameLen+1)
			Expect(func() { d.Insert(key, long, "ABC") }).Should(Panic())
			Expect(func() { d.Insert(key, "foo", long) }).Should(Panic())
		})
		It("names at the limit should be accepted", func() {
			max := strings.Repeat("x", MaxNameLen)
			Expect(d.Insert(key, max, "ABC")).ShouldNot(BeNil())
			d.EndUpdate()
			Expect(d.LookupByName(max)).ShouldNot(BeNil())
		})
	})
})

var _ = Describe("TestPurge", func() {
	var (
		pool *Pool
		d    *Dircache
		key  *testKey
	)
	Context("purge a populated cache", func() {
		It("init should be succeed", func() {
			initTestConfig()
			pool = NewPool()
			d = NewDircache(pool)
			key = newTestKey()
			d.BeginUpdate(1)
			d.Insert(key, "n1", "E1")
			d.Insert(key, "n2", "E2")
			d.EndUpdate()
			Expect(pool.Entries()).Should(Equal(int64(2)))
		})
		It("purge should drop every mapping", func() {
			d.Purge()
			Expect(d.LookupByName("n1")).Should(BeNil())
			Expect(d.LookupByName("n2")).Should(BeNil())
			Expect(d.LookupByEncName("E1")).Should(BeNil())
			Expect(d.LookupByEncName("E2")).Should(BeNil())
			Expect(pool.Entries()).Should(BeZero())
			Expect(key.refs.Load()).Should(Equal(int64(1)))
		})
		It("the cache should stay usable", func() {
			d.BeginUpdate(5)
			d.Insert(key, "n3", "E3")
			d.EndUpdate()
			Expect(d.LookupByName("n3")).ShouldNot(BeNil())
			d.Free()
		})
	})
})

var _ = Describe("TestInsertWhileIdle", func() {
	var (
		d   *Dircache
		key *testKey
	)
	Context("insert outside any pass", func() {
		It("init should be succeed", func() {
			initTestConfig()
			d = NewDircache(NewPool())
			key = newTestKey()
			d.BeginUpdate(1)
			d.Insert(key, "n1", "E1")
			d.EndUpdate()
		})
		It("the out-of-band entry should reach the stale set", func() {
			e := d.Insert(key, "n2", "E2")
			Expect(e).ShouldNot(BeNil())
			Expect(d.LookupByEncName("E2")).Should(Equal(e))
		})
		It("plaintext lookups should be barred until the next full pass", func() {
			Expect(func() { d.LookupByName("n2") }).Should(Panic())
			d.BeginUpdate(2)
			d.EndUpdate()
			Expect(d.LookupByName("n2")).Should(BeNil())
			Expect(d.LookupByEncName("E2")).Should(BeNil())
		})
	})
})
