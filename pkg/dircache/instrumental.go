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
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var totalEntries atomic.Int64

var (
	bucketGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dircache_buckets",
			Help: "Number of hash table buckets per pool table.",
		},
	)
	liveEntryGauge = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "dircache_live_entries",
			Help: "This current count of cached name mappings.",
		},
		func() float64 {
			return float64(totalEntries.Load())
		},
	)
	lookupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircache_lookups",
			Help: "This count of name lookups by table and result.",
		},
		[]string{"table", "result"},
	)
	expireCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dircache_expires",
			Help: "This count of bulk invalidations of a directory cache.",
		},
	)
	inconsistentCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dircache_inconsistent",
			Help: "This count of detected generation inconsistencies.",
		},
	)
	purgeCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dircache_purges",
			Help: "This count of directory cache purges.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		bucketGauge,
		liveEntryGauge,
		lookupCounter,
		expireCounter,
		inconsistentCounter,
		purgeCounter,
	)
}

func countLookup(table string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	lookupCounter.WithLabelValues(table, result).Inc()
}
