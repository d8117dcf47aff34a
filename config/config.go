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

package config

// Config is read once at startup and stays fixed for the lifetime of the
// process or the owning context.
type Config struct {
	// Enable turns the whole cache on or off. When disabled, pool and
	// cache constructors hand out nil objects whose operations are no-ops.
	Enable bool `json:"enable"`

	// Buckets is the requested hash table size per pool table. The value
	// is clamped to a minimum and rounded up to a power of two; zero picks
	// the built-in default.
	Buckets uint64 `json:"buckets,omitempty"`

	// GlobalPool shares one process-wide pool between all directory
	// caches instead of one pool per owning context.
	GlobalPool bool `json:"global_pool"`

	Debug bool `json:"debug,omitempty"`
}
