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

import (
	"os"
	"strconv"
)

const (
	envBuckets = "DIRCACHE_BUCKETS"
	envGlobal  = "DIRCACHE_GLOBAL"
	envEnable  = "DIRCACHE_ENABLE"
)

func Default() Config {
	return Config{
		Enable:     true,
		GlobalPool: true,
	}
}

// FromEnv builds the default config and applies the DIRCACHE_* environment
// tunables on top of it.
func FromEnv() Config {
	cfg := Default()

	if raw := os.Getenv(envBuckets); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cfg.Buckets = v
		}
	}
	if raw := os.Getenv(envGlobal); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.GlobalPool = v
		}
	}
	if raw := os.Getenv(envEnable); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Enable = v
		}
	}
	return cfg
}
