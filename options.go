/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ivshmem

import "time"

// DefaultReceiveTimeout is the ivshmem protocol's socket receive timeout
// and doorbell multiplex-wait timeout (spec §6, §4.I): 2 seconds.
const DefaultReceiveTimeout = 2 * time.Second

// MaxSocketPathLen is the UNIX domain socket path length limit (struct
// sockaddr_un's sun_path, spec §6).
const MaxSocketPathLen = 108

// Options configures Connect. The zero value is not valid; use
// DefaultOptions to get sane defaults and override fields from there.
type Options struct {
	// SocketPath is the ivshmem server's UNIX domain socket path.
	SocketPath string
	// ReceiveTimeout overrides DefaultReceiveTimeout, for tests that want
	// a faster handshake-end-of-table signal than production's 2s.
	ReceiveTimeout time.Duration
}

// DefaultOptions returns an Options with SocketPath set to socketPath and
// ReceiveTimeout set to DefaultReceiveTimeout.
func DefaultOptions(socketPath string) Options {
	return Options{SocketPath: socketPath, ReceiveTimeout: DefaultReceiveTimeout}
}

func (o Options) timeout() time.Duration {
	if o.ReceiveTimeout <= 0 {
		return DefaultReceiveTimeout
	}
	return o.ReceiveTimeout
}
