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

import (
	"fmt"
	"os"

	"github.com/AlexanderSchuetz97/Ivshmem4j/status"
)

// EventHandler receives PollEvent notifications from a Connection's
// background poller goroutine, started by Run.
type EventHandler func(PollEvent)

// Run starts a background goroutine that calls Poll in a loop, invoking
// handler for every successful event and logging terminal errors to
// stderr, mirroring connstate's openpoll/wait goroutine (see DESIGN.md): a
// single dedicated goroutine owns the blocking wait, and its own errors are
// reported rather than propagated since nothing called it synchronously.
// A PollServerTimeout is not terminal; it is swallowed and the loop
// continues, since the timeout is the protocol's normal idle heartbeat, not
// a failure. Run returns a stop function that signals the loop to exit; the
// loop checks for that signal before each Poll, so it ends once the Poll in
// progress returns. stop does not close the connection.
func (c *Connection) Run(handler EventHandler) (stop func()) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}

			ev, st := c.Poll()
			if st.IsOK() {
				if handler != nil {
					handler(ev)
				}
				continue
			}
			if st.Is(status.PollServerTimeout) {
				continue
			}

			fmt.Fprintf(os.Stderr, "ivshmem: poller exiting, err: %v\n", st)
			return
		}
	}()

	return func() { close(done) }
}
