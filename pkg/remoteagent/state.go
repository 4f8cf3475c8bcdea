// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package remoteagent

// State is the lifecycle phase of an agent's call.
type State int

const (
	// StateIdle means no call has run yet.
	StateIdle State = iota
	// StateClientBuilt means the card was resolved and a client created.
	StateClientBuilt
	// StateSending means the request is out and the call waits for a reply.
	StateSending
	// StateCompleted means the last call produced a reply.
	StateCompleted
	// StateFailed means the last call ended with an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClientBuilt:
		return "client_built"
	case StateSending:
		return "sending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether a call is in flight.
func (s State) Active() bool {
	return s == StateClientBuilt || s == StateSending
}
