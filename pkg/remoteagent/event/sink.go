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

package event

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/kadirpekel/a2abridge/pkg/message"
)

// ErrAlreadyFulfilled is returned when a sink receives a second result.
var ErrAlreadyFulfilled = errors.New("result already fulfilled")

// Sink is a write-once holder for the outcome of a call.
//
// The first Success or Error wins; later attempts return ErrAlreadyFulfilled
// and leave the stored outcome untouched.
type Sink struct {
	fulfilled atomic.Bool
	done      chan struct{}

	reply *message.Msg
	err   error
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{done: make(chan struct{})}
}

// Success stores the reply.
func (s *Sink) Success(reply *message.Msg) error {
	if !s.fulfilled.CompareAndSwap(false, true) {
		return ErrAlreadyFulfilled
	}
	s.reply = reply
	close(s.done)
	return nil
}

// Error stores a failure.
func (s *Sink) Error(err error) error {
	if !s.fulfilled.CompareAndSwap(false, true) {
		return ErrAlreadyFulfilled
	}
	s.err = err
	close(s.done)
	return nil
}

// Fulfilled reports whether an outcome has been stored.
func (s *Sink) Fulfilled() bool {
	return s.fulfilled.Load()
}

// Done is closed once an outcome has been stored.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the sink is fulfilled or ctx ends.
func (s *Sink) Wait(ctx context.Context) (*message.Msg, error) {
	select {
	case <-s.done:
		return s.reply, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
