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

// Package transport connects the remote agent core to an A2A endpoint.
//
// A Client delivers the remote event stream of one call as a sequence of
// event.ClientEvent values. Clients are created per call by a Factory and
// closed by their owner when the call ends.
package transport

import (
	"context"
	"errors"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2abridge/pkg/remoteagent/event"
)

// ErrStreamClosed is reported when the remote stream ends without error.
// Callers that already hold a result ignore it.
var ErrStreamClosed = errors.New("remote stream closed")

// EventHandler receives events in stream order on a single goroutine.
type EventHandler func(ctx context.Context, ev event.ClientEvent)

// ErrorHandler receives the error that ended the stream. It is called at
// most once per Send and never concurrently with the EventHandler.
type ErrorHandler func(ctx context.Context, err error)

// Client is a connection to one remote agent for the duration of a call.
type Client interface {
	// Send submits req and returns immediately. Events and the terminating
	// error are delivered to the handlers.
	Send(ctx context.Context, req *a2a.Message, onEvent EventHandler, onError ErrorHandler)

	// Cancel asks the remote to cancel the task.
	Cancel(ctx context.Context, taskID string) error

	// Close stops delivery and releases the connection.
	Close() error
}

// Factory builds a Client for a resolved agent card.
type Factory interface {
	New(ctx context.Context, card *a2a.AgentCard) (Client, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, card *a2a.AgentCard) (Client, error)

func (f FactoryFunc) New(ctx context.Context, card *a2a.AgentCard) (Client, error) {
	return f(ctx, card)
}
