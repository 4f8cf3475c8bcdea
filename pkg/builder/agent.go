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

package builder

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2abridge/pkg/agentcard"
	"github.com/kadirpekel/a2abridge/pkg/auth"
	"github.com/kadirpekel/a2abridge/pkg/config/provider"
	"github.com/kadirpekel/a2abridge/pkg/hook"
	"github.com/kadirpekel/a2abridge/pkg/httpclient"
	"github.com/kadirpekel/a2abridge/pkg/observability"
	"github.com/kadirpekel/a2abridge/pkg/remoteagent"
	"github.com/kadirpekel/a2abridge/pkg/transport"
)

// RemoteAgentBuilder provides a fluent API for building remote agents.
type RemoteAgentBuilder struct {
	name        string
	description string

	producer   agentcard.Producer
	cardURL    string
	cardTTL    time.Duration
	cardHeader map[string]string
	retries    int
	closers    []io.Closer

	headers      map[string]string
	tokens       *auth.TokenSource
	tls          *httpclient.TLSConfig
	grpc         bool
	pollInterval time.Duration
	factory      transport.Factory

	timeout    time.Duration
	bindTaskID bool
	hooks      *hook.Registry
	recorder   observability.Recorder

	errs []error
}

// NewRemoteAgent creates a builder for the agent known locally as name.
func NewRemoteAgent(name string) *RemoteAgentBuilder {
	return &RemoteAgentBuilder{
		name:       name,
		headers:    make(map[string]string),
		cardHeader: make(map[string]string),
		retries:    httpclient.DefaultMaxRetries,
	}
}

func (b *RemoteAgentBuilder) WithDescription(desc string) *RemoteAgentBuilder {
	b.description = desc
	return b
}

// WithCard uses a fixed card.
func (b *RemoteAgentBuilder) WithCard(card *a2a.AgentCard) *RemoteAgentBuilder {
	b.producer = agentcard.NewFixed(card)
	return b
}

// WithEndpoint uses a fixed card pointing at the JSON-RPC endpoint url.
func (b *RemoteAgentBuilder) WithEndpoint(url string, streaming bool) *RemoteAgentBuilder {
	return b.WithCard(&a2a.AgentCard{
		Name:               b.name,
		Description:        b.description,
		URL:                url,
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		Capabilities:       a2a.AgentCapabilities{Streaming: streaming},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
	})
}

// FromURL fetches the card from the agent's well-known path under baseURL.
func (b *RemoteAgentBuilder) FromURL(baseURL string) *RemoteAgentBuilder {
	b.producer = nil
	b.cardURL = baseURL
	return b
}

// WithCardCache keeps a fetched card for ttl.
func (b *RemoteAgentBuilder) WithCardCache(ttl time.Duration) *RemoteAgentBuilder {
	b.cardTTL = ttl
	return b
}

// WithCardHeader adds a header sent when fetching the card.
func (b *RemoteAgentBuilder) WithCardHeader(key, value string) *RemoteAgentBuilder {
	b.cardHeader[key] = value
	return b
}

// WithCardRetries sets the retry budget for fetching the card.
func (b *RemoteAgentBuilder) WithCardRetries(n int) *RemoteAgentBuilder {
	b.retries = n
	return b
}

// FromFile reads the card from a JSON file and reloads it on change.
func (b *RemoteAgentBuilder) FromFile(path string) *RemoteAgentBuilder {
	p, err := provider.NewFileProvider(path)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	w := agentcard.NewWatched(p)
	b.closers = append(b.closers, w)
	return b.WithCardProducer(w)
}

// FromRegistry reads the card from a coordination service.
func (b *RemoteAgentBuilder) FromRegistry(typ provider.Type, endpoints []string, prefix, version string) *RemoteAgentBuilder {
	r := agentcard.NewServiceRegistry(typ, endpoints, prefix, version)
	b.closers = append(b.closers, r)
	return b.WithCardProducer(r)
}

// WithCardProducer uses a custom producer.
func (b *RemoteAgentBuilder) WithCardProducer(p agentcard.Producer) *RemoteAgentBuilder {
	b.producer = p
	b.cardURL = ""
	return b
}

// WithHeader adds a header sent on every request to the agent.
func (b *RemoteAgentBuilder) WithHeader(key, value string) *RemoteAgentBuilder {
	b.headers[key] = value
	return b
}

// WithHeaders adds headers sent on every request to the agent.
func (b *RemoteAgentBuilder) WithHeaders(headers map[string]string) *RemoteAgentBuilder {
	for k, v := range headers {
		b.headers[k] = v
	}
	return b
}

// WithJWT signs a bearer token for every request.
func (b *RemoteAgentBuilder) WithJWT(cfg auth.TokenSourceConfig) *RemoteAgentBuilder {
	tokens, err := auth.NewTokenSource(cfg)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.tokens = tokens
	return b
}

func (b *RemoteAgentBuilder) WithTLS(cfg *httpclient.TLSConfig) *RemoteAgentBuilder {
	b.tls = cfg
	return b
}

// EnableGRPC registers the gRPC transport for cards that offer it.
func (b *RemoteAgentBuilder) EnableGRPC(enable bool) *RemoteAgentBuilder {
	b.grpc = enable
	return b
}

func (b *RemoteAgentBuilder) WithPollInterval(d time.Duration) *RemoteAgentBuilder {
	b.pollInterval = d
	return b
}

// WithClientFactory replaces the A2A transport.
func (b *RemoteAgentBuilder) WithClientFactory(f transport.Factory) *RemoteAgentBuilder {
	b.factory = f
	return b
}

func (b *RemoteAgentBuilder) WithTimeout(d time.Duration) *RemoteAgentBuilder {
	b.timeout = d
	return b
}

func (b *RemoteAgentBuilder) BindTaskID(bind bool) *RemoteAgentBuilder {
	b.bindTaskID = bind
	return b
}

func (b *RemoteAgentBuilder) WithHooks(hooks *hook.Registry) *RemoteAgentBuilder {
	b.hooks = hooks
	return b
}

func (b *RemoteAgentBuilder) WithRecorder(r observability.Recorder) *RemoteAgentBuilder {
	b.recorder = r
	return b
}

// Build creates the agent. The returned closer releases card watchers and
// must be closed when the agent is discarded.
func (b *RemoteAgentBuilder) Build() (*remoteagent.Agent, io.Closer, error) {
	closer := multiCloser(b.closers)
	fail := func(err error) (*remoteagent.Agent, io.Closer, error) {
		_ = closer.Close()
		return nil, nil, fmt.Errorf("remote agent %s: %w", b.name, err)
	}

	if err := errors.Join(b.errs...); err != nil {
		return fail(err)
	}

	base, err := httpclient.New(httpclient.Config{TLS: b.tls, MaxRetries: b.retries})
	if err != nil {
		return fail(err)
	}

	producer := b.producer
	if producer == nil && b.cardURL != "" {
		cardClient := &http.Client{Transport: &auth.RoundTripper{Base: base.Transport, Headers: b.cardHeader}}
		producer = agentcard.NewWellKnown(b.cardURL, cardClient, b.cardTTL)
	}
	if producer == nil {
		return fail(errors.New("no agent card source configured"))
	}

	factory := b.factory
	if factory == nil {
		factory = transport.NewA2AFactory(transport.Options{
			Agent:        b.name,
			Headers:      b.headers,
			Tokens:       b.tokens,
			HTTPClient:   base,
			EnableGRPC:   b.grpc,
			PollInterval: b.pollInterval,
		})
	}

	agent, err := remoteagent.New(remoteagent.Config{
		Name:          b.name,
		Description:   b.description,
		CardProducer:  producer,
		ClientFactory: factory,
		Hooks:         b.hooks,
		Timeout:       b.timeout,
		BindTaskID:    b.bindTaskID,
		Recorder:      b.recorder,
	})
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return agent, closer, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
