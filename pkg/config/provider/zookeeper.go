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

package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

// ZookeeperProvider reads a document from a znode.
type ZookeeperProvider struct {
	conn      *zk.Conn
	path      string
	endpoints []string
}

// NewZookeeperProvider connects to the ensemble.
func NewZookeeperProvider(endpoints []string, znode string, timeout time.Duration) (*ZookeeperProvider, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("zookeeper endpoints are required")
	}
	if znode == "" {
		return nil, fmt.Errorf("zookeeper path is required")
	}
	if !strings.HasPrefix(znode, "/") {
		znode = "/" + znode
	}

	conn, _, err := zk.Connect(endpoints, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	return &ZookeeperProvider{conn: conn, path: znode, endpoints: endpoints}, nil
}

// Type returns TypeZookeeper.
func (p *ZookeeperProvider) Type() Type {
	return TypeZookeeper
}

// Load reads the znode data.
func (p *ZookeeperProvider) Load(ctx context.Context) ([]byte, error) {
	data, _, err := p.conn.Get(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zookeeper path %s: %w", p.path, err)
	}
	return data, nil
}

// Watch re-arms a data watch after every notification.
func (p *ZookeeperProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			_, _, events, err := p.conn.GetW(p.path)
			if err != nil {
				if errors.Is(err, zk.ErrClosing) || errors.Is(err, zk.ErrConnectionClosed) {
					return
				}
				slog.Warn("Failed to watch zookeeper path", "path", p.path, "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				switch ev.Type {
				case zk.EventNodeDataChanged, zk.EventNodeCreated:
					notify(ch)
				case zk.EventNodeDeleted:
					slog.Warn("Zookeeper node was deleted", "path", p.path)
				case zk.EventNotWatching:
					slog.Warn("Zookeeper watch lost", "path", p.path)
					return
				}
			}
		}
	}()

	return ch, nil
}

// Store sets the node data, creating the node and its parents when missing.
func (p *ZookeeperProvider) Store(ctx context.Context, data []byte) error {
	_, err := p.conn.Set(p.path, data, -1)
	if errors.Is(err, zk.ErrNoNode) {
		if err = p.createParents(); err == nil {
			_, err = p.conn.Create(p.path, data, 0, zk.WorldACL(zk.PermAll))
		}
		// Lost a race with another writer.
		if errors.Is(err, zk.ErrNodeExists) {
			_, err = p.conn.Set(p.path, data, -1)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write zookeeper path %s: %w", p.path, err)
	}
	return nil
}

func (p *ZookeeperProvider) createParents() error {
	var node string
	for _, part := range strings.Split(path.Dir(p.path), "/") {
		if part == "" {
			continue
		}
		node += "/" + part
		_, err := p.conn.Create(node, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return fmt.Errorf("failed to create zookeeper node %s: %w", node, err)
		}
	}
	return nil
}

// Close closes the session.
func (p *ZookeeperProvider) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

var _ Writer = (*ZookeeperProvider)(nil)
