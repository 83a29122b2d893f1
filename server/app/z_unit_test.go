// Copyright 2025 Zintix Labs
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

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type blocker struct {
	name  string
	stop  chan struct{}
	once  sync.Once
	order *[]string
	mu    *sync.Mutex
}

func newBlocker(name string, order *[]string, mu *sync.Mutex) *blocker {
	return &blocker{name: name, stop: make(chan struct{}), order: order, mu: mu}
}

func (b *blocker) Run() error {
	<-b.stop
	return nil
}

func (b *blocker) Shutdown(context.Context) error {
	b.once.Do(func() { close(b.stop) })
	b.mu.Lock()
	*b.order = append(*b.order, b.name)
	b.mu.Unlock()
	return nil
}

func TestRunContextShutsDownInReverse(t *testing.T) {
	var (
		order []string
		mu    sync.Mutex
	)
	a := NewWith(newBlocker("store", &order, &mu), newBlocker("runtime", &order, &mu), newBlocker("http", &order, &mu))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunContext(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("app did not stop")
	}
	want := []string{"http", "runtime", "store"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("shutdown order = %v want %v", order, want)
		}
	}
}

func TestRunReturnsComponentError(t *testing.T) {
	boom := errors.New("listen failed")
	shut := false
	a := NewWith(Func{
		RunFn:      func() error { return boom },
		ShutdownFn: func(context.Context) error { shut = true; return nil },
	})
	a.SetShutdownTimeout(time.Second)
	if err := a.Run(); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !shut {
		t.Fatalf("shutdown must run after a component fails")
	}
}

func TestEmptyApp(t *testing.T) {
	if err := New().Run(); err != nil {
		t.Fatal(err)
	}
}
