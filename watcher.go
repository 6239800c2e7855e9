package notify

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

type environmentTarget interface {
	networkChanged(online bool) error
	foregroundChanged(visible bool) error
}

// EnvironmentWatcher forwards reachability and foreground changes to a
// client. Repeated values are dropped, only edges reach the client.
type EnvironmentWatcher struct {
	target environmentTarget

	mu         sync.Mutex
	online     *bool
	foreground *bool
}

// NewEnvironmentWatcher creates a watcher driving c. Signals only move a
// client that was started with Connect and not stopped with Disconnect,
// before the first Connect they are recorded but never open a stream.
func NewEnvironmentWatcher(c *Client) *EnvironmentWatcher {
	return newEnvironmentWatcher(c)
}

func newEnvironmentWatcher(t environmentTarget) *EnvironmentWatcher {
	return &EnvironmentWatcher{target: t}
}

// SetOnline reports the device reachability. Going offline pauses the
// stream without counting as a Disconnect, coming back online reconnects
// right away instead of waiting for the pending backoff.
func (w *EnvironmentWatcher) SetOnline(online bool) error {
	if !w.changed(&w.online, online) {
		return nil
	}
	return w.target.networkChanged(online)
}

// SetForeground reports whether the application is visible. Becoming
// visible reconnects a dropped stream immediately.
func (w *EnvironmentWatcher) SetForeground(visible bool) error {
	if !w.changed(&w.foreground, visible) {
		return nil
	}
	return w.target.foregroundChanged(visible)
}

func (w *EnvironmentWatcher) changed(last **bool, v bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if *last != nil && **last == v {
		return false
	}
	*last = &v
	return true
}

// Run consumes both signal channels until ctx is done or the client is
// closed. A nil channel is skipped.
func (w *EnvironmentWatcher) Run(ctx context.Context, reachability, foreground <-chan bool) error {
	g, ctx := errgroup.WithContext(ctx)
	if reachability != nil {
		g.Go(func() error {
			return w.consume(ctx, reachability, w.SetOnline)
		})
	}
	if foreground != nil {
		g.Go(func() error {
			return w.consume(ctx, foreground, w.SetForeground)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *EnvironmentWatcher) consume(ctx context.Context, signals <-chan bool, apply func(bool) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-signals:
			if !ok {
				return nil
			}
			if err := apply(v); err != nil {
				return err
			}
		}
	}
}
