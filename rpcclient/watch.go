package rpcclient

import (
	"context"
	"time"

	. "github.com/novaprotocol/nova-go"
)

// TxStatusEvent is broadcast by a Watcher whenever the watched
// transaction's reported status changes.
type TxStatusEvent struct {
	TxID        string
	Status      string
	BlockHeight uint64
}

// Watcher polls a transaction's receipt and fans status changes out to
// subscribers. It stops on its own once the transaction leaves the
// pending state, or when the context is cancelled, or on Close.
type Watcher struct {
	client *Client
	queue  PubSubQueue[TxStatusEvent]
	cancel context.CancelFunc
	done   chan struct{}
}

// WatchTransaction starts a watcher for the given transaction id. The
// context bounds the whole watch: cancelling it stops polling and no
// further events are delivered.
func (c *Client) WatchTransaction(ctx context.Context, txID string) (w *Watcher) {
	wctx, cancel := context.WithCancel(ctx)
	w = &Watcher{
		client: c,
		queue:  NewQueue[TxStatusEvent](),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.run(wctx, txID)
	return
}

// On registers a callback for status changes. The returned cleanup
// detaches it.
func (w *Watcher) On(callback func(event TxStatusEvent)) (cleanup func()) {
	return w.queue.On(callback)
}

// Done is closed once the watcher has stopped polling, whether because
// the transaction reached a terminal status or the watch was torn down.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Close stops polling and tears down the subscriber queue. Events already
// queued are still delivered first.
func (w *Watcher) Close() {
	w.cancel()
	<-w.done
	_ = w.queue.Wait(time.Second)
	w.queue.Close()
}

func (w *Watcher) run(ctx context.Context, txID string) {
	defer close(w.done)

	last := ""
	for {
		rec, err := w.client.GetTransactionReceipt(ctx, txID)
		if err == nil && rec.Status != "" && rec.Status != last {
			last = rec.Status
			w.queue.Broadcast(TxStatusEvent{
				TxID:        txID,
				Status:      rec.Status,
				BlockHeight: rec.BlockHeight,
			})
			if rec.Status != StatusPending {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.client.cfg.PollInterval):
		}
	}
}
