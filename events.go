package streamledger

import (
	"context"
	"time"

	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/id"
)

// emit queues a domain event for the background flusher. Emission is
// fire-and-forget: a full buffer drops the event with a log line rather
// than failing the operation that produced it.
func (e *Engine) emit(kind event.Kind, streamID *uint64, payload map[string]string) {
	evt := &event.Event{
		ID:       id.NewEventID(),
		StreamID: streamID,
		Kind:     kind,
		Payload:  payload,
		At:       e.nowFn().UTC(),
	}

	select {
	case e.eventBuffer <- evt:
	default:
		e.logger.Warn("event buffer full, dropping event",
			"kind", kind,
			"event_id", evt.ID.String(),
		)
	}
}

// eventFlushWorker batches buffered events into the store.
func (e *Engine) eventFlushWorker(ctx context.Context) {
	defer e.wg.Done()

	batch := make([]*event.Event, 0, e.eventBatchSize)
	ticker := time.NewTicker(e.eventFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			// Drain whatever is still buffered, then final flush.
			for {
				select {
				case evt := <-e.eventBuffer:
					batch = append(batch, evt)
					continue
				default:
				}
				break
			}
			if len(batch) > 0 {
				e.flushEventBatch(ctx, batch)
			}
			return

		case evt := <-e.eventBuffer:
			batch = append(batch, evt)
			if len(batch) >= e.eventBatchSize {
				e.flushEventBatch(ctx, batch)
				batch = make([]*event.Event, 0, e.eventBatchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				e.flushEventBatch(ctx, batch)
				batch = make([]*event.Event, 0, e.eventBatchSize)
			}
		}
	}
}

func (e *Engine) flushEventBatch(ctx context.Context, batch []*event.Event) {
	start := time.Now()

	if err := e.store.AppendEvents(ctx, batch); err != nil {
		e.logger.Error("failed to flush event batch",
			"error", err,
			"batch_size", len(batch),
		)
		return
	}

	elapsed := time.Since(start)
	e.plugins.EmitEventsFlushed(ctx, len(batch), elapsed)

	e.logger.Debug("flushed event batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// StreamEvents returns the persisted event log for a stream. Buffered
// events not yet flushed are not visible.
func (e *Engine) StreamEvents(ctx context.Context, streamID uint64, opts event.QueryOpts) ([]*event.Event, error) {
	return e.store.ListEvents(ctx, streamID, opts)
}
