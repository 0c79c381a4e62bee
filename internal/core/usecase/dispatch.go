package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/file-processor/internal/core/ports"
)

// QueueDispatcher hands uploads to a worker process over the message queue
// instead of processing them in this process.
type QueueDispatcher struct {
	queue ports.MessageQueue
}

func NewQueueDispatcher(queue ports.MessageQueue) *QueueDispatcher {
	return &QueueDispatcher{queue: queue}
}

func (d *QueueDispatcher) Enqueue(ctx context.Context, fileID string) error {
	if err := d.queue.PublishFileUploaded(ctx, fileID); err != nil {
		return fmt.Errorf("publish file uploaded event: %w", err)
	}
	return nil
}
