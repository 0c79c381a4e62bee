package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishFileUploaded(_ context.Context, fileID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, fileID)
	return nil
}

func (f *queueFake) SubscribeFileUploaded(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestQueueDispatcherPublishes(t *testing.T) {
	queue := &queueFake{}
	if err := NewQueueDispatcher(queue).Enqueue(context.Background(), "f1"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if len(queue.published) != 1 || queue.published[0] != "f1" {
		t.Fatalf("unexpected published ids: %v", queue.published)
	}

	queue.err = errors.New("broker down")
	err := NewQueueDispatcher(queue).Enqueue(context.Background(), "f2")
	if err == nil || !strings.Contains(err.Error(), "publish file uploaded event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}
