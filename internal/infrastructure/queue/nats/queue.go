package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/file-processor/internal/infrastructure/resilience"
)

const workerGroup = "file-workers"

const (
	drainTimeout      = 30 * time.Second
	drainPollInterval = 20 * time.Millisecond
)

// fileUploaded is the wire payload announcing a stored upload.
type fileUploaded struct {
	FileID      string    `json:"file_id"`
	PublishedAt time.Time `json:"published_at"`
}

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	ClientName         string
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url, subject string, options Options) (*Queue, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, errors.New("nats subject is empty")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := options.ClientName
	if name == "" {
		name = "file-processor"
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishFileUploaded(ctx context.Context, fileID string) error {
	payload, err := encodeFileUploaded(fileID, time.Now().UTC())
	if err != nil {
		return err
	}
	call := func(context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeFileUploaded blocks until ctx ends, then drains the subscription
// and waits for pending callbacks to finish before it returns.
func (q *Queue) SubscribeFileUploaded(ctx context.Context, handler func(context.Context, string) error) error {
	handlerCtx := context.WithoutCancel(ctx)
	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, func(msg *nats.Msg) {
		q.deliver(handlerCtx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	deadline := time.Now().Add(drainTimeout)
	for sub.IsValid() {
		if time.Now().After(deadline) {
			return errors.New("nats drain subscription: timed out")
		}
		time.Sleep(drainPollInterval)
	}
	return nil
}

// deliver hands one message to handler. Core NATS does not redeliver, so
// messages still buffered during a drain are processed, not dropped.
func (q *Queue) deliver(ctx context.Context, msg *nats.Msg, handler func(context.Context, string) error) {
	event, err := decodeFileUploaded(msg.Data)
	if err != nil {
		q.logger.Warn("nats_message_rejected", "subject", msg.Subject, "error", err)
		return
	}
	if err := handler(ctx, event.FileID); err != nil {
		q.logger.Error("worker_handler_failed", "file_id", event.FileID, "error", err)
	}
}

func encodeFileUploaded(fileID string, at time.Time) ([]byte, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, errors.New("file id is empty")
	}
	payload, err := json.Marshal(fileUploaded{FileID: fileID, PublishedAt: at})
	if err != nil {
		return nil, fmt.Errorf("encode file uploaded event: %w", err)
	}
	return payload, nil
}

func decodeFileUploaded(data []byte) (fileUploaded, error) {
	var event fileUploaded
	if err := json.Unmarshal(data, &event); err != nil {
		return fileUploaded{}, fmt.Errorf("decode file uploaded event: %w", err)
	}
	if strings.TrimSpace(event.FileID) == "" {
		return fileUploaded{}, errors.New("file uploaded event without file_id")
	}
	return event, nil
}
