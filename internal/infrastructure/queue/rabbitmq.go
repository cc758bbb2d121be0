package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hszk-dev/tripreel/internal/domain/repository"
	"github.com/hszk-dev/tripreel/internal/infrastructure/metrics"
)

// DefaultQueueName is the durable queue carrying export tasks.
const DefaultQueueName = "export_tasks"

// ClientConfig holds configuration for the RabbitMQ client.
type ClientConfig struct {
	URL        string // AMQP connection URL
	QueueName  string
	Exchange   string // empty means the default exchange
	RoutingKey string
	Prefetch   int // consumer QoS
}

// DefaultClientConfig returns a ClientConfig publishing to the default
// exchange. Reel planning is light, so a worker takes a few tasks at once.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:        url,
		QueueName:  DefaultQueueName,
		RoutingKey: DefaultQueueName,
		Prefetch:   4,
	}
}

type amqpConnection interface {
	Channel() (*amqp.Channel, error)
	Close() error
	IsClosed() bool
}

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// Client implements repository.MessageQueue using RabbitMQ.
type Client struct {
	conn    amqpConnection
	channel amqpChannel
	config  ClientConfig
}

var _ repository.MessageQueue = (*Client)(nil)

// NewClient dials the broker and declares the export queue.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	return newClientWithConnection(ctx, conn, cfg)
}

func newClientWithConnection(_ context.Context, conn amqpConnection, cfg ClientConfig) (*Client, error) {
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c := &Client{conn: conn, channel: ch, config: cfg}
	if err := c.setup(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.Qos(c.config.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	// durable, not auto-deleted, not exclusive
	if _, err := c.channel.QueueDeclare(c.config.QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

// PublishExportTask sends a persistent export task message.
func (c *Client) PublishExportTask(ctx context.Context, task repository.ExportTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.PublishWithContext(ctx, c.config.Exchange, c.config.RoutingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    task.ExportID.String(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}

	metrics.ExportTasksTotal.WithLabelValues(metrics.TaskPublished).Inc()
	return nil
}

// ConsumeExportTasks delivers tasks to handler until ctx is done or the
// broker closes the delivery channel.
//
// A malformed body is rejected without requeue. A handler error republishes
// the task with RetryCount incremented and acks the original, so the count
// survives redelivery; requeueing the original would reset nothing and loop.
func (c *Client) ConsumeExportTasks(ctx context.Context, handler func(task repository.ExportTask) error) error {
	msgs, err := c.channel.Consume(c.config.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed unexpectedly")
			}
			c.handleDelivery(ctx, msg, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, msg amqp.Delivery, handler func(task repository.ExportTask) error) {
	var task repository.ExportTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		slog.Warn("rejecting malformed export task", "error", err)
		metrics.ExportTasksTotal.WithLabelValues(metrics.TaskRejected).Inc()
		_ = msg.Nack(false, false)
		return
	}

	if err := handler(task); err != nil {
		task.RetryCount++
		if pubErr := c.PublishExportTask(ctx, task); pubErr != nil {
			// Drop rather than loop; the job stays visible in its current state.
			slog.Error("failed to republish export task",
				"export_id", task.ExportID,
				"retry_count", task.RetryCount,
				"error", pubErr,
			)
			metrics.ExportTasksTotal.WithLabelValues(metrics.TaskRejected).Inc()
			_ = msg.Nack(false, false)
			return
		}
		slog.Info("export task scheduled for retry",
			"export_id", task.ExportID,
			"retry_count", task.RetryCount,
			"error", err,
		)
		metrics.ExportTasksTotal.WithLabelValues(metrics.TaskRetried).Inc()
		_ = msg.Ack(false)
		return
	}

	metrics.ExportTasksTotal.WithLabelValues(metrics.TaskAcked).Inc()
	_ = msg.Ack(false)
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	var errs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}

	return errors.Join(errs...)
}
