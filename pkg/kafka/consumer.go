package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"FinScope/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ErrPermanent marks a handler error that must not be retried.
var ErrPermanent = errors.New("permanent failure")

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	WorkerCount    int
	BufferSize     int
	RetryMax       int
	BackoffMin     time.Duration
	BackoffMax     time.Duration
	DLQTopic       string
	MinBytes       int
	MaxBytes       int
	HandlerTimeout time.Duration
}

// WithConsumerBrokers sets Kafka brokers.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = brokers
	}
}

// WithConsumerGroupID sets consumer group ID.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.GroupID = groupID
	}
}

// WithConsumerWorkers sets number of worker goroutines.
func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

// WithConsumerRetry configures retry attempts and backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ sets a Kafka topic name for DLQ.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.DLQTopic = topic
	}
}

// WithConsumerFetch sets fetch min/max bytes.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithConsumerBufferSize sets the internal channel buffer size.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// WithHandlerTimeout bounds a single handler attempt.
func WithHandlerTimeout(d time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.HandlerTimeout = d
	}
}

// Consumer reads registered topics and hands messages to a worker pool.
// Messages of one partition are handled one at a time.
type Consumer struct {
	cfg      *ConsumerConfig
	l        *logger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	msgChan  chan *message
	dlq      messageWriter
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	lockMu    sync.Mutex
	partLocks map[string]map[int]*sync.Mutex
}

type message struct {
	topic string
	km    kafka.Message
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(l *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:        "finscope",
		WorkerCount:    1,
		BufferSize:     10,
		RetryMax:       3,
		BackoffMin:     50 * time.Millisecond,
		BackoffMax:     2 * time.Second,
		MinBytes:       1,
		MaxBytes:       10e6,
		HandlerTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := newConsumer(cfg, l)
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

func newConsumer(cfg *ConsumerConfig, l *logger.Logger) *Consumer {
	if l == nil {
		l = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	initConsumerMetricsOnce()
	return &Consumer{
		cfg:       cfg,
		l:         l,
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		msgChan:   make(chan *message, cfg.BufferSize),
		ctx:       ctx,
		cancel:    cancel,
		partLocks: make(map[string]map[int]*sync.Mutex),
	}
}

// RegisterHandler registers a message handler for a specific topic.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.l.Warn("kafka handler already registered", logger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start starts the readers and the worker pool.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	var readers sync.WaitGroup
	for topic, reader := range c.readers {
		readers.Add(1)
		go func(topic string, reader *kafka.Reader) {
			defer readers.Done()
			c.consume(topic, reader)
		}(topic, reader)
	}
	// workers exit once every reader has stopped feeding them
	go func() {
		readers.Wait()
		close(c.msgChan)
	}()

	c.l.Info("kafka consumer started",
		logger.Int("workers", c.cfg.WorkerCount),
		logger.Int("topics", len(c.readers)),
		logger.String("group_id", c.cfg.GroupID),
	)
	return nil
}

// Stop stops the consumer and waits for in-flight messages.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		c.cancel()
		stopErr = c.waitForWg(ctx)

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.l.Error("kafka reader close failed", logger.String("topic", topic), logger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.l.Error("kafka dlq writer close failed", logger.Error(err))
			}
		}
		c.l.Info("kafka consumer stopped")
	})
	return stopErr
}

func (c *Consumer) waitForWg(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (c *Consumer) consume(topic string, reader *kafka.Reader) {
	for {
		km, err := reader.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.l.Error("kafka fetch failed", logger.String("topic", topic), logger.Error(err))
			select {
			case <-time.After(time.Second):
				continue
			case <-c.ctx.Done():
				return
			}
		}

		select {
		case c.msgChan <- &message{topic: topic, km: km}:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()
	for msg := range c.msgChan {
		if c.ctx.Err() != nil {
			continue
		}
		start := time.Now()
		err := c.process(msg)
		c.commit(msg, err)
		consumerHandleLatency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
	}
}

// process runs the handler with retries; on final failure the message goes to the DLQ.
func (c *Consumer) process(msg *message) (err error) {
	handler, ok := c.handlers[msg.topic]
	if !ok {
		return fmt.Errorf("%w: no handler for topic %s", ErrPermanent, msg.topic)
	}

	pl := c.partitionLock(msg.topic, msg.km.Partition)
	pl.Lock()
	defer pl.Unlock()

	attempts := 0
	for {
		attempts++
		err = c.handleOnce(handler, msg.km.Value)
		if err == nil || errors.Is(err, ErrPermanent) || attempts > c.cfg.RetryMax {
			break
		}
		c.l.Warn("kafka handler failed, retrying",
			logger.String("topic", msg.topic),
			logger.Int("attempt", attempts),
			logger.Error(err),
		)
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
	if err != nil && c.interrupted(err) {
		// stopped mid-message; the offset stays uncommitted for redelivery
		return err
	}
	consumerMessagesTotal.WithLabelValues(msg.topic, resultLabel(err)).Inc()
	if err == nil {
		return nil
	}

	c.l.Error("kafka handler gave up",
		logger.String("topic", msg.topic),
		logger.Int("attempts", attempts),
		logger.Error(err),
	)
	if c.dlq != nil && c.cfg.DLQTopic != "" {
		if dlqErr := c.dlq.WriteMessages(context.Background(), kafka.Message{
			Topic: c.cfg.DLQTopic,
			Key:   msg.km.Key,
			Value: msg.km.Value,
			Time:  time.Now(),
			Headers: []kafka.Header{
				{Key: "source_topic", Value: []byte(msg.topic)},
				{Key: "error", Value: []byte(err.Error())},
			},
		}); dlqErr != nil {
			c.l.Error("kafka dlq write failed", logger.String("dlq_topic", c.cfg.DLQTopic), logger.Error(dlqErr))
		}
	}
	return err
}

func (c *Consumer) handleOnce(handler MessageHandler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panic: %v", ErrPermanent, r)
		}
	}()
	ctx := c.ctx
	if c.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HandlerTimeout)
		defer cancel()
	}
	return handler.Handle(ctx, data)
}

// commit acknowledges the offset on success, or after a DLQ handoff / permanent
// failure so a poison message does not block the partition.
func (c *Consumer) commit(msg *message, err error) {
	if !c.shouldCommit(err) {
		return
	}
	reader := c.readers[msg.topic]
	if reader == nil {
		return
	}
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		cerr := reader.CommitMessages(ctx, msg.km)
		cancel()
		if cerr == nil {
			return
		}
		if attempt == 3 {
			c.l.Error("kafka commit failed", logger.String("topic", msg.topic), logger.Error(cerr))
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
}

// shouldCommit reports whether a message that ended with err may be acknowledged.
func (c *Consumer) shouldCommit(err error) bool {
	switch {
	case err == nil:
		return true
	case c.interrupted(err):
		return false
	case errors.Is(err, ErrPermanent):
		return true
	default:
		return c.dlq != nil
	}
}

// interrupted reports whether err comes from the consumer being stopped.
func (c *Consumer) interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || c.ctx.Err() != nil
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()

	byPart, ok := c.partLocks[topic]
	if !ok {
		byPart = make(map[int]*sync.Mutex)
		c.partLocks[topic] = byPart
	}
	l, ok := byPart[partition]
	if !ok {
		l = &sync.Mutex{}
		byPart[partition] = l
	}
	return l
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := min << uint(attempt-1)
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp - jitter
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerMessagesTotal *prometheus.CounterVec
	consumerOnce          sync.Once
)

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "finscope_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "finscope_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
		consumerMessagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "finscope_kafka_consumer_messages_total", Help: "Messages handled by result"},
			[]string{"topic", "result"},
		)
	})
}
