package clustertopic

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"

	"github.com/dittofs/clusterstate/internal/logger"
)

// KafkaTopic backs the pub/sub topic with a single Kafka topic, producing
// every message keyed by its publishing node. Kafka's own per-partition
// ordering guarantee then becomes the transport's "best-effort ordered per
// publisher" guarantee (§4.4) for free: every message from the same
// from_node lands in the same partition and is delivered in send order
// within it.
type KafkaTopic struct {
	topicName string
	selfNode  string
	producer  sarama.SyncProducer
	consumer  sarama.ConsumerGroup

	mu       sync.RWMutex
	handlers []Handler
}

// KafkaConfig configures the broker connection and topic name.
type KafkaConfig struct {
	Brokers   []string
	TopicName string
	GroupID   string
	Version   string // Kafka protocol version string, e.g. "2.1.1"
}

// NewKafkaTopic dials brokers and prepares a producer and consumer group for
// the cluster topic.
func NewKafkaTopic(cfg KafkaConfig, selfNode string) (*KafkaTopic, error) {
	saramaCfg := sarama.NewConfig()
	if cfg.Version != "" {
		v, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return nil, err
		}
		saramaCfg.Version = v
	}
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	consumer, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		producer.Close()
		return nil, err
	}

	return &KafkaTopic{topicName: cfg.TopicName, selfNode: selfNode, producer: producer, consumer: consumer}, nil
}

// Publish implements Topic: the message is keyed by From so all messages
// from one node serialize into the same partition.
func (k *KafkaTopic) Publish(_ context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = k.selfNode
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topicName,
		Key:   sarama.StringEncoder(msg.From),
		Value: sarama.ByteEncoder(body),
	})
	return err
}

// Subscribe implements Topic.
func (k *KafkaTopic) Subscribe(handler Handler) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.handlers = append(k.handlers, handler)
}

// Run drives the consumer group loop until ctx is cancelled. Call it from a
// dedicated goroutine — the message dispatcher thread required by §5.
func (k *KafkaTopic) Run(ctx context.Context) error {
	for {
		if err := k.consumer.Consume(ctx, []string{k.topicName}, &kafkaConsumerHandler{topic: k}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.ErrorCtx(ctx, "kafka consume loop error", logger.Err(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close implements Topic.
func (k *KafkaTopic) Close() error {
	pErr := k.producer.Close()
	cErr := k.consumer.Close()
	if pErr != nil {
		return pErr
	}
	return cErr
}

type kafkaConsumerHandler struct {
	topic *KafkaTopic
}

func (kafkaConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (kafkaConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *kafkaConsumerHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var decoded Message
		if err := json.Unmarshal(msg.Value, &decoded); err != nil {
			logger.Warn("dropping malformed topic message", logger.Err(err))
			sess.MarkMessage(msg, "")
			continue
		}
		if decoded.Target != Broadcast && decoded.Target != h.topic.selfNode {
			sess.MarkMessage(msg, "")
			continue
		}

		h.topic.mu.RLock()
		handlers := append([]Handler(nil), h.topic.handlers...)
		h.topic.mu.RUnlock()
		for _, fn := range handlers {
			fn(sess.Context(), decoded)
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
