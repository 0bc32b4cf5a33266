// Package stream carries domain events between the request handlers and the
// notification workers over Kafka. Producing is best effort: money moves in
// the database transaction, never on the stream, so a lost event costs an
// email and nothing else.
package stream

import (
	"fmt"
	"log"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type KafkaStream struct {
	kafkaServers string

	mu       sync.Mutex
	producer *kafka.Producer
}

func New(kafkaServers string) *KafkaStream {
	return &KafkaStream{
		kafkaServers: kafkaServers,
	}
}

// getProducer lazily opens the shared producer so the app can boot before
// the broker is reachable.
func (st *KafkaStream) getProducer() (*kafka.Producer, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.producer != nil {
		return st.producer, nil
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": st.kafkaServers})
	if err != nil {
		return nil, fmt.Errorf("kafka.NewProducer: %w", err)
	}

	// drain delivery reports so the internal queue never fills up
	go func() {
		for e := range producer.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				log.Printf("Delivery failed for topic %s: %v", *m.TopicPartition.Topic, m.TopicPartition.Error)
			}
		}
	}()

	st.producer = producer
	return producer, nil
}

func (st *KafkaStream) ProduceMessage(topic, message string) error {
	producer, err := st.getProducer()
	if err != nil {
		return err
	}

	err = producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          []byte(message),
	}, nil)

	if err != nil {
		log.Printf("Failed to produce message: %v", err)
		return err
	}

	return nil
}

func (st *KafkaStream) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.producer != nil {
		st.producer.Flush(5000)
		st.producer.Close()
		st.producer = nil
	}
}

type StreamConsumer struct {
	GroupId string
	Topic   string
}

func (st *KafkaStream) CreateConsumer(consumerStruct *StreamConsumer) (*kafka.Consumer, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": st.kafkaServers,
		"group.id":          consumerStruct.GroupId,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(consumerStruct.Topic, nil); err != nil {
		return nil, err
	}

	return consumer, nil
}
