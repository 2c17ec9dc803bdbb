package syncbus

import (
	"context"
	"os"
	"testing"
	"time"

	sarama "github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
)

func TestKafkaTopic(t *testing.T) {
	if got := Topic("status:https://r.example/s/1"); got != "status_https___r.example_s_1" {
		t.Fatalf("unexpected topic %q", got)
	}
}

func TestKafkaBusWithMocks(t *testing.T) {
	cfg := mocks.NewTestConfig()
	producer := mocks.NewSyncProducer(t, cfg)
	consumer := mocks.NewConsumer(t, cfg)
	bus := newKafkaBus(producer, consumer)
	ctx := context.Background()

	topic := Topic("status:x")
	pc := consumer.ExpectConsumePartition(topic, 0, sarama.OffsetNewest)
	producer.ExpectSendMessageAndSucceed()

	ch, err := bus.Subscribe(ctx, "status:x")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Publish(ctx, "status:x"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	pc.YieldMessage(&sarama.ConsumerMessage{Topic: topic, Value: []byte("status:x")})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	metrics := bus.Metrics()
	if metrics.Published != 1 || metrics.Delivered != 1 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
	if err := bus.Unsubscribe(ctx, "status:x", ch); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	bus.Close()
}

func TestKafkaBusPublishError(t *testing.T) {
	cfg := mocks.NewTestConfig()
	producer := mocks.NewSyncProducer(t, cfg)
	consumer := mocks.NewConsumer(t, cfg)
	bus := newKafkaBus(producer, consumer)
	defer bus.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	if err := bus.Publish(context.Background(), "status:x"); err == nil {
		t.Fatal("expected publish error")
	}
	if bus.Metrics().Published != 0 {
		t.Fatal("failed publish must not be counted")
	}
}

func TestKafkaBusRealBroker(t *testing.T) {
	addr := os.Getenv("FEDIT_TEST_KAFKA_ADDR")
	if addr == "" {
		t.Skip("FEDIT_TEST_KAFKA_ADDR not set, skipping Kafka integration tests")
	}
	config := sarama.NewConfig()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	bus, err := NewKafkaBus([]string{addr}, config)
	if err != nil {
		t.Fatalf("NewKafkaBus: %v", err)
	}
	defer bus.Close()

	ctx := context.Background()
	key := "test-" + uuid.NewString()
	// Auto topic creation happens on first produce.
	if err := bus.Publish(ctx, key); err != nil {
		t.Fatalf("publish: %v", err)
	}
	ch, err := bus.Subscribe(ctx, key)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	time.Sleep(2 * time.Second)
	if err := bus.Publish(ctx, key); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for publish")
	}
}
