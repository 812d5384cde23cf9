package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(100*time.Millisecond, time.Second, attempt)
		if d <= 0 || d > time.Second {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}

func TestHookChainOrderAndPanic(t *testing.T) {
	var order []string
	first := HookFuncs{
		Before: func(ctx context.Context, _ string, _ kafka.Message, d []byte) (context.Context, []byte, error) {
			order = append(order, "before1")
			return ctx, append(d, '1'), nil
		},
		After: func(context.Context, string, kafka.Message, error) { order = append(order, "after1") },
	}
	second := HookFuncs{
		Before: func(ctx context.Context, _ string, _ kafka.Message, d []byte) (context.Context, []byte, error) {
			order = append(order, "before2")
			return ctx, append(d, '2'), nil
		},
		After: func(context.Context, string, kafka.Message, error) { order = append(order, "after2") },
	}
	chain := NewHookChain(first, nil, second)
	_, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	if err != nil || string(data) != "x12" {
		t.Fatalf("before chain = %q, %v", data, err)
	}
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil)
	want := []string{"before1", "before2", "after2", "after1"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	boom := HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, []byte, error) {
		panic("boom")
	}}
	if _, _, err := NewHookChain(boom).BeforeHandle(context.Background(), "t", kafka.Message{}, nil); err == nil {
		t.Fatalf("panicking hook should surface as an error")
	}
}

func TestTraceHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, err := TraceHook{}.BeforeHandle(context.Background(), "t", km, nil)
	if err != nil || TraceID(ctx) != "abc" {
		t.Fatalf("trace id not propagated: %q %v", TraceID(ctx), err)
	}
	if TraceID(context.Background()) != "" {
		t.Fatalf("expected empty trace id")
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := encodeValue(make(chan int)); err == nil || errors.Unwrap(err) == nil {
		t.Fatalf("expected wrapped marshal error")
	}
}

func TestProducerConfigValidate(t *testing.T) {
	brokers := WithBrokers([]string{"localhost:9092"})
	cases := []struct {
		opts []ProducerOption
		want kafka.Compression
		ok   bool
	}{
		{[]ProducerOption{brokers, WithCompression("zstd")}, kafka.Zstd, true},
		{[]ProducerOption{brokers, WithCompression("none")}, 0, true},
		{[]ProducerOption{brokers, WithCompression("brotli")}, 0, false},
		{[]ProducerOption{brokers, WithDelivery(2, 3, false)}, 0, false},
	}
	for i, tc := range cases {
		cfg := &ProducerConfig{}
		for _, o := range tc.opts {
			o(cfg)
		}
		got, err := cfg.validate()
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("case %d: codec %v err %v", i, got, err)
		}
	}
}

func TestWithBatchingKeepsDefaultsForZero(t *testing.T) {
	cfg := &ProducerConfig{BatchSize: 100, BatchBytes: 1 << 20, BatchTimeout: time.Second}
	WithBatching(0, 0, 5*time.Millisecond)(cfg)
	if cfg.BatchSize != 100 || cfg.BatchBytes != 1<<20 || cfg.BatchTimeout != 5*time.Millisecond {
		t.Fatalf("batching = %+v", cfg)
	}
}
