package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fusesearch/fuse-search/internal/config"
)

func TestMemoryBus_PublishReachesAllSubscribers(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	var (
		mu       sync.Mutex
		received []Event
		wg       sync.WaitGroup
	)
	wg.Add(2)

	handler := func(ctx context.Context, event Event) error {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		wg.Done()
		return nil
	}

	if err := b.Subscribe(context.Background(), TopicLaneCompleted, handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := b.Subscribe(context.Background(), TopicLaneCompleted, handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	event := NewEvent(TopicLaneCompleted, map[string]string{"lane": "web_search"})
	if err := b.Publish(context.Background(), TopicLaneCompleted, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers not invoked within 2s")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Errorf("received %d events, want 2", len(received))
	}
	for _, got := range received {
		if got.ID != event.ID || got.Type != TopicLaneCompleted {
			t.Errorf("event = %+v, want published event", got)
		}
	}
}

func TestMemoryBus_PublishWithoutSubscribers(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	if err := b.Publish(context.Background(), TopicRetrievalPerformed, NewEvent(TopicRetrievalPerformed, nil)); err != nil {
		t.Errorf("Publish() error = %v, want nil with no subscribers", err)
	}
}

func TestMemoryBus_ClosedRejectsPublish(t *testing.T) {
	b := NewMemoryBus()
	b.Close()

	if err := b.Publish(context.Background(), TopicLaneCompleted, NewEvent(TopicLaneCompleted, nil)); err == nil {
		t.Error("Publish() error = nil after Close, want error")
	}
	if err := b.Subscribe(context.Background(), TopicLaneCompleted, func(context.Context, Event) error { return nil }); err == nil {
		t.Error("Subscribe() error = nil after Close, want error")
	}
}

func TestNewEvent_PopulatesIdentity(t *testing.T) {
	a := NewEvent(TopicBreakerStateChanged, "payload")
	b := NewEvent(TopicBreakerStateChanged, "payload")

	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Errorf("event IDs = %q, %q, want distinct non-empty IDs", a.ID, b.ID)
	}
	if a.Timestamp == 0 {
		t.Error("Timestamp = 0, want current time")
	}
	if a.Source != "fuse-search" {
		t.Errorf("Source = %q, want fuse-search", a.Source)
	}
}

func TestNewBus_SelectsImplementation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BusConfig
		wantErr bool
	}{
		{"default memory", config.BusConfig{}, false},
		{"explicit memory", config.BusConfig{Type: "memory"}, false},
		{"none", config.BusConfig{Type: "none"}, false},
		{"kafka without brokers", config.BusConfig{Type: "kafka"}, true},
		{"unknown", config.BusConfig{Type: "rabbitmq"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBus(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBus() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				b.Close()
			}
		})
	}
}

func TestParseKafkaBrokers(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"localhost:9092", 1},
		{"a:9092, b:9092 ,c:9092", 3},
	}

	for _, tt := range tests {
		got := ParseKafkaBrokers(tt.input)
		if len(got) != tt.want {
			t.Errorf("ParseKafkaBrokers(%q) = %v, want %d brokers", tt.input, got, tt.want)
		}
		for _, broker := range got {
			if broker != "" && (broker[0] == ' ' || broker[len(broker)-1] == ' ') {
				t.Errorf("broker %q not trimmed", broker)
			}
		}
	}
}
