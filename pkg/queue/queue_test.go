package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

type payload struct {
	Symbol string `json:"symbol"`
}

type recordingJob struct {
	err  error
	seen []string
}

func (j *recordingJob) Type() string { return "recalibrate" }

func (j *recordingJob) Handle(_ context.Context, raw json.RawMessage) error {
	p, err := Decode[payload](raw)
	if err != nil {
		return err
	}
	j.seen = append(j.seen, p.Symbol)
	return j.err
}

func TestDecode(t *testing.T) {
	p, err := Decode[payload](json.RawMessage(`{"symbol":"TCS"}`))
	if err != nil || p.Symbol != "TCS" {
		t.Fatalf("decode = %+v, %v", p, err)
	}
	if _, err := Decode[payload](nil); err == nil {
		t.Fatalf("empty payload should fail")
	}
	if _, err := Decode[payload](json.RawMessage(`[`)); err == nil {
		t.Fatalf("malformed payload should fail")
	}
}

func TestNewMessageRejectsUnknownTypeForConsumers(t *testing.T) {
	q := NewRedisQueue(nil, Config{}, nil)
	if _, err := q.newMessage("anything", payload{"TCS"}); err != nil {
		t.Fatalf("producer-only queue should accept any type: %v", err)
	}

	q.RegisterJob(&recordingJob{})
	if _, err := q.newMessage("train", payload{"TCS"}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	data, err := q.newMessage("recalibrate", payload{"TCS"})
	if err != nil {
		t.Fatal(err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.ID == "" || msg.Type != "recalibrate" || string(msg.Payload) != `{"symbol":"TCS"}` {
		t.Fatalf("message = %+v", msg)
	}
}

func TestDispatchOutcomes(t *testing.T) {
	ok := &recordingJob{}
	q := NewRedisQueue(nil, Config{RetryLimit: 2}, nil)
	q.RegisterJob(ok)

	msg := &Message{ID: "1", Type: "recalibrate", Payload: json.RawMessage(`{"symbol":"INFY"}`)}
	if got := q.dispatch(context.Background(), msg); got != outcomeDone {
		t.Fatalf("success outcome = %v", got)
	}
	if len(ok.seen) != 1 || ok.seen[0] != "INFY" {
		t.Fatalf("job saw %v", ok.seen)
	}

	failing := &recordingJob{err: fmt.Errorf("provider down")}
	q = NewRedisQueue(nil, Config{RetryLimit: 2}, nil)
	q.RegisterJob(failing)
	msg = &Message{ID: "2", Type: "recalibrate", Payload: json.RawMessage(`{"symbol":"INFY"}`)}
	for attempt := 1; attempt <= 2; attempt++ {
		if got := q.dispatch(context.Background(), msg); got != outcomeRetry || msg.Attempts != attempt {
			t.Fatalf("attempt %d: outcome %v attempts %d", attempt, got, msg.Attempts)
		}
	}
	if got := q.dispatch(context.Background(), msg); got != outcomeDead {
		t.Fatalf("after retry limit outcome = %v, want dead", got)
	}

	unknown := &Message{ID: "3", Type: "train"}
	if got := q.dispatch(context.Background(), unknown); got != outcomeDead {
		t.Fatalf("unknown type outcome = %v", got)
	}
}

func TestDispatchRequeuesOnShutdown(t *testing.T) {
	q := NewRedisQueue(nil, Config{}, nil)
	q.RegisterJob(&recordingJob{err: context.Canceled})
	msg := &Message{ID: "4", Type: "recalibrate", Payload: json.RawMessage(`{"symbol":"TCS"}`)}
	if got := q.dispatch(context.Background(), msg); got != outcomeRetry || msg.Attempts != 0 {
		t.Fatalf("cancelled job: outcome %v attempts %d", got, msg.Attempts)
	}
}
