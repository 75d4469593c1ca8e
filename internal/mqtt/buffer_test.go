package mqtt

import (
	"fmt"
	"testing"
)

func msg(i int) bufferedMsg {
	return bufferedMsg{topic: TopicCount, payload: []byte(fmt.Sprintf("m%d", i)), qos: 1}
}

func TestReplayQueueEmpty(t *testing.T) {
	q := newReplayQueue(10)
	if q.len() != 0 {
		t.Errorf("len: got %d, want 0", q.len())
	}
	msgs, dropped := q.drain()
	if msgs != nil || dropped != 0 {
		t.Errorf("drain of empty queue: got %v, %d", msgs, dropped)
	}
}

func TestReplayQueueFIFO(t *testing.T) {
	q := newReplayQueue(10)
	for i := 0; i < 5; i++ {
		q.push(msg(i))
	}
	if q.len() != 5 {
		t.Fatalf("len: got %d, want 5", q.len())
	}

	msgs, dropped := q.drain()
	if dropped != 0 {
		t.Errorf("dropped: got %d, want 0", dropped)
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("m%d", i); string(m.payload) != want {
			t.Errorf("msg %d: got %s, want %s", i, m.payload, want)
		}
	}
}

func TestReplayQueueOverflowDropsOldest(t *testing.T) {
	q := newReplayQueue(3)
	for i := 0; i < 5; i++ {
		q.push(msg(i))
	}
	if q.len() != 3 {
		t.Fatalf("len after overflow: got %d, want 3", q.len())
	}

	msgs, dropped := q.drain()
	if dropped != 2 {
		t.Errorf("dropped: got %d, want 2", dropped)
	}
	want := []string{"m2", "m3", "m4"}
	for i, w := range want {
		if string(msgs[i].payload) != w {
			t.Errorf("msg %d: got %s, want %s", i, msgs[i].payload, w)
		}
	}
}

func TestReplayQueueDrainResets(t *testing.T) {
	q := newReplayQueue(2)
	q.push(msg(0))
	q.push(msg(1))
	q.push(msg(2)) // drops m0
	q.drain()

	if q.len() != 0 {
		t.Errorf("len after drain: got %d, want 0", q.len())
	}

	q.push(msg(3))
	msgs, dropped := q.drain()
	if dropped != 0 {
		t.Errorf("dropped counter not reset: got %d", dropped)
	}
	if len(msgs) != 1 || string(msgs[0].payload) != "m3" {
		t.Errorf("after reuse: got %v", msgs)
	}
}

func TestReplayQueuePreservesAttributes(t *testing.T) {
	q := newReplayQueue(2)
	q.push(bufferedMsg{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true})

	msgs, _ := q.drain()
	if len(msgs) != 1 {
		t.Fatalf("len: got %d, want 1", len(msgs))
	}
	m := msgs[0]
	if m.topic != TopicSystem || m.qos != 1 || !m.retained {
		t.Errorf("attributes not preserved: %+v", m)
	}
}
