package mqtt

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// replayQueue is a fixed-capacity FIFO holding messages published while the
// broker connection is down. When full, the oldest message is dropped so the
// most recent count is never lost. Not safe for concurrent use — caller must
// synchronize.
type replayQueue struct {
	msgs    []bufferedMsg
	max     int
	dropped int // messages discarded since the last drain
}

func newReplayQueue(max int) *replayQueue {
	return &replayQueue{max: max}
}

func (q *replayQueue) push(msg bufferedMsg) {
	if len(q.msgs) == q.max {
		q.msgs = q.msgs[1:]
		q.dropped++
	}
	q.msgs = append(q.msgs, msg)
}

// drain returns all queued messages oldest-first along with the number of
// messages dropped to overflow, and resets the queue.
func (q *replayQueue) drain() ([]bufferedMsg, int) {
	msgs, dropped := q.msgs, q.dropped
	q.msgs = nil
	q.dropped = 0
	return msgs, dropped
}

func (q *replayQueue) len() int {
	return len(q.msgs)
}
