package room

import "asteroids-server/internal/protocol"

type inputRecord struct {
	msg       protocol.InputMsg
	received  int64 // server ms
	processed bool
}

// InputBuffer holds a client's input records in arrival order. It is bounded
// by capacity (oldest evicted) and processed records are pruned by age.
// Records must carry strictly increasing sequence numbers.
type InputBuffer struct {
	records  []inputRecord
	capacity int
	lastSeq  uint64
}

func NewInputBuffer(capacity int) *InputBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &InputBuffer{
		records:  make([]inputRecord, 0, capacity),
		capacity: capacity,
	}
}

// Push appends msg. It reports false for stale or duplicate sequences, and
// evicted is true when the oldest record was dropped to make room.
func (b *InputBuffer) Push(msg protocol.InputMsg, now int64) (ok, evicted bool) {
	if msg.Sequence <= b.lastSeq {
		return false, false
	}
	b.lastSeq = msg.Sequence
	if len(b.records) >= b.capacity {
		copy(b.records, b.records[1:])
		b.records = b.records[:len(b.records)-1]
		evicted = true
	}
	b.records = append(b.records, inputRecord{msg: msg, received: now})
	return true, evicted
}

// Drain calls fn for every unprocessed record in order and marks it processed
func (b *InputBuffer) Drain(fn func(protocol.InputMsg)) int {
	n := 0
	for i := range b.records {
		if b.records[i].processed {
			continue
		}
		fn(b.records[i].msg)
		b.records[i].processed = true
		n++
	}
	return n
}

// Prune drops processed records received more than retain ms before now
func (b *InputBuffer) Prune(now, retain int64) {
	kept := b.records[:0]
	for _, r := range b.records {
		if r.processed && now-r.received > retain {
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(b.records); i++ {
		b.records[i] = inputRecord{}
	}
	b.records = kept
}

// Len returns the number of buffered records, processed or not
func (b *InputBuffer) Len() int {
	return len(b.records)
}

// Pending returns the number of unprocessed records
func (b *InputBuffer) Pending() int {
	n := 0
	for _, r := range b.records {
		if !r.processed {
			n++
		}
	}
	return n
}
