package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Recorder batches score writes on a background goroutine so the room loops
// never wait on the database.
type Recorder struct {
	store     *Store
	log       zerolog.Logger
	rows      chan ScoreRow
	stop      chan struct{}
	wg        sync.WaitGroup
	interval  time.Duration
	batchSize int
	stopOnce  sync.Once
}

// NewRecorder starts the background writer
func NewRecorder(s *Store, interval time.Duration, batchSize int, log zerolog.Logger) *Recorder {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	r := &Recorder{
		store:     s,
		log:       log.With().Str("component", "score-recorder").Logger(),
		rows:      make(chan ScoreRow, 1024),
		stop:      make(chan struct{}),
		interval:  interval,
		batchSize: batchSize,
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// RecordScore enqueues a finished session's score. Never blocks; rows are
// dropped when the queue is full.
func (r *Recorder) RecordScore(name, roomCode string, score int) {
	row := ScoreRow{Name: name, RoomCode: roomCode, Score: score, CreatedAt: time.Now().UTC()}
	select {
	case r.rows <- row:
	default:
		r.log.Warn().Str("name", name).Msg("score queue full, dropping")
	}
}

// Stop flushes pending rows and waits for the writer to exit
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

func (r *Recorder) writer() {
	defer r.wg.Done()

	batch := make([]ScoreRow, 0, r.batchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case row := <-r.rows:
			batch = append(batch, row)
			if len(batch) >= r.batchSize {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-r.stop:
		drain:
			for {
				select {
				case row := <-r.rows:
					batch = append(batch, row)
				default:
					break drain
				}
			}
			r.flush(batch)
			return
		}
	}
}

func (r *Recorder) flush(rows []ScoreRow) {
	if r.store == nil || len(rows) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.InsertScores(ctx, rows); err != nil {
		r.log.Error().Err(err).Int("rows", len(rows)).Msg("flush failed")
		return
	}
	r.log.Debug().Int("rows", len(rows)).Msg("scores flushed")
}
