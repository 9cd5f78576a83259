package auditlog

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service is an async audit writer. Emit performs a non-blocking channel
// send (drops on overflow); a background goroutine flushes batches to the
// Repo.
type Service struct {
	repo      *Repo
	queue     chan Entry
	batchSize int
	interval  time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// ServiceConfig configures the audit service.
type ServiceConfig struct {
	Repo          *Repo
	QueueSize     int
	FlushBatch    int
	FlushInterval time.Duration
}

// NewService creates an audit service.
func NewService(cfg ServiceConfig) *Service {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 4096
	}
	batchSize := cfg.FlushBatch
	if batchSize <= 0 {
		batchSize = 512
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Service{
		repo:      cfg.Repo,
		queue:     make(chan Entry, queueSize),
		batchSize: batchSize,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the background flush goroutine.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.flushLoop()
}

// Stop signals the flush loop, drains remaining entries, and returns.
func (s *Service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Emit enqueues an entry, assigning its ID. Non-blocking; drops on overflow.
func (s *Service) Emit(e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	select {
	case s.queue <- e:
	default:
	}
}

func (s *Service) flushLoop() {
	defer s.wg.Done()

	batch := make([]Entry, 0, s.batchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-s.stopCh:
			for {
				select {
				case e := <-s.queue:
					batch = append(batch, e)
				default:
					if len(batch) > 0 {
						s.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (s *Service) flush(batch []Entry) {
	if _, err := s.repo.InsertBatch(batch); err != nil {
		log.Printf("auditlog: flush %d entries: %v", len(batch), err)
	}
}
