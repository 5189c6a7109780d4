// Package voice queues completed sentences for speech synthesis. Sentences
// arrive from the chat pipeline as soon as their terminal punctuation is
// seen, so playback starts while the rest of the response is still
// streaming. The actual audio engine is behind the Synthesizer interface;
// this package only owns ordering and interruption.
package voice

import (
	"context"
	"log/slog"
	"sync"
)

// Synthesizer turns one sentence into audible speech, blocking until the
// utterance finishes or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, sentence string) error
}

// Speaker is a FIFO sentence queue over a Synthesizer. At most one
// utterance plays at a time; Stop interrupts the current utterance and
// drops everything queued behind it.
type Speaker struct {
	synth  Synthesizer
	logger *slog.Logger

	mu      sync.Mutex
	queue   []string
	cancel  context.CancelFunc // cancels the in-flight utterance
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// NewSpeaker creates a Speaker and starts its playback goroutine.
func NewSpeaker(synth Synthesizer, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Speaker{
		synth:   synth,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

// Enqueue appends a sentence to the playback queue. Blank sentences and
// calls after Close are dropped.
func (s *Speaker) Enqueue(sentence string) {
	if sentence == "" {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, sentence)
	s.mu.Unlock()
	s.signal()
}

// Stop interrupts the current utterance and clears the queue. The Speaker
// stays usable; new sentences can be enqueued afterwards.
func (s *Speaker) Stop() {
	s.mu.Lock()
	s.queue = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

// Pending returns the number of sentences waiting behind the current
// utterance.
func (s *Speaker) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close stops playback and shuts down the playback goroutine. Safe to call
// once; Enqueue after Close is a no-op.
func (s *Speaker) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.signal()
	<-s.stopped
}

func (s *Speaker) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Speaker) run() {
	defer close(s.stopped)
	for {
		sentence, ctx, cancel, ok := s.next()
		if !ok {
			return
		}
		if sentence == "" {
			<-s.wake
			continue
		}

		if err := s.synth.Speak(ctx, sentence); err != nil && ctx.Err() == nil {
			s.logger.Warn("speech synthesis failed", "err", err)
		}

		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}
}

// next pops the head of the queue and arms the utterance's cancel function
// in the same critical section, so a concurrent Stop always sees either the
// queued sentence or a live cancel. It returns ok=false when the Speaker is
// closed, and an empty sentence when the queue is drained and the caller
// should block on the wake signal.
func (s *Speaker) next() (sentence string, ctx context.Context, cancel context.CancelFunc, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", nil, nil, false
	}
	if len(s.queue) == 0 {
		return "", nil, nil, true
	}
	sentence = s.queue[0]
	s.queue = s.queue[1:]

	ctx, cancel = context.WithCancel(context.Background())
	s.cancel = cancel
	return sentence, ctx, cancel, true
}
