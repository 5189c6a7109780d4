package voice

import (
	"context"
	"sync"
	"testing"
	"time"
)

// chanSynth reports every utterance on a channel the test can drain.
type chanSynth struct {
	spoken chan string
}

func (s *chanSynth) Speak(ctx context.Context, sentence string) error {
	s.spoken <- sentence
	return nil
}

// blockingSynth holds each utterance open until released or cancelled.
type blockingSynth struct {
	mu      sync.Mutex
	started chan string
	release chan struct{}
	spoken  []string
}

func (s *blockingSynth) Speak(ctx context.Context, sentence string) error {
	s.started <- sentence
	select {
	case <-s.release:
		s.mu.Lock()
		s.spoken = append(s.spoken, sentence)
		s.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestSpeaker_PlaysInOrder(t *testing.T) {
	synth := &chanSynth{spoken: make(chan string, 3)}
	sp := NewSpeaker(synth, nil)
	defer sp.Close()

	sp.Enqueue("First sentence.")
	sp.Enqueue("Second sentence.")
	sp.Enqueue("Third sentence.")

	want := []string{"First sentence.", "Second sentence.", "Third sentence."}
	for _, w := range want {
		select {
		case got := <-synth.spoken:
			if got != w {
				t.Fatalf("spoke %q, want %q", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}
}

func TestSpeaker_StopInterruptsAndClears(t *testing.T) {
	synth := &blockingSynth{started: make(chan string, 1), release: make(chan struct{})}
	sp := NewSpeaker(synth, nil)
	defer sp.Close()

	sp.Enqueue("Long first utterance.")
	select {
	case <-synth.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first utterance never started")
	}

	sp.Enqueue("Queued second.")
	sp.Enqueue("Queued third.")
	sp.Stop()

	if got := sp.Pending(); got != 0 {
		t.Errorf("Pending after Stop = %d, want 0", got)
	}

	// The in-flight utterance was cancelled, not completed.
	synth.mu.Lock()
	completed := len(synth.spoken)
	synth.mu.Unlock()
	if completed != 0 {
		t.Errorf("interrupted utterance recorded as spoken: %v", synth.spoken)
	}

	// The speaker remains usable after Stop.
	sp.Enqueue("After stop.")
	select {
	case got := <-synth.started:
		if got != "After stop." {
			t.Errorf("resumed with %q", got)
		}
		close(synth.release)
	case <-time.After(2 * time.Second):
		t.Fatal("speaker dead after Stop")
	}
}

// Stop landing between the queue pop and the start of synthesis must still
// cancel the dequeued sentence. next arms the cancel under the queue lock,
// so the context it hands out is already stoppable.
func TestSpeaker_StopCancelsJustDequeuedSentence(t *testing.T) {
	sp := &Speaker{
		synth:   &chanSynth{spoken: make(chan string, 1)},
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	sp.Enqueue("About to play.")

	sentence, ctx, cancel, ok := sp.next()
	if !ok || sentence != "About to play." {
		t.Fatalf("next() = (%q, %v)", sentence, ok)
	}
	defer cancel()

	sp.Stop()

	select {
	case <-ctx.Done():
	default:
		t.Error("dequeued sentence not cancelled by Stop")
	}
	if got := sp.Pending(); got != 0 {
		t.Errorf("Pending after Stop = %d, want 0", got)
	}
}

func TestSpeaker_EnqueueAfterCloseIsNoop(t *testing.T) {
	synth := &chanSynth{spoken: make(chan string, 1)}
	sp := NewSpeaker(synth, nil)
	sp.Close()

	sp.Enqueue("Too late.")
	select {
	case got := <-synth.spoken:
		t.Errorf("spoke %q after close", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSpeaker_EmptySentenceDropped(t *testing.T) {
	synth := &chanSynth{spoken: make(chan string, 1)}
	sp := NewSpeaker(synth, nil)
	defer sp.Close()

	sp.Enqueue("")
	if got := sp.Pending(); got != 0 {
		t.Errorf("Pending = %d, want 0", got)
	}
}
