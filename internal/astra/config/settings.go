package config

import "sync"

// Snapshot is an immutable copy of the runtime toggles, delivered to
// subscribers on every change.
type Snapshot struct {
	MemoryEnabled      bool
	VoiceOutputEnabled bool
}

// Settings holds the user-facing runtime toggles. Safe for concurrent use;
// change notifications run synchronously on the mutating goroutine.
type Settings struct {
	mu                 sync.RWMutex
	memoryEnabled      bool
	voiceOutputEnabled bool

	subs    map[int]func(Snapshot)
	nextSub int
}

// NewSettings creates runtime settings initialized from the config file.
func NewSettings(initial SettingsConfig) *Settings {
	return &Settings{
		memoryEnabled:      initial.MemoryEnabled,
		voiceOutputEnabled: initial.VoiceOutputEnabled,
		subs:               make(map[int]func(Snapshot)),
	}
}

// MemoryEnabled reports whether fact extraction and recall are active.
func (s *Settings) MemoryEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memoryEnabled
}

// VoiceOutputEnabled reports whether sentences are queued for speech.
func (s *Settings) VoiceOutputEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voiceOutputEnabled
}

// SetMemoryEnabled updates the toggle and notifies subscribers.
func (s *Settings) SetMemoryEnabled(enabled bool) {
	s.update(func() { s.memoryEnabled = enabled })
}

// SetVoiceOutputEnabled updates the toggle and notifies subscribers.
func (s *Settings) SetVoiceOutputEnabled(enabled bool) {
	s.update(func() { s.voiceOutputEnabled = enabled })
}

// Snapshot returns the current toggle values.
func (s *Settings) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		MemoryEnabled:      s.memoryEnabled,
		VoiceOutputEnabled: s.voiceOutputEnabled,
	}
}

// Subscribe registers fn to be called with a snapshot after every change.
// The returned cancel func removes the subscription; it is idempotent.
func (s *Settings) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Settings) update(apply func()) {
	s.mu.Lock()
	apply()
	snap := Snapshot{
		MemoryEnabled:      s.memoryEnabled,
		VoiceOutputEnabled: s.voiceOutputEnabled,
	}
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	// Subscribers run outside the lock so they can read settings freely.
	for _, fn := range fns {
		fn(snap)
	}
}
