package device

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
)

// Speaker voices one word token, returning only when it has been
// spoken. Underscore-joined phrases are passed through verbatim; the
// engine treats the underscores as word separators.
type Speaker interface {
	Speak(ctx context.Context, word string) error
}

// ExecSpeaker shells out to an external text-to-speech engine (eSpeak
// in the installed setup). The call blocks for the full utterance,
// which is what the scheduler's compensation rule exists for.
type ExecSpeaker struct {
	cmd   []string
	voice string
	mu    sync.Mutex
}

func NewExecSpeaker(command, voice string) (*ExecSpeaker, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse speech command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("speech command empty")
	}
	return &ExecSpeaker{cmd: args, voice: voice}, nil
}

func (s *ExecSpeaker) Speak(ctx context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args := append([]string{}, s.cmd[1:]...)
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	args = append(args, word)
	cmd := exec.CommandContext(ctx, s.cmd[0], args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("speak %q: %w", word, err)
	}
	return nil
}

// MockSpeaker records spoken words, optionally simulating the engine's
// blocking time.
type MockSpeaker struct {
	delay time.Duration
	mu    sync.Mutex
	words []string
}

func NewMockSpeaker(delay time.Duration) *MockSpeaker {
	return &MockSpeaker{delay: delay}
}

func (m *MockSpeaker) Speak(ctx context.Context, word string) error {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words = append(m.words, word)
	return nil
}

// Words returns the words spoken so far.
func (m *MockSpeaker) Words() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.words...)
}
