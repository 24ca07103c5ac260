package device

import (
	"context"
	"testing"
	"time"
)

func TestNewExecSpeakerParsesCommand(t *testing.T) {
	s, err := NewExecSpeaker(`espeak -s 130 -a 180`, "en+f3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.cmd) != 5 || s.cmd[0] != "espeak" || s.cmd[4] != "180" {
		t.Fatalf("unexpected parse: %v", s.cmd)
	}
}

func TestNewExecSpeakerRejectsBadCommand(t *testing.T) {
	if _, err := NewExecSpeaker(`espeak "unterminated`, ""); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := NewExecSpeaker("", ""); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestMockSpeakerRecordsWords(t *testing.T) {
	m := NewMockSpeaker(0)
	ctx := context.Background()

	for _, w := range []string{"and", "now", "the_end_is_near"} {
		if err := m.Speak(ctx, w); err != nil {
			t.Fatalf("speak: %v", err)
		}
	}
	words := m.Words()
	if len(words) != 3 || words[2] != "the_end_is_near" {
		t.Fatalf("unexpected words: %v", words)
	}
}

func TestMockSpeakerHonorsContext(t *testing.T) {
	m := NewMockSpeaker(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Speak(ctx, "regrets"); err == nil {
		t.Fatal("expected context error")
	}
	if len(m.Words()) != 0 {
		t.Fatal("canceled speak must not record the word")
	}
}
