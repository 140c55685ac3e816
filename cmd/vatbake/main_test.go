package main

import (
	"bytes"
	"testing"
)

func TestChannelRange(t *testing.T) {
	lo, hi := channelRange([]float32{0.5, -2, 7, 1})
	if lo != -2 || hi != 7 {
		t.Errorf("channelRange = %v, %v; want -2, 7", lo, hi)
	}
	if lo, hi := channelRange(nil); lo != 0 || hi != 0 {
		t.Errorf("empty channelRange = %v, %v", lo, hi)
	}
}

func TestProgressWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, "baking")
	if p.bar != nil {
		t.Fatal("a buffer is not a terminal")
	}

	for _, pct := range []int{0, 3, 10, 25, 26, 100} {
		p.Report(pct)
	}
	if p.nextLog != 110 {
		t.Errorf("nextLog = %d, want 110", p.nextLog)
	}
	p.Finish()
	p.Finish()
}

func TestMatchSuffix(t *testing.T) {
	if matchSuffix("  ") != "" {
		t.Error("blank pattern should add nothing")
	}
	if got := matchSuffix("*wind*"); got != ` matching "*wind*"` {
		t.Errorf("matchSuffix = %q", got)
	}
}
