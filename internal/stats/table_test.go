package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Preset", "BPM", "Sound"}
	rows := [][]string{
		{"warmup", "90", "clap"},
		{"冲刺", "140", "voice"},
	}
	rightAlign := map[int]bool{1: true}

	lines := FormatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Preset  BPM  Sound" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "warmup   90  clap" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	// Wide runes take two columns each.
	if lines[2] != "冲刺    140  voice" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := FormatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected nil, got %v", lines)
	}
}
