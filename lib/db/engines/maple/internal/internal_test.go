package internal

import "testing"

func TestEntryMatches(t *testing.T) {
	live := NewEntry([]byte("a"), 100, 50)

	tests := []struct {
		name     string
		entry    Entry
		loaded   bool
		expected []byte
		now      int64
		want     bool
	}{
		{"absent matches nil", Entry{}, false, nil, 100, true},
		{"absent does not match value", Entry{}, false, []byte("a"), 100, false},
		{"live matches equal value", live, true, []byte("a"), 120, true},
		{"live does not match other value", live, true, []byte("b"), 120, false},
		{"live does not match nil", live, true, nil, 120, false},
		{"expired matches nil", live, true, nil, 150, true},
		{"expired does not match old value", live, true, []byte("a"), 150, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Matches(tt.expected, tt.loaded, tt.now); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEntryCopiesValue(t *testing.T) {
	value := []byte("value")
	e := NewEntry(value, 0, 0)
	value[0] = 'X'
	if string(e.Value) != "value" {
		t.Errorf("entry shares memory with input: %q", e.Value)
	}
	if e.DeleteAt != 0 {
		t.Errorf("DeleteAt = %d, want 0 for ttl 0", e.DeleteAt)
	}
}
