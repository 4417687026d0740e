package logging

import "testing"

func TestNew(t *testing.T) {
	for _, development := range []bool{true, false} {
		logger, err := New(development)
		if err != nil {
			t.Fatalf("New(%v): %v", development, err)
		}
		if logger == nil {
			t.Fatalf("New(%v): nil logger", development)
		}
	}
}
