package store

import (
	"fmt"
	"sync"
	"testing"
)

func TestStore_SetThenGet(t *testing.T) {
	s := New()

	if _, ok := s.Get("x"); ok {
		t.Fatal("unknown name should not be found")
	}
	if !s.Set("x", "5") {
		t.Error("first Set should report a new name")
	}
	if v, ok := s.Get("x"); !ok || v != "5" {
		t.Errorf("Get = %q, %v; want 5, true", v, ok)
	}
	if s.Set("x", "6") {
		t.Error("second Set should not report a new name")
	}
}

func TestStore_ApplyOverridesLocal(t *testing.T) {
	s := New()
	s.Set("x", "5")

	if !s.Apply("x", "7") {
		t.Error("first remote value for a locally set name should count as new")
	}
	if v, _ := s.Get("x"); v != "7" {
		t.Errorf("Get = %q, want 7", v)
	}
	if s.Apply("x", "8") {
		t.Error("second remote value should not count as new")
	}
	// A local write after confirmation keeps the remote flag.
	s.Set("x", "9")
	if s.Apply("x", "10") {
		t.Error("remote flag lost after local write")
	}
}

func TestStore_NamesSnapshotLen(t *testing.T) {
	s := New()
	s.Apply("☁ b", "2")
	s.Set("☁ a", "1")
	s.Apply("☁ c", "3")

	names := s.Names()
	want := []string{"☁ a", "☁ b", "☁ c"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("Names() = %v, want %v", names, want)
	}
	if s.Len() != 3 || !s.Has("☁ a") || s.Has("☁ z") {
		t.Errorf("Len/Has mismatch: len=%d", s.Len())
	}

	snap := s.Snapshot()
	snap["☁ a"] = "changed"
	if v, _ := s.Get("☁ a"); v != "1" {
		t.Error("Snapshot must be a copy")
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				name := fmt.Sprintf("v%d", i%10)
				if g%2 == 0 {
					s.Set(name, fmt.Sprint(i))
				} else {
					s.Apply(name, fmt.Sprint(i))
				}
			}
		}(g)
	}
	wg.Wait()
	if s.Len() != 10 {
		t.Errorf("Len = %d, want 10", s.Len())
	}
}

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"  ", true},
		{"0", true},
		{"42", true},
		{"-3.5", true},
		{" 7 ", true},
		{"1e5", true},
		{".5", true},
		{"0x1F", true},
		{"0b101", true},
		{"0x1ffffffffffffffffff", true},
		{"0o7777777777777777777777777", true},
		{"Infinity", true},
		{"-Infinity", true},
		{"1e999", true},
		{"abc", false},
		{"12abc", false},
		{"NaN", false},
		{"inf", false},
		{"1_000", false},
		{"0xZZ", false},
		{"0x", false},
		{"0x1ffffffffffffffffffzz", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsNumeric(tt.in); got != tt.want {
				t.Errorf("IsNumeric(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
