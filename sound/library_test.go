package sound

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func names(l *Library) []string {
	out := make([]string, len(l.Sounds))
	for i, s := range l.Sounds {
		out[i] = s.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLibraryEditing(t *testing.T) {
	l := new(Library)
	l.Add("click")
	l.Add("")
	l.Insert(-5, NewSound("first"))
	l.Insert(99, NewSound("last"))

	if got := names(l); !equal(got, []string{"first", "click", "New Sound", "last"}) {
		t.Fatalf("names = %v", got)
	}
	if s, ok := l.ByName("CLICK"); !ok || s.Volume != 1 || s.MinPitch != 1 {
		t.Errorf("ByName = %+v, %v", s, ok)
	}
	if l.Index("missing") != -1 {
		t.Error("Index of missing sound")
	}
	if !l.RemoveByName("new sound") || l.RemoveByName("new sound") {
		t.Error("RemoveByName")
	}
	if l.RemoveAt(7) || !l.RemoveAt(0) {
		t.Error("RemoveAt")
	}
	if _, ok := l.At(5); ok {
		t.Error("At out of range")
	}
	l.Clear()
	if l.Len() != 0 {
		t.Error("Clear")
	}
}

func TestLibraryMove(t *testing.T) {
	tests := []struct {
		from, to int
		ok       bool
		want     []string
	}{
		{0, 2, true, []string{"b", "a", "c", "d"}},
		{3, 0, true, []string{"d", "a", "b", "c"}},
		{1, 1, false, []string{"a", "b", "c", "d"}},
		{-1, 2, false, []string{"a", "b", "c", "d"}},
		{0, 4, false, []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		l := new(Library)
		for _, n := range []string{"a", "b", "c", "d"} {
			l.Add(n)
		}
		if ok := l.Move(tt.from, tt.to); ok != tt.ok {
			t.Errorf("Move(%d,%d) = %v", tt.from, tt.to, ok)
		}
		if got := names(l); !equal(got, tt.want) {
			t.Errorf("Move(%d,%d): %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestLibraryValidate(t *testing.T) {
	bad := []Sound{
		{Name: " "},
		{Name: "v", Volume: -1},
		{Name: "p", PitchVariation: true, MinPitch: 0, MaxPitch: 1},
		{Name: "c", Clips: []Clip{{Name: "empty"}}},
	}
	for _, s := range bad {
		l := &Library{Sounds: []Sound{s}}
		if err := l.Validate(); err == nil {
			t.Errorf("%q: expected error", s.Name)
		}
	}
}

func TestLibrarySaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sounds.yaml")
	l := new(Library)
	s := NewSound("chime")
	s.Clips = []Clip{{Name: "a", ToneHz: 880, Length: 0.2}}
	s.Bus = "fx"
	l.Insert(0, s)
	if err := l.Save(path); err != nil {
		t.Fatal(err)
	}

	got, err := LoadLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := got.ByName("chime")
	if !ok || c.Bus != "fx" || len(c.Clips) != 1 || c.Clips[0].ToneHz != 880 {
		t.Errorf("loaded %+v", got)
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sounds.yaml")
	l := new(Library)
	l.Add("one")
	if err := l.Save(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Library, 1)
	go Watch(ctx, path, func(lib *Library) {
		select {
		case reloaded <- lib:
		default:
		}
	}, zerolog.Nop())

	l.Add("two")
	deadline := time.After(5 * time.Second)
	for {
		if err := l.Save(path); err != nil {
			t.Fatal(err)
		}
		select {
		case lib := <-reloaded:
			if lib.Len() != 2 {
				t.Errorf("reloaded %d sounds", lib.Len())
			}
			return
		case <-deadline:
			t.Fatal("no reload")
		case <-time.After(300 * time.Millisecond):
		}
	}
}
