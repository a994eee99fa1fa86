package route

import (
	"context"
	"errors"
	"testing"
)

type robot struct {
	ran []string
}

func leftSide(_ context.Context, r *robot) error {
	r.ran = append(r.ran, "left")
	return nil
}

func rightSide(_ context.Context, r *robot) error {
	r.ran = append(r.ran, "right")
	return nil
}

func TestNewTableRejectsEmpty(t *testing.T) {
	table, err := NewTable[*robot]()
	if err == nil {
		t.Fatalf("expected configuration error, got table %+v", table)
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %T", err)
	}
}

func TestNewTableValidatesEntries(t *testing.T) {
	cases := map[string][]Route[*robot]{
		"blank name": {New("  ", leftSide)},
		"nil body":   {New[*robot]("Left", nil)},
		"duplicate":  {New("Left", leftSide), New("left ", rightSide)},
	}
	for name, routes := range cases {
		if _, err := NewTable(routes...); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", name, err)
		}
	}
}

func TestTablePreservesOrderAndLookups(t *testing.T) {
	table := MustTable(New("Left", leftSide), New("Right", rightSide), New("Skills", leftSide))
	if table.Len() != 3 {
		t.Fatalf("len = %d, want 3", table.Len())
	}
	want := []string{"Left", "Right", "Skills"}
	for i, name := range table.Names() {
		if name != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, name, want[i])
		}
	}
	var seen []int
	table.Each(func(i int, r Route[*robot]) {
		seen = append(seen, i)
		if r.Name != want[i] {
			t.Fatalf("Each(%d) = %q, want %q", i, r.Name, want[i])
		}
	})
	if len(seen) != 3 {
		t.Fatalf("Each visited %d routes", len(seen))
	}
	if idx, ok := table.Index(" right "); !ok || idx != 1 {
		t.Fatalf("Index(right) = %d, %v", idx, ok)
	}
	if _, ok := table.Index("middle"); ok {
		t.Fatalf("unexpected match for unknown route")
	}
}

func TestTableAtBoundsChecked(t *testing.T) {
	table := MustTable(New("Left", leftSide))
	if _, err := table.At(1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("At(1) error = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := table.At(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("At(-1) error = %v, want ErrIndexOutOfRange", err)
	}
	r, err := table.At(0)
	if err != nil {
		t.Fatalf("At(0): %v", err)
	}
	bot := &robot{}
	if err := r.Run(context.Background(), bot); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(bot.ran) != 1 || bot.ran[0] != "left" {
		t.Fatalf("unexpected run log %v", bot.ran)
	}
}

func TestNamedUsesFunctionSymbol(t *testing.T) {
	r := Named(rightSide)
	if r.Name != "rightSide" {
		t.Fatalf("Named name = %q, want rightSide", r.Name)
	}
}

func TestMustTablePanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustTable[*robot]()
}
