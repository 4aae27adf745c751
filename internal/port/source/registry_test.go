package source_test

import (
	"testing"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// stubProvider embeds the interface so only the methods under test
// need implementations.
type stubProvider struct {
	source.Provider
	name string
}

func (p *stubProvider) Name() string { return p.name }

func TestRegisterAndNew(t *testing.T) {
	source.Register("test-forge", func(_ *forgehttp.Client) (source.Provider, error) {
		return &stubProvider{name: "test-forge"}, nil
	})

	p, err := source.New("test-forge", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "test-forge" {
		t.Fatalf("expected test-forge, got %s", p.Name())
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := source.New("nonexistent", nil)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestAvailable(t *testing.T) {
	names := source.Available()
	found := false
	for _, n := range names {
		if n == "test-forge" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected test-forge in available providers")
	}
}

func TestAccessLevelName(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{50, "owner"}, {40, "maintainer"}, {30, "developer"},
		{20, "reporter"}, {10, "guest"}, {5, "minimal"}, {60, "owner"},
	}
	for _, tt := range tests {
		if got := source.AccessLevelName(tt.level); got != tt.want {
			t.Errorf("AccessLevelName(%d) = %s, want %s", tt.level, got, tt.want)
		}
	}
}
