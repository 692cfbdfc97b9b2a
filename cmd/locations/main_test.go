package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smukkama/openweather-panel/internal/geocode"
	"github.com/smukkama/openweather-panel/internal/location"
)

type fakeSearcher struct {
	results []geocode.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]geocode.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func seeded() *location.MemoryStore {
	return location.NewMemoryStore(location.List{Locations: []location.Location{
		{Latitude: 55.7522, Longitude: 37.6156, Name: "Moscow", Provider: location.ProviderOpenWeatherMap},
		{Latitude: 52.52, Longitude: 13.405, Name: "Berlin", Provider: location.ProviderOpenWeatherMap},
	}, Active: 1})
}

func TestRun_List(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"list"}, seeded(), &fakeSearcher{}, &out); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", out.String())
	}
	if !strings.HasPrefix(lines[1], "* 1  Berlin") {
		t.Errorf("Active entry not marked: %q", lines[1])
	}
	if strings.HasPrefix(lines[0], "*") {
		t.Errorf("Inactive entry marked: %q", lines[0])
	}
}

func TestRun_ListEmpty(t *testing.T) {
	var out bytes.Buffer
	store := location.NewMemoryStore(location.List{})
	if err := run(context.Background(), []string{"list"}, store, &fakeSearcher{}, &out); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "No locations" {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestRun_Search(t *testing.T) {
	searcher := &fakeSearcher{results: []geocode.Result{
		{DisplayName: "Paris, France", Lat: "48.8566", Lon: "2.3522"},
	}}
	var out bytes.Buffer
	if err := run(context.Background(), []string{"search", "Paris", "France"}, seeded(), searcher, &out); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "Paris France" {
		t.Errorf("Unexpected queries %v", searcher.queries)
	}
	if !strings.Contains(out.String(), "Paris, France  (48.8566,2.3522)") {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestRun_AddExplicit(t *testing.T) {
	store := seeded()
	searcher := &fakeSearcher{}
	var out bytes.Buffer

	if err := run(context.Background(), []string{"add", "48.8566,2.3522>Paris"}, store, searcher, &out); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(searcher.queries) != 0 {
		t.Error("Explicit entry should not be searched")
	}

	list, _ := store.Load(context.Background())
	if list.Len() != 3 {
		t.Fatalf("Expected 3 locations, got %d", list.Len())
	}
	added := list.Locations[2]
	if added.Name != "Paris" || added.Latitude != 48.8566 || added.Provider != location.ProviderOpenWeatherMap {
		t.Errorf("Unexpected location %+v", added)
	}
	if list.ActiveIndex() != 1 {
		t.Errorf("Add should not change the active index, got %d", list.ActiveIndex())
	}
}

func TestRun_AddFromSearch(t *testing.T) {
	store := seeded()
	searcher := &fakeSearcher{results: []geocode.Result{
		{DisplayName: "Oslo, Norway", Lat: "59.91", Lon: "10.75"},
		{DisplayName: "Oslo, Minnesota", Lat: "48.19", Lon: "-97.13"},
	}}

	if err := run(context.Background(), []string{"add", "Oslo"}, store, searcher, &bytes.Buffer{}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	list, _ := store.Load(context.Background())
	if got := list.Locations[list.Len()-1]; got.Name != "Oslo, Norway" || got.Longitude != 10.75 {
		t.Errorf("Expected first hit to be added, got %+v", got)
	}
}

func TestRun_AddErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		searcher *fakeSearcher
	}{
		{"no results", []string{"add", "Atlantis"}, &fakeSearcher{}},
		{"search failure", []string{"add", "Oslo"}, &fakeSearcher{err: errors.New("timeout")}},
		{"bad coordinate", []string{"add", "north>Nowhere"}, &fakeSearcher{}},
		{"two entries", []string{"add", "1,2>A && 3,4>B"}, &fakeSearcher{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seeded()
			if err := run(context.Background(), tt.args, store, tt.searcher, &bytes.Buffer{}); err == nil {
				t.Fatal("Expected error")
			}
			list, _ := store.Load(context.Background())
			if list.Len() != 2 {
				t.Errorf("Store modified on error: %d locations", list.Len())
			}
		})
	}
}

func TestRun_Edit(t *testing.T) {
	store := seeded()

	if err := run(context.Background(), []string{"edit", "0", "Moskva"}, store, &fakeSearcher{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if err := run(context.Background(), []string{"edit", "1", "Potsdam", "52.39,13.06"}, store, &fakeSearcher{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	list, _ := store.Load(context.Background())
	if list.Locations[0].Name != "Moskva" || list.Locations[0].Latitude != 55.7522 {
		t.Errorf("Rename failed: %+v", list.Locations[0])
	}
	if list.Locations[1].Name != "Potsdam" || list.Locations[1].Latitude != 52.39 || list.Locations[1].Longitude != 13.06 {
		t.Errorf("Move failed: %+v", list.Locations[1])
	}

	if err := run(context.Background(), []string{"edit", "5", "X"}, store, &fakeSearcher{}, &bytes.Buffer{}); err == nil {
		t.Error("Expected out of range error")
	}
	if err := run(context.Background(), []string{"edit", "0", "X", "not-a-coordinate"}, store, &fakeSearcher{}, &bytes.Buffer{}); err == nil {
		t.Error("Expected coordinate error")
	}
}

func TestRun_RemoveAndSelect(t *testing.T) {
	store := seeded()

	if err := run(context.Background(), []string{"select", "0"}, store, &fakeSearcher{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	list, _ := store.Load(context.Background())
	if list.ActiveIndex() != 0 {
		t.Errorf("Expected active 0, got %d", list.ActiveIndex())
	}

	var out bytes.Buffer
	if err := run(context.Background(), []string{"remove", "1"}, store, &fakeSearcher{}, &out); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !strings.Contains(out.String(), "Removed Berlin") {
		t.Errorf("Unexpected output %q", out.String())
	}
	list, _ = store.Load(context.Background())
	if list.Len() != 1 || list.Locations[0].Name != "Moscow" {
		t.Errorf("Unexpected list %+v", list)
	}

	if err := run(context.Background(), []string{"select", "3"}, store, &fakeSearcher{}, &bytes.Buffer{}); err == nil {
		t.Error("Expected out of range error")
	}
	if err := run(context.Background(), []string{"remove", "x"}, store, &fakeSearcher{}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Errorf("Expected usage error, got %v", err)
	}
}

func TestRun_ImportSkipsInvalid(t *testing.T) {
	store := location.NewMemoryStore(location.List{})
	var out bytes.Buffer

	err := run(context.Background(), []string{"import", "1,2>A>0 && garbage && 3,4>B>0"}, store, &fakeSearcher{}, &out)
	if !errors.Is(err, location.ErrInvalidLocation) {
		t.Errorf("Expected invalid location error, got %v", err)
	}

	list, _ := store.Load(context.Background())
	if list.Len() != 2 || list.Locations[1].Name != "B" {
		t.Errorf("Valid entries not imported: %+v", list)
	}
	if !strings.Contains(out.String(), `Skipped invalid entry "garbage"`) {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestRun_Export(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"export"}, seeded(), &fakeSearcher{}, &out); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	want := "55.7522,37.6156>Moscow>0 && 52.52,13.405>Berlin>0"
	if strings.TrimSpace(out.String()) != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestRun_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"frobnicate"}, {"search"}, {"edit", "0"}} {
		if err := run(context.Background(), args, seeded(), &fakeSearcher{}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
			t.Errorf("run(%v) = %v, want usage error", args, err)
		}
	}
}
