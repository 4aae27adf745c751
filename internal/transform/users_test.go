package transform

import (
	"testing"

	"github.com/Strob0t/ForgeShift/internal/port/source"
)

func TestUsersEmailWinsOverUsername(t *testing.T) {
	src := []source.User{{Username: "ajones", Name: "Alice Jones", Email: "alice@example.com"}}
	dst := []DestUser{
		{Login: "ajones", Email: "someone-else@example.com"},
		{Login: "alice-j", Email: "alice@example.com"},
	}

	res := Users(src, dst)
	if !res.Success {
		t.Fatalf("errors: %v", res.Errors)
	}
	mapping := res.Data.(UserMapping)
	if len(mapping.Matches) != 1 {
		t.Fatalf("matches = %d", len(mapping.Matches))
	}
	m := mapping.Matches[0]
	if m.Dest != "alice-j" || m.Method != "email" || m.Confidence != "high" {
		t.Errorf("match = %+v", m)
	}
}

func TestUsersUsernameExact(t *testing.T) {
	src := []source.User{{Username: "BWayne"}}
	dst := []DestUser{{Login: "bwayne"}}

	res := Users(src, dst)
	mapping := res.Data.(UserMapping)
	if len(mapping.Matches) != 1 || mapping.Matches[0].Method != "username" {
		t.Fatalf("mapping = %+v", mapping)
	}
	if mapping.Matches[0].Confidence != "high" {
		t.Errorf("confidence = %s", mapping.Matches[0].Confidence)
	}
}

func TestUsersUsernameFuzzy(t *testing.T) {
	src := []source.User{{Username: "jsmith2"}}
	dst := []DestUser{{Login: "jsmith"}, {Login: "unrelated"}}

	res := Users(src, dst)
	mapping := res.Data.(UserMapping)
	if len(mapping.Matches) != 1 {
		t.Fatalf("no match: %+v", mapping)
	}
	m := mapping.Matches[0]
	if m.Dest != "jsmith" || m.Method != "username_fuzzy" || m.Confidence != "medium" {
		t.Errorf("match = %+v", m)
	}
	if m.Score < usernameFuzzyFloor {
		t.Errorf("score = %f", m.Score)
	}
}

func TestUsersNameFuzzyLowConfidence(t *testing.T) {
	src := []source.User{{Username: "cv", Name: "Carol Vasquez"}}
	dst := []DestUser{{Login: "carol-v", Name: "Carol Vasques"}}

	res := Users(src, dst)
	mapping := res.Data.(UserMapping)
	if len(mapping.Matches) != 1 {
		t.Fatalf("no match: %+v", mapping)
	}
	m := mapping.Matches[0]
	if m.Method != "name_fuzzy" || m.Confidence != "low" {
		t.Errorf("match = %+v", m)
	}
}

func TestUsersUnmapped(t *testing.T) {
	src := []source.User{
		{Username: "zzz", Name: "Completely Different"},
		{Username: "ajones", Email: "alice@example.com"},
	}
	dst := []DestUser{{Login: "ajones", Email: "alice@example.com"}}

	res := Users(src, dst)
	mapping := res.Data.(UserMapping)
	if len(mapping.Unmapped) != 1 || mapping.Unmapped[0] != "zzz" {
		t.Errorf("unmapped = %v", mapping.Unmapped)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning about unmapped users")
	}
	if res.Metadata["unmapped"] != 1 {
		t.Errorf("metadata unmapped = %v", res.Metadata["unmapped"])
	}
}

func TestUsersBelowFloorNotMatched(t *testing.T) {
	// "dave" vs "mike" is well under the username floor.
	src := []source.User{{Username: "dave"}}
	dst := []DestUser{{Login: "mike"}}

	res := Users(src, dst)
	mapping := res.Data.(UserMapping)
	if len(mapping.Matches) != 0 {
		t.Errorf("unexpected match: %+v", mapping.Matches)
	}
}

func TestUserMappingToMap(t *testing.T) {
	mapping := UserMapping{Matches: []UserMatch{
		{Source: "a", Dest: "a1"},
		{Source: "b", Dest: "b1"},
	}}
	m := mapping.ToMap()
	if m["a"] != "a1" || m["b"] != "b1" {
		t.Errorf("map = %v", m)
	}
}
