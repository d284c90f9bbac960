package bot

import (
	"reflect"
	"testing"
)

func TestParseNonCommand(t *testing.T) {
	cases := []string{
		"hello there",
		"",
		"help me please",
		" #leading space",
	}
	for _, text := range cases {
		if inv := Parse("#", text); inv != nil {
			t.Errorf("Parse(%q) = %+v, want nil", text, inv)
		}
	}
}

func TestParseCommand(t *testing.T) {
	inv := Parse("#", "#Ping")
	if inv == nil {
		t.Fatal("Parse returned nil for a command")
	}
	if inv.Command != "ping" {
		t.Errorf("command = %q, want %q (lower-cased)", inv.Command, "ping")
	}
	if len(inv.Args) != 0 {
		t.Errorf("args = %v, want empty", inv.Args)
	}
}

func TestParseArgs(t *testing.T) {
	inv := Parse("#", "#song  Bohemian   Rhapsody ")
	if inv == nil {
		t.Fatal("Parse returned nil")
	}
	want := []string{"Bohemian", "Rhapsody"}
	if !reflect.DeepEqual(inv.Args, want) {
		t.Errorf("args = %v, want %v", inv.Args, want)
	}
}

func TestParseBarePrefix(t *testing.T) {
	inv := Parse("#", "#")
	if inv == nil {
		t.Fatal("bare prefix should still parse as a command message")
	}
	if inv.Command != "" {
		t.Errorf("command = %q, want empty", inv.Command)
	}
	if inv.Args == nil || len(inv.Args) != 0 {
		t.Errorf("args = %v, want empty non-nil slice", inv.Args)
	}
}

func TestParseCustomPrefix(t *testing.T) {
	if inv := Parse("!", "#ping"); inv != nil {
		t.Errorf("wrong prefix should not parse, got %+v", inv)
	}
	if inv := Parse("!", "!ping"); inv == nil || inv.Command != "ping" {
		t.Errorf("custom prefix should parse, got %+v", inv)
	}
}

func TestSplitList(t *testing.T) {
	args := []string{"favorite", "color?", "|", "red", "|", " blue ", "|", "", "|"}
	got := SplitList(args)
	want := []string{"favorite color?", "red", "blue"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList = %v, want %v", got, want)
	}
}

func TestSplitListNoSeparator(t *testing.T) {
	got := SplitList([]string{"just", "words"})
	want := []string{"just words"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList = %v, want %v", got, want)
	}
}
