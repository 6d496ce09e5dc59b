package util

import (
	"reflect"
	"testing"
)

func TestParseWindows(t *testing.T) {
	got, err := ParseWindows(" 30, 90,,180 ", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int{30, 90, 180}) {
		t.Fatalf("unexpected windows %v", got)
	}

	def := []int{7}
	got, err = ParseWindows("", def)
	if err != nil || !reflect.DeepEqual(got, def) {
		t.Fatalf("expected default, got %v %v", got, err)
	}

	if _, err := ParseWindows("30,abc", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("x", 5) != 5 || ParseIntDefault("12", 5) != 12 {
		t.Fatalf("unexpected parse")
	}
}
