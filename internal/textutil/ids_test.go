package textutil_test

import (
	"sort"
	"strings"
	"testing"

	"flashbulb/internal/textutil"
)

func TestIsDigits(t *testing.T) {
	cases := map[string]bool{
		"":       false,
		"0":      true,
		"123456": true,
		"12a":    false,
		"١٢":     false,
		" 1":     false,
	}
	for input, want := range cases {
		if got := textutil.IsDigits(input); got != want {
			t.Fatalf("IsDigits(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLessIDOrdersNumericIDsNumerically(t *testing.T) {
	ids := []string{"100", "9", "abc", "20", "3"}
	sort.Slice(ids, func(i, j int) bool { return textutil.LessID(ids[i], ids[j]) })
	if got := strings.Join(ids, ","); got != "3,9,20,100,abc" {
		t.Fatalf("unexpected order %s", got)
	}
}
