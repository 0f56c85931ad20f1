package urlparse

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseBucketsValidAndDuplicates(t *testing.T) {
	t.Parallel()

	text := "https://a.com/x\nhttps://a.com/x\nhttps://a.com/y"
	res := Parse(text)

	if want := []string{"https://a.com/x", "https://a.com/y"}; !reflect.DeepEqual(res.Valid, want) {
		t.Fatalf("valid = %v, want %v", res.Valid, want)
	}
	if want := []string{"https://a.com/x"}; !reflect.DeepEqual(res.Duplicates, want) {
		t.Fatalf("duplicates = %v, want %v", res.Duplicates, want)
	}
	if len(res.Invalid) != 0 {
		t.Fatalf("unexpected invalid entries: %v", res.Invalid)
	}
	if res.Lines != 3 {
		t.Fatalf("lines = %d, want 3", res.Lines)
	}
}

func TestParseAcceptsBulletsMarkdownAndHTML(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"- https://b.example/z",
		"* http://c.example/d",
		"[good read](https://d.example/p)",
		`pasted <a href="https://e.example/f">link</a>`,
	}, "\n")

	res := Parse(text)
	want := []string{
		"https://b.example/z",
		"http://c.example/d",
		"https://d.example/p",
		"https://e.example/f",
	}
	if !reflect.DeepEqual(res.Valid, want) {
		t.Fatalf("valid = %v, want %v", res.Valid, want)
	}
	if len(res.Invalid) != 0 || len(res.Duplicates) != 0 {
		t.Fatalf("unexpected rejects: invalid=%v duplicates=%v", res.Invalid, res.Duplicates)
	}
}

func TestParseReportsInvalidLinesWithReason(t *testing.T) {
	t.Parallel()

	text := "not a url\nftp://files.example/a\nexample.com\nhttp://\nhttps://ok.example/x"
	res := Parse(text)

	if len(res.Valid) != 1 || res.Valid[0] != "https://ok.example/x" {
		t.Fatalf("unexpected valid set: %v", res.Valid)
	}
	if len(res.Invalid) != 4 {
		t.Fatalf("expected 4 invalid lines, got %v", res.Invalid)
	}
	for _, inv := range res.Invalid {
		if inv.Reason == "" {
			t.Fatalf("invalid line %q has empty reason", inv.Line)
		}
	}
	if res.Invalid[0].Line != "not a url" {
		t.Fatalf("first invalid line = %q", res.Invalid[0].Line)
	}
}

func TestParseStripsWrappingPunctuation(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"read https://a.example/path.":               "https://a.example/path",
		"(https://b.example/q)":                      "https://b.example/q",
		"<https://c.example/r>":                      "https://c.example/r",
		"https://d.example/s,":                       "https://d.example/s",
		"https://en.example/wiki/Go_(language)":      "https://en.example/wiki/Go_(language)",
		"quoted \"https://f.example/t\" inline text": "https://f.example/t",
	}
	for in, want := range cases {
		res := Parse(in)
		if len(res.Valid) != 1 || res.Valid[0] != want {
			t.Fatalf("Parse(%q).Valid = %v, want [%s]", in, res.Valid, want)
		}
	}
}

func TestParseExtractsMultipleURLsPerLine(t *testing.T) {
	t.Parallel()

	res := Parse("see https://a.example/1 and https://b.example/2 too")
	want := []string{"https://a.example/1", "https://b.example/2"}
	if !reflect.DeepEqual(res.Valid, want) {
		t.Fatalf("valid = %v, want %v", res.Valid, want)
	}
}

func TestParseDedupesOnNormalizedForm(t *testing.T) {
	t.Parallel()

	text := "https://A.example/x/\nhttps://a.example/x\nhttps://a.example/X"
	res := Parse(text)

	// host casing and the trailing slash do not distinguish URLs,
	// path casing does
	want := []string{"https://A.example/x/", "https://a.example/X"}
	if !reflect.DeepEqual(res.Valid, want) {
		t.Fatalf("valid = %v, want %v", res.Valid, want)
	}
	if len(res.Duplicates) != 1 || res.Duplicates[0] != "https://a.example/x" {
		t.Fatalf("duplicates = %v", res.Duplicates)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	t.Parallel()

	text := "https://a.example/1\njunk line\n- https://b.example/2\nhttps://a.example/1"
	first := Parse(text)
	second := Parse(text)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-parse differs: %+v vs %+v", first, second)
	}
	reparse := Parse(strings.Join(first.Valid, "\n"))
	if !reflect.DeepEqual(reparse.Valid, first.Valid) {
		t.Fatalf("valid set not stable: %v vs %v", reparse.Valid, first.Valid)
	}
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   \n\t  \n"} {
		res := Parse(text)
		if len(res.Valid) != 0 || len(res.Invalid) != 0 || len(res.Duplicates) != 0 || res.Lines != 0 {
			t.Fatalf("expected zero result for %q, got %+v", text, res)
		}
	}
}

func TestEstimateDuration(t *testing.T) {
	t.Parallel()

	politeness := 15 * time.Second
	if got := EstimateDuration(0, politeness); got != 0 {
		t.Fatalf("estimate for 0 urls = %v", got)
	}
	if got := EstimateDuration(1, politeness); got != 2*time.Second {
		t.Fatalf("estimate for 1 url = %v", got)
	}
	if got := EstimateDuration(5, politeness); got != 70*time.Second {
		t.Fatalf("estimate for 5 urls = %v", got)
	}
}
