package crawler

import (
	"reflect"
	"testing"
)

// TestAnalyzeTitle tests title extraction.
func TestAnalyzeTitle(t *testing.T) {
	t.Parallel()

	t.Run("extracts and trims first title", func(t *testing.T) {
		t.Parallel()

		a, err := Analyze(`<html><head><title>
			Home </title><title>Second</title></head></html>`, "http://x.test/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Signals.Title == nil || *a.Signals.Title != "Home" {
			t.Errorf("expected title 'Home', got %v", a.Signals.Title)
		}
	})

	t.Run("missing title is nil", func(t *testing.T) {
		t.Parallel()

		a, err := Analyze(`<html><body><p>No title</p></body></html>`, "http://x.test/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Signals.Title != nil {
			t.Errorf("expected nil title, got %q", *a.Signals.Title)
		}
	})
}

// TestAnalyzeDescription tests missing versus empty meta descriptions.
func TestAnalyzeDescription(t *testing.T) {
	t.Parallel()

	empty := ""
	text := "About us"

	testCases := []struct {
		name     string
		html     string
		expected *string
	}{
		{"missing", `<html><head></head></html>`, nil},
		{"empty content", `<html><head><meta name="description" content=""></head></html>`, &empty},
		{"no content attribute", `<html><head><meta name="description"></head></html>`, nil},
		{"present", `<html><head><meta name="description" content="About us"></head></html>`, &text},
		{"first wins", `<html><head><meta name="description" content="About us"><meta name="description" content="Other"></head></html>`, &text},
		{"other meta ignored", `<html><head><meta name="keywords" content="a,b"></head></html>`, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a, err := Analyze(tc.html, "http://x.test/")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := a.Signals.MetaDescription
			switch {
			case tc.expected == nil && got != nil:
				t.Errorf("expected nil, got %q", *got)
			case tc.expected != nil && got == nil:
				t.Errorf("expected %q, got nil", *tc.expected)
			case tc.expected != nil && *got != *tc.expected:
				t.Errorf("expected %q, got %q", *tc.expected, *got)
			}
		})
	}
}

// TestAnalyzeCanonical tests canonical extraction and resolution.
func TestAnalyzeCanonical(t *testing.T) {
	t.Parallel()

	t.Run("resolves relative href", func(t *testing.T) {
		t.Parallel()

		a, err := Analyze(`<html><head><link rel="canonical" href="/about"></head></html>`, "http://x.test/about?ref=nav")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Signals.Canonical == nil || *a.Signals.Canonical != "http://x.test/about" {
			t.Errorf("expected resolved canonical, got %v", a.Signals.Canonical)
		}
	})

	t.Run("keeps absolute href", func(t *testing.T) {
		t.Parallel()

		a, err := Analyze(`<link rel="canonical" href="https://www.x.test/">`, "http://x.test/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Signals.Canonical == nil || *a.Signals.Canonical != "https://www.x.test/" {
			t.Errorf("got %v", a.Signals.Canonical)
		}
	})

	t.Run("missing canonical is nil", func(t *testing.T) {
		t.Parallel()

		a, err := Analyze(`<link rel="stylesheet" href="/s.css">`, "http://x.test/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Signals.Canonical != nil {
			t.Errorf("expected nil, got %q", *a.Signals.Canonical)
		}
	})
}

// TestAnalyzeMissingAlt tests that only absent alt attributes are counted.
func TestAnalyzeMissingAlt(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<img src="1.png" alt="one">
		<img src="2.png">
		<img src="3.png" alt="">
		<img src="4.png" alt="four">
		<img src="5.png">
	</body></html>`

	a, err := Analyze(html, "http://x.test/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Signals.MissingAltCount != 2 {
		t.Errorf("expected 2 images missing alt, got %d", a.Signals.MissingAltCount)
	}
}

// TestAnalyzeLinks tests link resolution and filtering.
func TestAnalyzeLinks(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/a">A</a>
		<a href="b">B</a>
		<a href="//other.test/c">C</a>
		<a href="https://x.test/d#frag">D</a>
		<a href="javascript:void(0)">JS</a>
		<a href="mailto:me@x.test">Mail</a>
		<a href="tel:123">Tel</a>
		<a href="#">Top</a>
		<a href="http://[::1">Broken</a>
		<a>No href</a>
		<a href="ftp://x.test/file">FTP</a>
		<a href="../e">E</a>
	</body></html>`

	a, err := Analyze(html, "http://x.test/dir/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		"http://x.test/a",
		"http://x.test/dir/b",
		"http://other.test/c",
		"https://x.test/d#frag",
		"http://x.test/e",
	}
	if !reflect.DeepEqual(a.Links, expected) {
		t.Errorf("got %q, expected %q", a.Links, expected)
	}
}

// TestAnalyzeInvalidPageURL tests the only error case.
func TestAnalyzeInvalidPageURL(t *testing.T) {
	t.Parallel()

	if _, err := Analyze("<html></html>", "http://[::1"); err == nil {
		t.Error("expected error for invalid page URL")
	}
}

// TestAnalyzeMalformedHTML tests that broken markup still yields signals.
func TestAnalyzeMalformedHTML(t *testing.T) {
	t.Parallel()

	a, err := Analyze(`<title>Broken<img src=x><a href="/next">next`, "http://x.test/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Signals.Title == nil {
		t.Fatal("expected a title")
	}
	if len(a.Links) > 1 {
		t.Errorf("unexpected links %q", a.Links)
	}
}
