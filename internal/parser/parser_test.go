package parser

import (
	"reflect"
	"testing"
)

func TestParse_FrontMatter(t *testing.T) {
	content := "---\ntitle: My Note\ntags:\n  - go\n  - notes\n---\n# Heading\n\nBody text."
	fm, body := Parse(content)
	if fm == nil {
		t.Fatal("expected front-matter")
	}
	if got := fm["title"].Text(); got != "My Note" {
		t.Errorf("title: got %q", got)
	}
	if body != "# Heading\n\nBody text." {
		t.Errorf("body: got %q", body)
	}
}

func TestParse_NoFrontMatter(t *testing.T) {
	content := "just a body"
	fm, body := Parse(content)
	if fm != nil {
		t.Errorf("expected nil front-matter, got %v", fm)
	}
	if body != content {
		t.Errorf("body: got %q", body)
	}
}

func TestParse_UnclosedDelimiter(t *testing.T) {
	content := "---\ntitle: broken\nno closing"
	fm, body := Parse(content)
	if fm != nil || body != content {
		t.Errorf("unclosed front-matter should yield full body, got fm=%v body=%q", fm, body)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	content := "---\n\t:bad\n---\nbody"
	fm, body := Parse(content)
	if fm != nil || body != content {
		t.Errorf("invalid YAML should yield full body, got fm=%v body=%q", fm, body)
	}
}

func TestTitle_Priority(t *testing.T) {
	fm, _ := Parse("---\nname: The Name\nproject: The Project\ntitle: The Title\n---\nx")
	if got := Title(fm, "notes/file.md"); got != "The Name" {
		t.Errorf("got %q, want name field first", got)
	}
	fm, _ = Parse("---\nproject: The Project\ntitle: The Title\n---\nx")
	if got := Title(fm, "notes/file.md"); got != "The Project" {
		t.Errorf("got %q, want project before title", got)
	}
	if got := Title(nil, "notes/My File.md"); got != "My File" {
		t.Errorf("got %q, want filename stem fallback", got)
	}
}

func TestTags(t *testing.T) {
	fm, _ := Parse("---\ntags:\n  - go\n  - vault\n---\nx")
	if got := Tags(fm); !reflect.DeepEqual(got, []string{"go", "vault"}) {
		t.Errorf("list tags: got %v", got)
	}
	fm, _ = Parse("---\ntags: solo\n---\nx")
	if got := Tags(fm); !reflect.DeepEqual(got, []string{"solo"}) {
		t.Errorf("scalar tag: got %v", got)
	}
	if got := Tags(nil); got != nil {
		t.Errorf("absent tags: got %v", got)
	}
}

func TestExtractWikiLinks(t *testing.T) {
	content := "See [[Target One]] and [[Target Two|an alias]], plus [[Target One]] again."
	links := ExtractWikiLinks(content)
	if len(links) != 2 {
		t.Fatalf("got %d links, want 2: %v", len(links), links)
	}
	if _, ok := links["Target One"]; !ok {
		t.Error("missing Target One")
	}
	if _, ok := links["Target Two"]; !ok {
		t.Error("aliased link should resolve to target")
	}
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"notes/work/Project Plan.md": "Project Plan",
		"top.markdown":               "top",
		"noext":                      "noext",
	}
	for in, want := range cases {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q): got %q, want %q", in, got, want)
		}
	}
}
