package syllabus

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractHTML(t *testing.T) {
	doc := `<!doctype html><html><head><title>ignored</title><style>p{}</style></head>
<body><h1>Calculus I</h1><ul><li>Limits</li><li>Derivatives</li></ul>
<script>var x = 1;</script><p>Final  exam   in week 12</p></body></html>`

	got, err := Extract("syllabus.html", []byte(doc))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Calculus I\nLimits\nDerivatives\nFinal exam in week 12"
	if got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
}

func TestExtractPlainText(t *testing.T) {
	got, err := Extract("notes.md", []byte("# Week 1\r\n\n\tSets   and logic\n"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "# Week 1\nSets and logic" {
		t.Errorf("Extract = %q", got)
	}
}

func TestExtractSniffsHTMLWithoutExtension(t *testing.T) {
	got, err := Extract("upload", []byte("<html><body><p>Topic A</p></body></html>"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Topic A" {
		t.Errorf("Extract = %q", got)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	_, err := Extract("image.png", []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe, 0x00})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestExtractTruncates(t *testing.T) {
	long := strings.Repeat("é", MaxChars)
	got, err := Extract("long.txt", []byte(long))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) > MaxChars {
		t.Errorf("len = %d, want <= %d", len(got), MaxChars)
	}
	if !strings.HasSuffix(got, "é") {
		t.Errorf("truncation split a rune")
	}
}

func TestExtractTooLarge(t *testing.T) {
	if _, err := Extract("big.txt", make([]byte, MaxUploadBytes+1)); err == nil {
		t.Fatal("expected size error")
	}
}
