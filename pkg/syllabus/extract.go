// Package syllabus extracts plain text from uploaded syllabus files so it
// can be used as a plan's subject details.
package syllabus

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	pdfx "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

const (
	MaxUploadBytes = 10 * 1024 * 1024
	MaxPages       = 30
	MaxChars       = 20000
)

var ErrUnsupportedType = errors.New("unsupported syllabus file type")

// Extract returns the text content of data. The format is chosen by file
// extension, falling back to content sniffing.
func Extract(filename string, data []byte) (string, error) {
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("syllabus too large: %d bytes > limit %d", len(data), MaxUploadBytes)
	}

	var text string
	var err error
	switch detectKind(filename, data) {
	case "pdf":
		text, err = extractPDF(data)
	case "html":
		text, err = extractHTML(data)
	case "text":
		if !utf8.Valid(data) {
			return "", ErrUnsupportedType
		}
		text = compactWhitespace(string(data))
	default:
		return "", ErrUnsupportedType
	}
	if err != nil {
		return "", err
	}

	if len(text) > MaxChars {
		text = truncateUTF8(text, MaxChars)
	}
	return text, nil
}

func detectKind(filename string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf"
	case ".html", ".htm":
		return "html"
	case ".txt", ".md", ".markdown", ".csv":
		return "text"
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return "pdf"
	}
	head := strings.ToLower(string(data[:min(len(data), 512)]))
	if strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") {
		return "html"
	}
	if utf8.Valid(data) {
		return "text"
	}
	return ""
}

// extractPDF writes data to a temp file because the pdf reader expects a path.
func extractPDF(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "syllabus-*.pdf")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	f, r, err := pdfx.Open(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	pages := r.NumPage()
	if pages > MaxPages {
		pages = MaxPages
	}

	var out strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(txt); t != "" {
			out.WriteString(t)
			out.WriteString("\n\n")
		}
	}
	return compactWhitespace(out.String()), nil
}

func extractHTML(data []byte) (string, error) {
	node, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	var b strings.Builder
	extractText(node, &b, false)
	return compactWhitespace(b.String()), nil
}

func extractText(n *html.Node, b *strings.Builder, inHidden bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "head":
			inHidden = true
		case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n")
		}
	}
	if !inHidden && n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, b, inHidden)
	}
}

func compactWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.Join(strings.Fields(ln), " "); ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}

func truncateUTF8(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
