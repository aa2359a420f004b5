// Package ingest loads manuscripts from disk. Plain text and markdown
// pass through with their line structure intact, so chapter headings,
// scene-break markers, and blank-line runs survive for segmentation.
// DOCX and PDF sources are flattened to text with paragraph breaks
// preserved as blank lines.
package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Source is a manuscript ready for analysis.
type Source struct {
	Title  string
	Path   string
	Format string
	Text   string
}

// Load reads path and extracts its text. The format is chosen by file
// extension; unknown extensions are rejected rather than guessed.
func Load(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manuscript: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var text, format string
	switch ext {
	case ".txt", ".text":
		format = "text"
		text = string(raw)
	case ".md", ".markdown":
		format = "markdown"
		text = string(raw)
	case ".docx":
		format = "docx"
		text, err = extractDOCX(raw)
	case ".pdf":
		format = "pdf"
		text, err = extractPDF(path)
	default:
		return nil, fmt.Errorf("unsupported manuscript type %q", ext)
	}
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Source{
		Title:  title,
		Path:   path,
		Format: format,
		Text:   text,
	}, nil
}

func extractDOCX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open docx zip: %w", err)
	}

	var xmlData []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, openErr := f.Open()
			if openErr != nil {
				return "", fmt.Errorf("open document.xml: %w", openErr)
			}
			defer rc.Close()
			xmlData, err = io.ReadAll(rc)
			if err != nil {
				return "", fmt.Errorf("read document.xml: %w", err)
			}
			break
		}
	}
	if len(xmlData) == 0 {
		return "", fmt.Errorf("word/document.xml not found")
	}

	decoder := xml.NewDecoder(bytes.NewReader(xmlData))
	var b strings.Builder
	inText := false
	for {
		tok, tokenErr := decoder.Token()
		if tokenErr == io.EOF {
			break
		}
		if tokenErr != nil {
			return "", fmt.Errorf("decode document.xml: %w", tokenErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
			// Word paragraphs become blank-line-separated paragraphs.
			if t.Name.Local == "p" && b.Len() > 0 {
				b.WriteString("\n\n")
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.WriteString(string(t))
			}
		}
	}
	return tidyLines(b.String()), nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no extractable text found in pdf")
	}
	return tidyLines(b.String()), nil
}

// tidyLines collapses runs of spaces inside each line while keeping the
// line and blank-line structure untouched.
func tidyLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(out, "\n")
}
