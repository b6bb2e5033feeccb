// Package document manages uploaded HR policy documents: text extraction,
// sentence-aware chunking, and a JSON-persisted chunk store that the
// retrieval layer searches. A filesystem watcher keeps the store in sync
// with the upload directory.
package document

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"peopleops/internal/logging"
)

// ErrUnsupported indicates a file extension with no text extractor.
var ErrUnsupported = fmt.Errorf("unsupported document type")

// SupportedExtensions lists the file types the extractor handles.
var SupportedExtensions = []string{".txt", ".md", ".csv", ".html", ".htm"}

// Supported reports whether a filename has an extractable extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ExtractText reads a document file and returns its plain text content.
// Unsupported extensions return ErrUnsupported so callers can warn and skip.
func ExtractText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		return string(data), nil
	case ".csv":
		return extractCSV(path)
	case ".html", ".htm":
		return extractHTML(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

// extractCSV renders each row as "header: value" lines so column context
// survives into the chunk text.
func extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged exports are common

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return "", nil
	}

	headers := records[0]
	var b strings.Builder
	for _, row := range records[1:] {
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if i < len(headers) && strings.TrimSpace(headers[i]) != "" {
				fmt.Fprintf(&b, "%s: %s. ", strings.TrimSpace(headers[i]), cell)
			} else {
				fmt.Fprintf(&b, "%s. ", cell)
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// extractHTML strips tags and returns the visible text, skipping script
// and style subtrees.
func extractHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		// Block elements end a line so headings don't glue to body text.
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
				b.WriteString("\n")
			}
		}
	}
	walk(doc)

	logging.DocsDebug("Extracted %d chars of text from %s", b.Len(), filepath.Base(path))
	return b.String(), nil
}
