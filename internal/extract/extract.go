// Package extract reads the text content of uploaded documents.
package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupported is returned for file types that cannot be processed.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrUnreadable is returned when a supported file cannot be decoded.
	ErrUnreadable = errors.New("unreadable document")
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// Kind is the document format handled by File.
type Kind string

const (
	KindText Kind = "text"
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
)

// Detect picks the document kind from the file extension, falling back to
// content sniffing when the extension is missing or unknown.
func Detect(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md":
		return KindText, nil
	case ".pdf":
		return KindPDF, nil
	case ".docx":
		return KindDOCX, nil
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	for p := m; p != nil; p = p.Parent() {
		switch {
		case p.Is(mimePDF):
			return KindPDF, nil
		case p.Is(mimeDOCX):
			return KindDOCX, nil
		case p.Is(mimeText):
			return KindText, nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupported, filepath.Base(path), m.String())
}

// File returns the text of the document at path.
func File(path string) (string, error) {
	kind, err := Detect(path)
	if err != nil {
		return "", err
	}
	var text string
	switch kind {
	case KindText:
		text, err = plainText(path)
	case KindPDF:
		text, err = pdfText(path)
	case KindDOCX:
		text, err = docxText(path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadable, filepath.Base(path), err)
	}
	return text, nil
}

func plainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New("not valid utf-8")
	}
	return string(data), nil
}

func pdfText(path string) (text string, err error) {
	// the pdf reader panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// docxText joins the paragraphs of word/document.xml with newlines.
func docxText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return documentXMLText(rc)
	}
	return "", errors.New("word/document.xml not found")
}

func documentXMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var paragraphs []string
	var cur strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteString("\t")
			case "br", "cr":
				cur.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, cur.String())
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if cur.Len() > 0 {
		paragraphs = append(paragraphs, cur.String())
	}
	return strings.Join(paragraphs, "\n"), nil
}
