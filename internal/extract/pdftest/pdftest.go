// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Info is the PDF Info dictionary. Empty fields are omitted.
type Info struct {
	Title        string
	Author       string
	Keywords     string
	CreationDate string
}

// Build returns a PDF with one page per entry in pages, each drawn in
// Helvetica as a single text line.
func Build(info Info, pages ...string) []byte {
	var objs []string
	// 1: catalog, 2: pages, 3: font, then page/content pairs, then info.
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		contentID := 5 + 2*i
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>",
			contentID))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", escape(text))
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}
	var infoParts []string
	for _, kv := range [][2]string{
		{"Title", info.Title}, {"Author", info.Author},
		{"Keywords", info.Keywords}, {"CreationDate", info.CreationDate},
	} {
		if kv[1] != "" {
			infoParts = append(infoParts, fmt.Sprintf("/%s (%s)", kv[0], escape(kv[1])))
		}
	}
	objs = append(objs, "<< "+strings.Join(infoParts, " ")+" >>")
	infoID := len(objs)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, infoID, xref)
	return buf.Bytes()
}

// Write builds a PDF and writes it to path.
func Write(path string, info Info, pages ...string) error {
	return os.WriteFile(path, Build(info, pages...), 0644)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
