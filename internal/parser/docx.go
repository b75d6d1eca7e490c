package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/menu-importer/constants"
)

// DOCXParser reads paragraphs from word/document.xml and segments them into items.
type DOCXParser struct {
	logger *slog.Logger
}

func NewDOCXParser(logger *slog.Logger) *DOCXParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &DOCXParser{logger: logger}
}

func (p *DOCXParser) Format() constants.SourceFormat { return constants.FormatDOCX }

func (p *DOCXParser) Parse(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer func() {
		if err := zr.Close(); err != nil {
			p.logger.Warn("docx close error", "path", path, "error", err)
		}
	}()

	var lines []string
	var title string
	found := false
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			found = true
			lines, err = readZipXML(f, documentLines)
			if err != nil {
				return nil, fmt.Errorf("read document.xml: %w", err)
			}
		case "docProps/core.xml":
			if t, err := readZipXML(f, coreTitle); err == nil && len(t) > 0 {
				title = t[0]
			}
		}
	}
	if !found {
		return nil, errors.New("docx has no word/document.xml part")
	}

	res := newResult(constants.FormatDOCX)
	res.MenuName = title
	res.Metadata["paragraphs"] = len(lines)
	SegmentLines(res, lines)
	p.logger.Debug("docx.parsed", "path", path, "paragraphs", len(lines), "records", len(res.Records))
	return res, nil
}

func readZipXML(f *zip.File, read func(*xml.Decoder) ([]string, error)) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return read(xml.NewDecoder(rc))
}

// documentLines returns one line per paragraph; explicit breaks split a paragraph.
func documentLines(dec *xml.Decoder) ([]string, error) {
	var lines []string
	var cur strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteString("\t")
			case "br", "cr":
				lines = append(lines, cur.String())
				cur.Reset()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				lines = append(lines, cur.String())
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines, nil
}

func coreTitle(dec *xml.Decoder) ([]string, error) {
	inTitle := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inTitle = t.Name.Local == "title"
		case xml.EndElement:
			inTitle = false
		case xml.CharData:
			if inTitle {
				if s := strings.TrimSpace(string(t)); s != "" {
					return []string{s}, nil
				}
			}
		}
	}
}
