// Package extractor turns a PDF (or, as a bonus path, a docx/txt/rtf)
// byte stream into normalized text, page count, word count, and
// heuristic metadata: title, author, detected document type, language,
// extracted tags, and a section outline.
package extractor

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"

	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/domain/ragerr"
	"github.com/onboardrag/core/pkg/logger_i"
)

var logger = logger_i.NewLogger("extractor")

type Result struct {
	Text      string
	PageCount int
	WordCount int
	Sections  []ragModel.Section
	Title     string
	Author    string
	Metadata  ragModel.DocumentMetadata
}

// ExtractPDF parses PDF bytes and returns normalized text plus
// heuristic metadata. An empty extraction result is an ExtractFailed
// error: image-only / OCR-required PDFs are out of scope.
func ExtractPDF(data []byte, filename string) (Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, ragerr.New(ragerr.ExtractFailed, "could not open pdf", err)
	}

	numPages := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := extractPageText(page)
		if err != nil {
			logger.Warn("skipping unreadable page", "page", i, "error", err)
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}

	text := Normalize(sb.String())
	if strings.TrimSpace(text) == "" {
		return Result{}, ragerr.New(ragerr.ExtractFailed, "pdf yielded no extractable text", nil)
	}

	info := readInfoDict(reader)
	return buildResult(text, numPages, info, filename)
}

// ExtractOther handles the docx/txt/rtf bonus path via a generic
// text-extraction library; it has no PDF Info dict, so title/author
// detection falls back entirely to content heuristics and filename.
// lu4p/cat only reads from a path, so the bytes are staged to a
// temporary file for the duration of the call.
func ExtractOther(data []byte, filename string) (Result, error) {
	tmp, err := stageTempFile(data, filename)
	if err != nil {
		return Result{}, ragerr.New(ragerr.Internal, "could not stage document for extraction", err)
	}
	defer os.Remove(tmp)

	text, err := cat.File(tmp)
	if err != nil {
		return Result{}, ragerr.New(ragerr.ExtractFailed, "could not extract document text", err)
	}
	text = Normalize(text)
	if strings.TrimSpace(text) == "" {
		return Result{}, ragerr.New(ragerr.ExtractFailed, "document yielded no extractable text", nil)
	}
	return buildResult(text, 1, infoDict{}, filename)
}

func extractPageText(page pdf.Page) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		t, err := page.GetPlainText(nil)
		ch <- outcome{t, err}
	}()
	select {
	case o := <-ch:
		return o.text, o.err
	case <-time.After(10 * time.Second):
		return "", errors.New("timed out extracting page text")
	}
}

type infoDict struct {
	Title, Author, Subject, Keywords, Creator, Producer string
	CreationDate, ModDate                               time.Time
}

func readInfoDict(reader *pdf.Reader) infoDict {
	var info infoDict
	trailer := reader.Trailer()
	if trailer.IsNull() {
		return info
	}
	infoVal := trailer.Key("Info")
	if infoVal.IsNull() {
		return info
	}
	info.Title = infoVal.Key("Title").Text()
	info.Author = infoVal.Key("Author").Text()
	info.Subject = infoVal.Key("Subject").Text()
	info.Keywords = infoVal.Key("Keywords").Text()
	info.Creator = infoVal.Key("Creator").Text()
	info.Producer = infoVal.Key("Producer").Text()
	return info
}

func buildResult(text string, pageCount int, info infoDict, filename string) (Result, error) {
	wordCount := countWords(text)
	tags := extractTags(info.Keywords, info.Subject)
	lang := detectLanguage(text)
	title := info.Title
	if title == "" {
		title = deriveTitleFromFilename(filename)
	}
	docType := detectDocumentType(text, title)
	sections := extractSections(text)

	return Result{
		Text:      text,
		PageCount: pageCount,
		WordCount: wordCount,
		Sections:  sections,
		Title:     title,
		Author:    info.Author,
		Metadata: ragModel.DocumentMetadata{
			DocumentType:  docType,
			Language:      lang,
			ExtractedTags: tags,
			SectionCount:  len(sections),
			Subject:       info.Subject,
			Keywords:      info.Keywords,
			Creator:       info.Creator,
			Producer:      info.Producer,
			CreationDate:  info.CreationDate,
			ModDate:       info.ModDate,
		},
	}, nil
}

var (
	crlf       = regexp.MustCompile(`\r\n?`)
	multiBlank = regexp.MustCompile(`\n{3,}`)
	multiSpace = regexp.MustCompile(`[ \t]+`)
	nulByte    = regexp.MustCompile("\x00")
)

// Normalize converts CRLF to LF, collapses runs of 3+ newlines to
// exactly two, collapses runs of spaces/tabs to a single space, strips
// NUL bytes, and trims. It is idempotent.
func Normalize(text string) string {
	text = crlf.ReplaceAllString(text, "\n")
	text = nulByte.ReplaceAllString(text, "")
	text = multiBlank.ReplaceAllString(text, "\n\n")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func countWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

func extractTags(keywords, subject string) []string {
	var raw []string
	if keywords != "" {
		raw = append(raw, splitOnAny(keywords, ",", ";", "|")...)
	}
	if subject != "" {
		raw = append(raw, subject)
	}
	var tags []string
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func splitOnAny(s string, seps ...string) []string {
	replaced := s
	for _, sep := range seps[1:] {
		replaced = strings.ReplaceAll(replaced, sep, seps[0])
	}
	return strings.Split(replaced, seps[0])
}

var englishStopwords = []string{"the", "and", "is", "in", "to", "of", "a", "for"}

func detectLanguage(text string) ragModel.Language {
	sample := text
	if len(sample) > 1000 {
		sample = sample[:1000]
	}
	sample = strings.ToLower(sample)
	padded := " " + sample + " "
	hits := 0
	for _, w := range englishStopwords {
		if strings.Contains(padded, " "+w+" ") {
			hits++
		}
	}
	if hits >= 4 {
		return ragModel.LanguageEnglish
	}
	return ragModel.LanguageUnknown
}

func detectDocumentType(text, title string) ragModel.DocumentType {
	sample := text
	if len(sample) > 2000 {
		sample = sample[:2000]
	}
	haystack := strings.ToLower(sample) + " " + strings.ToLower(title)

	type rule struct {
		substrs []string
		docType ragModel.DocumentType
	}
	rules := []rule{
		{[]string{"onboarding"}, ragModel.DocTypeOnboarding},
		{[]string{"policy", "policies"}, ragModel.DocTypePolicy},
		{[]string{"training", "tutorial"}, ragModel.DocTypeTraining},
		{[]string{"handbook", "manual"}, ragModel.DocTypeHandbook},
		{[]string{"guide"}, ragModel.DocTypeGuide},
		{[]string{"procedure", "process"}, ragModel.DocTypeProcedure},
	}
	for _, r := range rules {
		for _, s := range r.substrs {
			if strings.Contains(haystack, s) {
				return r.docType
			}
		}
	}
	return ragModel.DocTypeGeneral
}

var (
	numberedHeading = regexp.MustCompile(`^\d+(\.|\))\s+[A-Z]`)
	capsSentence    = regexp.MustCompile(`^[A-Z][^.!?]*$`)
	level1Numbering = regexp.MustCompile(`^\d+\.\s`)
	level2Numbering = regexp.MustCompile(`^\d+\.\d+\s`)
	level3Numbering = regexp.MustCompile(`^\d+\.\d+\.\d+\s`)
)

func extractSections(text string) []ragModel.Section {
	lines := strings.Split(text, "\n")
	var sections []ragModel.Section
	var current *ragModel.Section
	hasContent := false

	closeCurrent := func() {
		if current != nil {
			sections = append(sections, *current)
		}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if isHeading(line) {
			if current != nil && hasContent {
				closeCurrent()
			}
			level := headingLevel(line)
			current = &ragModel.Section{Title: line, Level: level}
			hasContent = false
			continue
		}
		if line != "" {
			hasContent = true
		}
	}
	closeCurrent()
	return sections
}

func isHeading(line string) bool {
	if line == "" {
		return false
	}
	if len(line) < 100 && line == strings.ToUpper(line) && len(strings.Fields(line)) <= 10 {
		return true
	}
	if numberedHeading.MatchString(line) {
		return true
	}
	if len(line) < 80 && capsSentence.MatchString(line) {
		return true
	}
	return false
}

func headingLevel(line string) int {
	switch {
	case level3Numbering.MatchString(line):
		return 3
	case level2Numbering.MatchString(line):
		return 2
	case level1Numbering.MatchString(line):
		return 1
	case line == strings.ToUpper(line):
		return 1
	default:
		return 2
	}
}

func deriveTitleFromFilename(filename string) string {
	if filename == "" {
		return ""
	}
	name := filename
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return titleCase(strings.TrimSpace(name))
}

func stageTempFile(data []byte, filename string) (string, error) {
	ext := filepath.Ext(filename)
	f, err := os.CreateTemp("", "extract-*"+ext)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
