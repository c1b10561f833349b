package workspace

import (
	"fmt"
	"strings"
)

// ParsedFile is a file extracted from model output
type ParsedFile struct {
	Name     string
	Language string
	Content  string
	// Tagged is false for files named by the anonymous fallback
	Tagged bool
}

// Parser extracts files from assistant replies.
//
// Grammar, line oriented:
//
//	tag   = decoration* "FILE:" name      (case-insensitive, decoration is # * > - ` and spaces)
//	open  = "```" "`"* [lang]
//	close = "```" "`"*                  (at least as many backticks as open, no info string)
//
// A tag applies to the next fence when only blank lines separate them.
// Inside a fence, an opening line carrying an info string starts a nested
// fence and the next bare line of backticks closes it instead of the outer
// block. A fence still open at end of input is closed there.
//
// When at least one tagged block is found only tagged blocks are returned.
// Otherwise every fence becomes an anonymous file named from the parser's
// counter and the fence language, so one Parser should live for a whole run
// to keep generated names unique.
type Parser struct {
	counter int
}

// NewParser creates a parser with its anonymous-name counter at zero
func NewParser() *Parser {
	return &Parser{}
}

type parseState int

const (
	stateOutside parseState = iota
	stateTagged
	stateInside
)

type block struct {
	name     string
	lang     string
	fenceLen int
	depth    int
	lines    []string
}

// Parse returns the files found in text in order of appearance
func (p *Parser) Parse(text string) []ParsedFile {
	var (
		state   = stateOutside
		pending string
		current *block
		blocks  []*block
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")

		switch state {
		case stateOutside, stateTagged:
			if name, ok := parseTag(line); ok {
				pending = name
				state = stateTagged
				continue
			}
			if n, info, ok := parseFence(line); ok {
				current = &block{name: pending, lang: fenceLanguage(info), fenceLen: n}
				pending = ""
				state = stateInside
				continue
			}
			if state == stateTagged && strings.TrimSpace(line) != "" {
				// tag not followed by a fence
				pending = ""
				state = stateOutside
			}

		case stateInside:
			n, info, ok := parseFence(line)
			switch {
			case ok && info != "":
				current.depth++
				current.lines = append(current.lines, line)
			case ok && n >= current.fenceLen && current.depth == 0:
				blocks = append(blocks, current)
				current = nil
				state = stateOutside
			case ok && current.depth > 0:
				current.depth--
				current.lines = append(current.lines, line)
			default:
				current.lines = append(current.lines, line)
			}
		}
	}
	if current != nil {
		blocks = append(blocks, current)
	}

	var tagged []ParsedFile
	for _, b := range blocks {
		if b.name != "" {
			tagged = append(tagged, ParsedFile{
				Name:     b.name,
				Language: languageOf(b.name, b.lang),
				Content:  strings.Join(b.lines, "\n"),
				Tagged:   true,
			})
		}
	}
	if len(tagged) > 0 {
		return tagged
	}

	files := make([]ParsedFile, 0, len(blocks))
	for _, b := range blocks {
		p.counter++
		name := fmt.Sprintf("generated_%d.%s", p.counter, ExtensionFor(b.lang))
		files = append(files, ParsedFile{
			Name:     name,
			Language: languageOf(name, b.lang),
			Content:  strings.Join(b.lines, "\n"),
		})
	}
	return files
}

// parseTag recognises a FILE: line and returns the file name
func parseTag(line string) (string, bool) {
	s := strings.TrimLeft(strings.TrimSpace(line), "#*>-` \t")
	if len(s) < 5 || !strings.EqualFold(s[:5], "FILE:") {
		return "", false
	}
	name := strings.Trim(strings.TrimSpace(s[5:]), "*`'\" \t")
	if name == "" {
		return "", false
	}
	return name, true
}

// parseFence recognises a backtick fence line and returns its length and info string
func parseFence(line string) (int, string, bool) {
	s := strings.TrimSpace(line)
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	if n < 3 {
		return 0, "", false
	}
	info := strings.TrimSpace(s[n:])
	if strings.Contains(info, "`") {
		return 0, "", false
	}
	return n, info, true
}

func fenceLanguage(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimLeft(fields[0], "{."))
}

func languageOf(name, fenceLang string) string {
	if lang := LanguageFor(name); lang != DefaultLanguage {
		return lang
	}
	if fenceLang != "" {
		return LanguageFor("file." + ExtensionFor(fenceLang))
	}
	return DefaultLanguage
}
