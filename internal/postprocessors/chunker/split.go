package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	paragraphPattern      = regexp.MustCompile(`\n[ \t]*\n+`)
	tableDelimiterPattern = regexp.MustCompile(`^[ \t]*\|?[ \t]*:?-{3,}:?[ \t]*(\|[ \t]*:?-{3,}:?[ \t]*)*\|?[ \t]*$`)
)

// piece is chunk content plus the length of its copied overlap prefix.
type piece struct {
	content string
	overlap int
}

// unit is a block the packer never cuts. A table continuation repeats the
// table header at its start.
type unit struct {
	text   string
	header string
}

// body returns the unit text without a repeated table header.
func (u unit) body() string {
	if u.header == "" {
		return u.text
	}
	return strings.TrimPrefix(u.text, u.header+"\n")
}

// splitSection keeps a section whole when it fits, otherwise packs its
// paragraphs greedily into chunks no longer than maxSize, copying up to
// overlap characters from the previous chunk's tail. Heading lines are
// folded into the paragraph that follows them.
func (p *Processor) splitSection(text string) []piece {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runeLen(text) <= p.maxSize {
		return []piece{{content: text}}
	}

	var (
		units []unit
		lead  string
	)
	for _, para := range paragraphPattern.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if !hasBody(para) {
			if lead != "" {
				lead += paragraphSeparator
			}
			lead += para
			continue
		}
		parts := p.splitParagraph(para, p.maxSize)
		if lead != "" {
			parts = p.foldLead(lead, parts)
			lead = ""
		}
		units = append(units, parts...)
	}
	if lead != "" {
		units = append(units, unit{text: lead})
	}

	return p.pack(units)
}

// pack groups whole units greedily into chunks, rebalances a chunk left
// under minSize, then copies the previous chunk's tail into each chunk. A
// chunk that starts with a table continuation carries the repeated header
// as its overlap instead.
func (p *Processor) pack(units []unit) []piece {
	var groups [][]unit
	for _, u := range units {
		n := len(groups)
		if n > 0 && runeLen(render(groups[n-1]))+joinLen(u) <= p.maxSize {
			groups[n-1] = append(groups[n-1], u)
			continue
		}
		groups = append(groups, []unit{u})
	}
	p.rebalance(groups)

	out := make([]piece, 0, len(groups))
	for i, g := range groups {
		content := render(g)
		switch {
		case i == 0:
			out = append(out, piece{content: content})
		case g[0].header != "":
			out = append(out, piece{content: content, overlap: runeLen(g[0].header) + 1})
		default:
			tail := p.overlapTail(out[i-1].content, runeLen(content))
			if tail == "" {
				out = append(out, piece{content: content})
				continue
			}
			out = append(out, piece{
				content: tail + paragraphSeparator + content,
				overlap: runeLen(tail) + runeLen(paragraphSeparator),
			})
		}
	}
	return out
}

// rebalance moves trailing units of a chunk into the next one while the
// next is shorter than minSize. It stops at maxSize or when the donor would
// drop under minSize.
func (p *Processor) rebalance(groups [][]unit) {
	for i := 1; i < len(groups); i++ {
		for runeLen(render(groups[i])) < p.minSize && len(groups[i-1]) > 1 {
			prev := groups[i-1]
			kept := prev[:len(prev)-1]
			moved := append([]unit{prev[len(prev)-1]}, groups[i]...)
			if runeLen(render(moved)) > p.maxSize || runeLen(render(kept)) < p.minSize {
				break
			}
			groups[i-1], groups[i] = kept, moved
		}
	}
}

// render joins units into chunk text. A table continuation that follows
// another unit drops its repeated header and continues the table.
func render(g []unit) string {
	var b strings.Builder
	for i, u := range g {
		switch {
		case i == 0:
			b.WriteString(u.text)
		case u.header != "":
			b.WriteString("\n")
			b.WriteString(u.body())
		default:
			b.WriteString(paragraphSeparator)
			b.WriteString(u.text)
		}
	}
	return b.String()
}

// joinLen is the length u adds when appended to a non-empty chunk.
func joinLen(u unit) int {
	if u.header != "" {
		return 1 + runeLen(u.body())
	}
	return runeLen(paragraphSeparator) + runeLen(u.text)
}

// foldLead prefixes heading lines to the first unit so no chunk holds
// headings alone. The first unit is split again when both do not fit.
func (p *Processor) foldLead(lead string, parts []unit) []unit {
	budget := p.maxSize - runeLen(lead) - runeLen(paragraphSeparator)
	if budget <= 0 || len(parts) == 0 {
		return append([]unit{{text: lead}}, parts...)
	}

	head := p.splitParagraph(parts[0].text, budget)
	head[0].text = lead + paragraphSeparator + head[0].text
	return append(head, parts[1:]...)
}

// overlapTail returns the last characters of prev to prepend to a unit of
// nextLen characters, shortened so the result still fits maxSize.
func (p *Processor) overlapTail(prev string, nextLen int) string {
	n := p.overlap
	if room := p.maxSize - nextLen - runeLen(paragraphSeparator); room < n {
		n = room
	}
	if n <= 0 {
		return ""
	}

	runes := []rune(prev)
	if n > len(runes) {
		n = len(runes)
	}
	return strings.TrimLeftFunc(string(runes[len(runes)-n:]), unicode.IsSpace)
}

// splitParagraph breaks a paragraph longer than limit into units. Multi-line
// paragraphs such as tables and lists are cut between lines; a single line
// is cut at sentence ends.
func (p *Processor) splitParagraph(para string, limit int) []unit {
	if runeLen(para) <= limit {
		return []unit{{text: para}}
	}
	if lines := strings.Split(para, "\n"); len(lines) > 1 {
		return splitLines(lines, limit)
	}

	parts := splitSentences(para, limit)
	out := make([]unit, len(parts))
	for i, s := range parts {
		out[i] = unit{text: s}
	}
	return out
}

// splitLines packs whole lines into units no longer than limit. Every unit
// after the first repeats a Markdown table's header and delimiter rows.
func splitLines(lines []string, limit int) []unit {
	header := tableHeader(lines)
	if header != "" && runeLen(header)+1 > limit/2 {
		header = ""
	}
	cut := limit
	if header != "" {
		cut -= runeLen(header) + 1
	}

	var (
		out  []unit
		rows []string
		size int
	)
	room := func() int {
		if len(out) > 0 {
			return cut
		}
		return limit
	}
	emit := func() {
		if len(rows) == 0 {
			return
		}
		u := unit{text: strings.Join(rows, "\n")}
		if header != "" && len(out) > 0 {
			u = unit{text: header + "\n" + u.text, header: header}
		}
		out = append(out, u)
		rows, size = nil, 0
	}

	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		n := runeLen(line)
		if len(rows) > 0 && size+1+n > room() {
			emit()
		}
		if n > room() {
			for _, s := range splitSentences(line, cut) {
				rows = []string{s}
				emit()
			}
			continue
		}
		if len(rows) > 0 {
			size++
		}
		rows = append(rows, line)
		size += n
	}
	emit()

	return out
}

// tableHeader returns the header and delimiter rows of a Markdown table
// starting at lines[0], or "" when lines do not open with a table.
func tableHeader(lines []string) string {
	if len(lines) < 3 || !strings.HasPrefix(strings.TrimSpace(lines[0]), "|") {
		return ""
	}
	if !tableDelimiterPattern.MatchString(lines[1]) {
		return ""
	}
	return strings.TrimRightFunc(lines[0], unicode.IsSpace) + "\n" + strings.TrimRightFunc(lines[1], unicode.IsSpace)
}

// splitSentences breaks text longer than limit at sentence ends, falling
// back to a hard cut for sentences that alone exceed limit.
func splitSentences(text string, limit int) []string {
	var (
		out     []string
		current strings.Builder
	)
	emit := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			out = append(out, s)
		}
		current.Reset()
	}

	for _, sentence := range sentences(text) {
		if runeLen(current.String())+runeLen(sentence) <= limit {
			current.WriteString(sentence)
			continue
		}
		emit()
		for runeLen(sentence) > limit {
			r := []rune(sentence)
			out = append(out, string(r[:limit]))
			sentence = string(r[limit:])
		}
		current.WriteString(sentence)
	}
	emit()

	return out
}

// sentences cuts text after sentence terminators, keeping trailing
// whitespace with the sentence it follows. A '.' only ends a sentence when
// followed by whitespace so decimals and abbreviations like "v1.2" survive.
func sentences(text string) []string {
	runes := []rune(text)
	var (
		out   []string
		start int
	)
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes, i) {
			continue
		}
		end := i + 1
		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		out = append(out, string(runes[start:end]))
		start = end
		i = end - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func isTerminator(runes []rune, i int) bool {
	switch runes[i] {
	case '。', '！', '？', '；':
		return true
	case '.', '!', '?', ';':
		return i+1 == len(runes) || unicode.IsSpace(runes[i+1])
	default:
		return false
	}
}
