package chunker

import (
	"regexp"
	"strings"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})[ \t]+(.+?)(?:[ \t]+#+)?[ \t]*$`)

type heading struct {
	level int
	title string
}

type section struct {
	path []string
	text string
}

// splitSections cuts Markdown at ATX headings. Each section starts with its
// heading line and carries the titles of its ancestors. Text before the first
// heading forms a root section with an empty path. A heading with no body is
// carried into the next section nested under it, and dropped when a sibling
// or higher heading follows instead. Headings inside fenced code blocks are
// ignored.
func splitSections(markdown string) []section {
	var (
		sections []section
		stack    []heading
		buf      []string
		pending  []section
		inFence  bool
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		path := titles(stack)
		pending = ancestors(pending, path)
		if !hasBody(text) {
			pending = append(pending, section{path: path, text: text})
			return
		}
		for i := len(pending) - 1; i >= 0; i-- {
			text = pending[i].text + paragraphSeparator + text
		}
		pending = nil
		sections = append(sections, section{path: path, text: text})
	}

	for _, line := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}

		if !inFence {
			if m := headingPattern.FindStringSubmatch(line); m != nil {
				flush()
				level := len(m[1])
				for len(stack) > 0 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				stack = append(stack, heading{level: level, title: strings.TrimSpace(m[2])})
			}
		}
		buf = append(buf, line)
	}
	flush()

	return sections
}

// hasBody reports whether a section holds more than heading lines.
func hasBody(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !headingPattern.MatchString(line) {
			return true
		}
	}
	return false
}

// ancestors keeps the pending headings whose path encloses path.
func ancestors(pending []section, path []string) []section {
	kept := pending[:0]
	for _, p := range pending {
		if isPrefix(p.path, path) {
			kept = append(kept, p)
		}
	}
	return kept
}

func isPrefix(prefix, path []string) bool {
	if len(prefix) >= len(path) {
		return false
	}
	for i := range prefix {
		if prefix[i] != path[i] {
			return false
		}
	}
	return true
}

func titles(stack []heading) []string {
	out := make([]string, len(stack))
	for i, h := range stack {
		out[i] = h.title
	}
	return out
}
