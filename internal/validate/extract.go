package validate

import "strings"

// ExtractJSON finds the first balanced JSON value embedded in text. One
// fenced code block is unwrapped first. Array candidates are tried before
// object candidates so a list of objects is returned whole; an array that
// sits inside an earlier object is not a candidate of its own. Brackets
// inside string literals, including escaped quotes, are ignored.
func ExtractJSON(text string) (string, bool) {
	text = stripFence(strings.TrimSpace(text))
	arrStart, arrEnd, okArr := balanced(text, '[', ']')
	objStart, objEnd, okObj := balanced(text, '{', '}')
	switch {
	case okArr && okObj && objStart < arrStart && arrEnd <= objEnd:
		return text[objStart:objEnd], true
	case okArr:
		return text[arrStart:arrEnd], true
	case okObj:
		return text[objStart:objEnd], true
	}
	return "", false
}

func stripFence(text string) string {
	open := "```json"
	start := strings.Index(text, open)
	if start < 0 {
		open = "```"
		start = strings.Index(text, open)
	}
	if start < 0 {
		return text
	}
	body := start + len(open)
	end := strings.Index(text[body:], "```")
	if end < 0 {
		return text
	}
	return strings.TrimSpace(text[body : body+end])
}

// balanced returns the half-open range of the region opened by the first
// occurrence of open and closed by its matching close.
func balanced(text string, open, close byte) (int, int, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return 0, 0, false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return start, i + 1, true
			}
		}
	}
	return 0, 0, false
}
