package adapter

import "strings"

const telegramTextLimit = 4000

// splitTelegramText splits long messages into chunks Telegram accepts.
// It prefers newline boundaries. HTML text is measured in visible runes, is
// never cut inside a tag or an entity, and tags still open at a boundary are
// closed at the end of the chunk and reopened at the start of the next one.
func splitTelegramText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	if strings.EqualFold(parseMode, "HTML") {
		return splitHTML(rs, limit)
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = skipNewlines(rs, end)
	}
	return out
}

func splitHTML(rs []rune, limit int) []string {
	var out []string
	var open []htmlTag
	start := 0
	for start < len(rs) {
		end, visible, lastNL := start, 0, -1
		for end < len(rs) && visible < limit {
			switch rs[end] {
			case '<':
				end = tagEnd(rs, end)
				continue
			case '&':
				if k := entityEnd(rs, end); k > 0 {
					end = k
					visible++
					continue
				}
			case '\n':
				if visible >= limit/3 {
					lastNL = end + 1
				}
			}
			visible++
			end++
		}
		if end < len(rs) {
			if lastNL > 0 {
				end = lastNL
			} else {
				// closing tags right at the cut belong to this chunk
				for end < len(rs) && strings.HasPrefix(string(rs[end:min(end+2, len(rs))]), "</") {
					end = tagEnd(rs, end)
				}
			}
		}

		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		prefix := reopenTags(open)
		open = trackTags(rs[start:end], open)
		out = append(out, prefix+chunk+closeTags(open))
		start = skipNewlines(rs, end)
	}
	return out
}

func skipNewlines(rs []rune, i int) int {
	for i < len(rs) && rs[i] == '\n' {
		i++
	}
	return i
}

// tagEnd returns the index just past the tag starting at rs[i].
func tagEnd(rs []rune, i int) int {
	for j := i + 1; j < len(rs); j++ {
		if rs[j] == '>' {
			return j + 1
		}
	}
	return len(rs)
}

// entityEnd returns the index just past a character entity at rs[i], or -1.
func entityEnd(rs []rune, i int) int {
	for j := i + 1; j < len(rs) && j-i <= 10; j++ {
		switch {
		case rs[j] == ';':
			return j + 1
		case rs[j] == ' ' || rs[j] == '\n' || rs[j] == '&' || rs[j] == '<':
			return -1
		}
	}
	return -1
}

type htmlTag struct {
	name string
	raw  string // opening tag as written, attributes included
}

// trackTags returns the tags still open after rs, starting from open.
func trackTags(rs []rune, open []htmlTag) []htmlTag {
	stack := append([]htmlTag(nil), open...)
	for i := 0; i < len(rs); i++ {
		if rs[i] != '<' {
			continue
		}
		j := i + 1
		for j < len(rs) && rs[j] != '>' {
			j++
		}
		if j == len(rs) {
			break
		}
		raw := string(rs[i : j+1])
		i = j
		switch {
		case strings.HasPrefix(raw, "</"):
			name := tagName(raw[2:])
			for k := len(stack) - 1; k >= 0; k-- {
				if stack[k].name == name {
					stack = stack[:k]
					break
				}
			}
		case strings.HasSuffix(raw, "/>"):
		default:
			stack = append(stack, htmlTag{name: tagName(raw[1:]), raw: raw})
		}
	}
	return stack
}

func tagName(s string) string {
	s = strings.TrimSuffix(s, ">")
	if i := strings.IndexAny(s, " \t\n"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

func reopenTags(open []htmlTag) string {
	var b strings.Builder
	for _, t := range open {
		b.WriteString(t.raw)
	}
	return b.String()
}

func closeTags(open []htmlTag) string {
	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i].name + ">")
	}
	return b.String()
}
