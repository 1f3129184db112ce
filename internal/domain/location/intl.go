package location

import "strings"

// DisplayName strips bracketed annotations from a stored location name.
//
// Names may carry per-locale alternatives such as "Tent 2 [fr:Tente 2]" and a
// "[*]" default marker. When locale has an alternative it is returned;
// otherwise the unbracketed text is.
func DisplayName(name, locale string) string {
	var plain strings.Builder
	rest := name
	for {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			plain.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], ']')
		if end < 0 {
			plain.WriteString(rest)
			break
		}
		plain.WriteString(rest[:open])
		tag := rest[open+1 : open+end]
		if locale != "" {
			if lang, text, ok := strings.Cut(tag, ":"); ok && strings.EqualFold(strings.TrimSpace(lang), locale) {
				return strings.TrimSpace(text)
			}
		}
		rest = rest[open+end+1:]
	}
	return strings.Join(strings.Fields(plain.String()), " ")
}

func isDefaultMarked(name string) bool {
	for rest := name; ; {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			return false
		}
		end := strings.IndexByte(rest[open:], ']')
		if end < 0 {
			return false
		}
		if strings.Contains(rest[open+1:open+end], "*") {
			return true
		}
		rest = rest[open+end+1:]
	}
}
