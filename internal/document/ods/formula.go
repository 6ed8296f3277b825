package ods

import "strings"

// ConvertFormula rewrites OpenFormula syntax into the A1 syntax the lexer
// understands: the namespace prefix ("of:") is dropped, bracketed references
// such as [.A1:.B2] or [Sheet2.A1] become A1:B2 and Sheet2!A1, and ';'
// argument separators become ','. Text literals are copied unchanged.
func ConvertFormula(f string) string {
	if i := strings.Index(f, ":="); i > 0 && !strings.ContainsAny(f[:i], "[\"'(") {
		f = f[i+1:]
	}
	f = strings.TrimPrefix(f, "=")

	var sb strings.Builder
	for i := 0; i < len(f); i++ {
		switch c := f[i]; c {
		case '"':
			end := i + 1
			for end < len(f) {
				if f[end] == '"' {
					if end+1 < len(f) && f[end+1] == '"' {
						end += 2
						continue
					}
					break
				}
				end++
			}
			if end >= len(f) {
				sb.WriteString(f[i:])
				return sb.String()
			}
			sb.WriteString(f[i : end+1])
			i = end
		case '[':
			end := strings.IndexByte(f[i+1:], ']')
			if end < 0 {
				sb.WriteString(f[i:])
				return sb.String()
			}
			sb.WriteString(convertReference(f[i+1 : i+1+end]))
			i += end + 1
		case ';':
			sb.WriteByte(',')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// convertReference turns an ODF cell address such as "$Sheet1.$A$1:.$A$5"
// into "Sheet1!$A$1:$A$5".
func convertReference(ref string) string {
	parts := splitOutsideQuotes(ref, ':')
	for i, p := range parts {
		parts[i] = convertAddress(p)
	}
	return strings.Join(parts, ":")
}

func convertAddress(addr string) string {
	dot := lastOutsideQuotes(addr, '.')
	if dot < 0 {
		return addr
	}
	sheet := strings.TrimPrefix(addr[:dot], "$")
	cell := addr[dot+1:]
	if sheet == "" {
		return cell
	}
	return sheet + "!" + cell
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			quoted = !quoted
		case sep:
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func lastOutsideQuotes(s string, c byte) int {
	idx := -1
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			quoted = !quoted
		case c:
			if !quoted {
				idx = i
			}
		}
	}
	return idx
}
