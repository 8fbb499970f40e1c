package xmlrepair

import (
	"bytes"
	"errors"
	"regexp"
)

// ErrUnrepairable is returned when the bounded repair rules cannot
// produce a structurally valid document.
var ErrUnrepairable = errors.New("document is unrepairable")

var declPattern = regexp.MustCompile(`^\s*<\?xml[^?]*\?>`)

// Repair applies the bounded repair rules to a corrupted document:
// unescaped reserved characters in text content, a missing XML
// declaration, and unclosed or mismatched tags (closed via a
// depth-tracking balance pass). The result is re-validated; if it is
// still malformed, ErrUnrepairable is returned. Repair is idempotent:
// repairing an already-repaired document returns it unchanged.
func Repair(b []byte) ([]byte, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, ErrUnrepairable
	}

	out := escapeReserved(b)
	out = ensureDeclaration(out)
	out = balanceTags(out)

	if err := Validate(out); err != nil {
		return nil, ErrUnrepairable
	}
	return out, nil
}

// ensureDeclaration prepends the XML declaration when missing.
func ensureDeclaration(b []byte) []byte {
	if declPattern.Match(b) {
		return b
	}
	return append([]byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"), b...)
}

var entityPattern = regexp.MustCompile(`^&(amp|lt|gt|apos|quot|#[0-9]+|#x[0-9a-fA-F]+);`)

// escapeReserved escapes stray '&' and '<' in text content. A '&' is
// stray unless it starts a well-known or numeric entity; a '<' is stray
// when what follows cannot begin markup.
func escapeReserved(b []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(b))
	inTag := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case inTag:
			out.WriteByte(c)
			if c == '>' {
				inTag = false
			}
		case c == '<':
			if startsMarkup(b[i:]) {
				inTag = true
				out.WriteByte(c)
			} else {
				out.WriteString("&lt;")
			}
		case c == '&':
			if entityPattern.Match(b[i:]) {
				out.WriteByte(c)
			} else {
				out.WriteString("&amp;")
			}
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

// startsMarkup reports whether the byte slice beginning with '<' opens a
// plausible tag: an element name, a close tag, or declaration/comment/CDATA.
func startsMarkup(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	c := b[1]
	switch {
	case c == '/' || c == '?' || c == '!':
		return true
	case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		return true
	default:
		return false
	}
}

var tagPattern = regexp.MustCompile(`<(/?)([A-Za-z_][\w.:-]*)((?:[^>'"]|"[^"]*"|'[^']*')*?)(/?)>`)

// balanceTags walks the document's tags with a depth-tracking stack.
// A close tag matching an element deeper in the stack forces synthetic
// close tags for everything above it; a close tag matching nothing is
// dropped; elements still open at the end of input are closed there.
// Comments, declarations and CDATA pass through untouched.
func balanceTags(b []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(b) + 64)
	var stack []string

	pos := 0
	for pos < len(b) {
		idx := bytes.IndexByte(b[pos:], '<')
		if idx < 0 {
			out.Write(b[pos:])
			break
		}
		out.Write(b[pos : pos+idx])
		pos += idx
		rest := b[pos:]

		if skip := nonElementLen(rest); skip > 0 {
			out.Write(rest[:skip])
			pos += skip
			continue
		}

		loc := tagPattern.FindSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 {
			// Not a parseable tag; emit the '<' and move on. The
			// escape pass has already handled stray ones.
			out.WriteByte('<')
			pos++
			continue
		}

		closing := rest[loc[2]:loc[3]]
		name := string(rest[loc[4]:loc[5]])
		selfClose := rest[loc[8]:loc[9]]
		tag := rest[loc[0]:loc[1]]

		switch {
		case len(selfClose) > 0: // <x/>
			out.Write(tag)
		case len(closing) == 0: // <x>
			stack = append(stack, name)
			out.Write(tag)
		default: // </x>
			at := lastIndex(stack, name)
			if at < 0 {
				// Stray close tag, drop it.
				break
			}
			for len(stack) > at+1 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				out.WriteString("</" + top + ">")
			}
			stack = stack[:len(stack)-1]
			out.Write(tag)
		}
		pos += loc[1]
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.WriteString("</" + top + ">")
	}
	return out.Bytes()
}

// nonElementLen returns the length of a leading declaration, comment,
// processing instruction or CDATA section, 0 when rest opens an element.
func nonElementLen(rest []byte) int {
	switch {
	case bytes.HasPrefix(rest, []byte("<!--")):
		if end := bytes.Index(rest, []byte("-->")); end >= 0 {
			return end + 3
		}
		return len(rest)
	case bytes.HasPrefix(rest, []byte("<![CDATA[")):
		if end := bytes.Index(rest, []byte("]]>")); end >= 0 {
			return end + 3
		}
		return len(rest)
	case bytes.HasPrefix(rest, []byte("<!")):
		if end := bytes.IndexByte(rest, '>'); end >= 0 {
			return end + 1
		}
		return len(rest)
	case bytes.HasPrefix(rest, []byte("<?")):
		if end := bytes.Index(rest, []byte("?>")); end >= 0 {
			return end + 2
		}
		return len(rest)
	default:
		return 0
	}
}

func lastIndex(stack []string, name string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == name {
			return i
		}
	}
	return -1
}
