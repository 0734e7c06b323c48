package reconcile

import "strings"

// Repair applies every known repair in order. Each step is a pure
// text-to-text function that ignores braces and commas inside string
// literals.
func Repair(text string) string {
	text = DropTrailingCommas(text)
	text = InsertMissingCommas(text)
	text = UnwrapStrayObjects(text)
	return CloseDanglingBrace(text)
}

// DropTrailingCommas removes a comma that is followed only by whitespace
// before a closing `}` or `]`.
func DropTrailingCommas(text string) string {
	var (
		b strings.Builder
		s stringState
	)
	b.Grow(len(text))

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if !s.consume(ch) && ch == ',' && closesNext(text[i+1:]) {
			continue
		}
		b.WriteByte(ch)
	}

	return b.String()
}

func closesNext(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest != "" && (rest[0] == '}' || rest[0] == ']')
}

// TrimTrailingProse cuts everything after the last `}` or `]` that is not
// inside a string literal. Text without such a closer is returned as is.
func TrimTrailingProse(text string) string {
	var s stringState
	end := -1
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if s.consume(ch) {
			continue
		}
		if ch == '}' || ch == ']' {
			end = i
		}
	}

	if end < 0 {
		return text
	}
	return text[:end+1]
}

// InsertMissingCommas adds a comma wherever a closed object or array is
// directly followed by another value start: `}{`, `}"`, `]"` and friends.
func InsertMissingCommas(text string) string {
	var (
		b    strings.Builder
		s    stringState
		last byte
	)
	b.Grow(len(text) + 8)

	for i := 0; i < len(text); i++ {
		ch := text[i]

		wasInString := s.inString
		if s.consume(ch) {
			if !wasInString && (last == '}' || last == ']') {
				b.WriteByte(',')
			}
			b.WriteByte(ch)
			if wasInString && !s.inString {
				last = '"'
			}
			continue
		}

		switch ch {
		case ' ', '\t', '\n', '\r':
		case '{', '[':
			if last == '}' || last == ']' {
				b.WriteByte(',')
			}
			last = ch
		default:
			last = ch
		}
		b.WriteByte(ch)
	}

	return b.String()
}

// frame is an open object or array seen by UnwrapStrayObjects.
type frame struct {
	object    bool
	expectKey bool
	stray     bool
}

// UnwrapStrayObjects removes a `{` that appears where an object expects a
// key, together with its matching `}`. The pairs inside the stray wrapper
// become members of the enclosing object.
func UnwrapStrayObjects(text string) string {
	var (
		b     strings.Builder
		s     stringState
		stack []*frame
	)
	b.Grow(len(text))

	top := func() *frame {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]

		wasInString := s.inString
		if s.consume(ch) {
			if wasInString && !s.inString {
				if f := top(); f != nil && f.object && f.expectKey {
					f.expectKey = false
				}
			}
			b.WriteByte(ch)
			continue
		}

		switch ch {
		case '{':
			if f := top(); f != nil && f.object && f.expectKey {
				stack = append(stack, &frame{object: true, expectKey: true, stray: true})
				continue
			}
			stack = append(stack, &frame{object: true, expectKey: true})
		case '[':
			stack = append(stack, &frame{})
		case '}', ']':
			f := top()
			if f != nil {
				stack = stack[:len(stack)-1]
				if parent := top(); parent != nil && parent.object {
					parent.expectKey = false
				}
				if f.stray && ch == '}' {
					continue
				}
			}
		case ',':
			if f := top(); f != nil && f.object {
				f.expectKey = true
			}
		}

		b.WriteByte(ch)
	}

	return b.String()
}

// CloseDanglingBrace appends a `}` when the text opens exactly one more
// object than it closes.
func CloseDanglingBrace(text string) string {
	var (
		s      stringState
		opened int
		closed int
	)

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if s.consume(ch) {
			continue
		}
		switch ch {
		case '{':
			opened++
		case '}':
			closed++
		}
	}

	if opened-closed == 1 {
		return strings.TrimRight(text, " \t\r\n") + "}"
	}

	return text
}
