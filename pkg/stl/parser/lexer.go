package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenKind identifies a lexical token of the expression language.
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString
	tokenIdent
	tokenOperator // + - * / % == != < > <= >= && || !
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
	tokenDot
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of expression"
	case tokenNumber:
		return "number"
	case tokenString:
		return "string"
	case tokenIdent:
		return "identifier"
	case tokenOperator:
		return "operator"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenComma:
		return "','"
	case tokenDot:
		return "'.'"
	}
	return "token"
}

// token is a lexeme with its 1-based column in the expression source.
type token struct {
	kind   tokenKind
	text   string  // raw text (unquoted for strings)
	number float64 // parsed value for numbers
	column int
}

func (t token) describe() string {
	switch t.kind {
	case tokenEOF:
		return t.kind.String()
	case tokenString:
		return strconv.Quote(t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// lexError is a tokenization failure at a column.
type lexError struct {
	column  int
	message string
}

func (e *lexError) Error() string { return e.message }

// tokenize splits an expression into tokens, ending with tokenEOF.
func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	col, counted := 1, 0 // col is the rune column of src[counted]

	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		col += utf8.RuneCountInString(src[counted:i])
		counted = i

		switch {
		case unicode.IsSpace(r):
			i += size

		case isDigit(src[i]) || (src[i] == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			text := src[start:i]
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &lexError{column: col, message: fmt.Sprintf("invalid number %q", text)}
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, number: n, column: col})

		case r == '"' || r == '\'':
			s, n, err := scanString(src[i:], byte(r))
			if err != nil {
				return nil, &lexError{column: col, message: err.Error()}
			}
			tokens = append(tokens, token{kind: tokenString, text: s, column: col})
			i += n

		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r, size := utf8.DecodeRuneInString(src[i:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			tokens = append(tokens, token{kind: tokenIdent, text: src[start:i], column: col})

		default:
			tok, n, err := scanPunct(src[i:])
			if err != nil {
				return nil, &lexError{column: col, message: err.Error()}
			}
			tok.column = col
			tokens = append(tokens, tok)
			i += n
		}
	}

	tokens = append(tokens, token{kind: tokenEOF, column: utf8.RuneCountInString(src) + 1})
	return tokens, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// scanString reads a quoted string starting at s[0] and returns its
// unescaped value and the number of bytes consumed.
func scanString(s string, quote byte) (string, int, error) {
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote:
			return sb.String(), i + 1, nil
		case c == '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated string")
			}
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '\'', '"':
				sb.WriteByte(s[i])
			default:
				// Keep unknown escapes verbatim so regex patterns like "\d" survive.
				sb.WriteByte('\\')
				sb.WriteByte(s[i])
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

func scanPunct(s string) (token, int, error) {
	if len(s) >= 2 {
		switch s[:2] {
		case "==", "!=", "<=", ">=", "&&", "||":
			return token{kind: tokenOperator, text: s[:2]}, 2, nil
		}
	}

	switch s[0] {
	case '+', '-', '*', '/', '%', '<', '>', '!':
		return token{kind: tokenOperator, text: s[:1]}, 1, nil
	case '(':
		return token{kind: tokenLParen, text: "("}, 1, nil
	case ')':
		return token{kind: tokenRParen, text: ")"}, 1, nil
	case '[':
		return token{kind: tokenLBracket, text: "["}, 1, nil
	case ']':
		return token{kind: tokenRBracket, text: "]"}, 1, nil
	case ',':
		return token{kind: tokenComma, text: ","}, 1, nil
	case '.':
		return token{kind: tokenDot, text: "."}, 1, nil
	case '=':
		return token{}, 0, fmt.Errorf("unexpected '=' (use '==' for comparison)")
	case '&':
		return token{}, 0, fmt.Errorf("unexpected '&' (use '&&' or 'and')")
	case '|':
		return token{}, 0, fmt.Errorf("unexpected '|' (use '||' or 'or')")
	}

	r, _ := utf8.DecodeRuneInString(s)
	return token{}, 0, fmt.Errorf("unexpected character %q", r)
}
