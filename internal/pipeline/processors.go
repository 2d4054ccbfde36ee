package pipeline

import (
	stdhtml "html"
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// Built-in processors. Each is a pure function over {nil, string, []string};
// values outside a processor's domain pass through unchanged, matching the
// lenient contract of Apply.
func init() {
	Register("removePrefix", removePrefix)
	Register("camelCase", camelCase)
	Register("trimString", trimString)
	Register("linesToArray", linesToArray)
	Register("firstFromArray", firstFromArray)
	Register("removeHTML", removeHTML)
	Register("removeZeroWidthSpace", removeZeroWidthSpace)
	Register("decodeHTMLEntities", decodeHTMLEntities)
	Register("htmlToMarkdown", htmlToMarkdown)
}

// wordSeparators are the characters camelCase splits on and removes.
const wordSeparators = " \t\r\n\f\v-_;"

// removePrefix strips arg from the start of a string, case-insensitively,
// a single time.
func removePrefix(v Value, arg string) Value {
	s, ok := v.(string)
	if !ok || arg == "" || len(s) < len(arg) {
		return v
	}
	if strings.EqualFold(s[:len(arg)], arg) {
		return s[len(arg):]
	}
	return s
}

// camelCase capitalizes each word and removes the separators between them.
func camelCase(v Value, _ string) Value {
	s, ok := v.(string)
	if !ok {
		return v
	}

	var sb strings.Builder
	sb.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		if strings.ContainsRune(wordSeparators, r) {
			startOfWord = true
			continue
		}
		if startOfWord {
			sb.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// trimString trims leading and trailing whitespace from strings.
func trimString(v Value, _ string) Value {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// linesToArray splits a string into lines. Whitespace-only input yields an
// empty list.
func linesToArray(v Value, _ string) Value {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

// firstFromArray returns the first element of a non-empty list.
func firstFromArray(v Value, _ string) Value {
	if list, ok := v.([]string); ok && len(list) > 0 {
		return list[0]
	}
	return v
}

var tagNamePattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9]*`)

// removeHTML strips markup tags. The optional argument lists tags to keep,
// in either "a, strong" or "<a><strong>" form.
func removeHTML(v Value, arg string) Value {
	s, ok := v.(string)
	if !ok {
		return v
	}

	allowed := make(map[string]bool)
	for _, tag := range tagNamePattern.FindAllString(arg, -1) {
		allowed[strings.ToLower(tag)] = true
	}

	tok := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(tok.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if allowed[strings.ToLower(string(name))] {
				sb.Write(tok.Raw())
			}
		}
	}
}

// removeZeroWidthSpace deletes U+200B occurrences.
func removeZeroWidthSpace(v Value, _ string) Value {
	if s, ok := v.(string); ok {
		return strings.ReplaceAll(s, "​", "")
	}
	return v
}

// decodeHTMLEntities decodes named and numeric HTML entities.
func decodeHTMLEntities(v Value, _ string) Value {
	if s, ok := v.(string); ok {
		return stdhtml.UnescapeString(s)
	}
	return v
}

// htmlToMarkdown converts HTML markup to Markdown. Conversion failures leave
// the value unchanged.
func htmlToMarkdown(v Value, _ string) Value {
	s, ok := v.(string)
	if !ok {
		return v
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return md
}
