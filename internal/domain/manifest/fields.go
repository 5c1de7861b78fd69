package manifest

import (
	"regexp"
	"strings"
)

// PKGBUILD documents use shell assignments ("name=value") and one
// parenthesized array per checksum algorithm. .SRCINFO documents use
// "key = value" lines, optionally indented with a tab.

// varPattern matches a top-level shell assignment of name.
func varPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(name) + `=([^\r\n]*)`)
}

// arrayPattern matches a parenthesized array assignment of name, possibly spanning lines.
func arrayPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(name) + `=\(([^)]*)\)[ \t]*(\r?)$`)
}

// entryPattern matches "key = value" lines with optional leading indentation.
func entryPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^([ \t]*)` + regexp.QuoteMeta(key) + ` = ([^\r\n]*)`)
}

// ExtractVar returns the value of the first "name=value" line with one layer of quotes removed.
// An empty value counts as missing.
func ExtractVar(doc, name string) (string, error) {
	match := varPattern(name).FindStringSubmatch(doc)
	if match == nil {
		return "", &MissingFieldError{Field: name}
	}

	value := unquote(strings.TrimSpace(match[1]))
	if value == "" {
		return "", &MissingFieldError{Field: name}
	}

	return value, nil
}

// ReplaceVar rewrites the first "name=value" line with value.
// The quote character of the existing value, if any, is kept.
func ReplaceVar(doc, name, value string) (string, error) {
	loc := varPattern(name).FindStringSubmatchIndex(doc)
	if loc == nil {
		return "", &MissingFieldError{Field: name}
	}

	old := strings.TrimSpace(doc[loc[2]:loc[3]])
	if quote, ok := quoteOf(old); ok {
		value = quote + value + quote
	}

	return doc[:loc[2]] + value + doc[loc[3]:], nil
}

// ExtractArray returns the entries of the "name=( ... )" block in document order.
func ExtractArray(doc, name string) ([]string, error) {
	match := arrayPattern(name).FindStringSubmatch(doc)
	if match == nil {
		return nil, &MissingFieldError{Field: name}
	}

	fields := strings.Fields(match[1])
	entries := make([]string, 0, len(fields))

	for _, field := range fields {
		if entry := unquote(field); entry != "" {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// ReplaceArray replaces the whole "name=( ... )" block with a freshly formatted
// block holding one single-quoted entry per line. A CRLF-terminated block is
// rewritten with CRLF line endings.
func ReplaceArray(doc, name string, values []string) (string, error) {
	loc := arrayPattern(name).FindStringSubmatchIndex(doc)
	if loc == nil {
		return "", &MissingFieldError{Field: name}
	}

	block := FormatArray(name, values)
	if loc[4] != loc[5] {
		block = strings.ReplaceAll(block, "\n", "\r\n")
	}

	return doc[:loc[0]] + block + doc[loc[4]:], nil
}

// FormatArray renders a multi-line PKGBUILD array assignment.
func FormatArray(name string, values []string) string {
	var builder strings.Builder

	builder.WriteString(name)
	builder.WriteString("=(\n")

	for _, value := range values {
		builder.WriteString("    '")
		builder.WriteString(value)
		builder.WriteString("'\n")
	}

	builder.WriteString(")")

	return builder.String()
}

// ExtractEntry returns the value of the first "key = value" line whose value starts with prefix.
func ExtractEntry(doc, key, prefix string) (string, error) {
	for _, match := range entryPattern(key).FindAllStringSubmatch(doc, -1) {
		if value := strings.TrimSpace(match[2]); strings.HasPrefix(value, prefix) {
			return value, nil
		}
	}

	return "", &MissingFieldError{Field: key}
}

// ExtractEntries returns the values of every "key = value" line in document order.
func ExtractEntries(doc, key string) []string {
	matches := entryPattern(key).FindAllStringSubmatch(doc, -1)
	values := make([]string, 0, len(matches))

	for _, match := range matches {
		values = append(values, strings.TrimSpace(match[2]))
	}

	return values
}

// ReplaceEntry rewrites the first "key = value" line whose value starts with prefix.
// The line indentation is kept.
func ReplaceEntry(doc, key, prefix, value string) (string, error) {
	for _, loc := range entryPattern(key).FindAllStringSubmatchIndex(doc, -1) {
		if !strings.HasPrefix(strings.TrimSpace(doc[loc[4]:loc[5]]), prefix) {
			continue
		}

		return doc[:loc[4]] + value + doc[loc[5]:], nil
	}

	return "", &MissingFieldError{Field: key}
}

// ReplaceEntries rewrites successive "key = value" lines in document order:
// the n-th occurrence receives values[n]. Occurrences beyond len(values) are kept.
func ReplaceEntries(doc, key string, values []string) (string, error) {
	locs := entryPattern(key).FindAllStringSubmatchIndex(doc, -1)
	if len(locs) < len(values) {
		return "", &MissingFieldError{Field: key}
	}

	var (
		builder strings.Builder
		last    int
	)

	for i, value := range values {
		start, end := locs[i][4], locs[i][5]

		builder.WriteString(doc[last:start])
		builder.WriteString(value)

		last = end
	}

	builder.WriteString(doc[last:])

	return builder.String(), nil
}

// unquote strips one layer of matching single or double quotes.
func unquote(value string) string {
	if _, ok := quoteOf(value); ok {
		return value[1 : len(value)-1]
	}

	return value
}

// quoteOf returns the quote character wrapping value.
func quoteOf(value string) (string, bool) {
	if len(value) < 2 {
		return "", false
	}

	first, last := value[0], value[len(value)-1]
	if first != last || (first != '"' && first != '\'') {
		return "", false
	}

	return string(first), true
}
