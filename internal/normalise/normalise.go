// Package normalise converts marked-up document formats to plain text so
// chunking and embedding operate on readable content rather than syntax.
// Normalisation is selected by file extension; unknown formats pass
// through unchanged.
package normalise

import (
	"html"
	"regexp"
	"strings"
)

// Func converts one document format to plain text.
type Func func(string) string

// byExtension maps lowercase file extensions to their normaliser.
var byExtension = map[string]Func{
	".md":       Markdown,
	".markdown": Markdown,
	".html":     HTML,
	".htm":      HTML,
}

// ForPath returns the normaliser for a file path. Formats without a
// dedicated normaliser get the plain-text identity.
func ForPath(path string) Func {
	if i := strings.LastIndex(path, "."); i >= 0 {
		if fn, ok := byExtension[strings.ToLower(path[i:])]; ok {
			return fn
		}
	}
	return Text
}

// Text is the identity normaliser for plain formats.
func Text(content string) string {
	return content
}

// Markdown patterns, compiled once.
var (
	mdCodeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode   = regexp.MustCompile("`[^`]+`")
	mdImage        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote   = regexp.MustCompile(`(?m)^>\s*`)
	mdRule         = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdListMarker   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewlines  = regexp.MustCompile(`\n{3,}`)
)

// Markdown strips common Markdown syntax, keeping the prose. Code blocks
// are dropped entirely; link text survives without its URL.
func Markdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdListMarker.ReplaceAllString(content, "")
	content = mdNumberedList.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// HTML patterns, compiled once.
var (
	htmlScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlHead       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlOpenBlock  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	htmlCloseBlock = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	htmlBreak      = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	multiSpaces    = regexp.MustCompile(`[ \t]+`)
)

// HTML strips tags and extracts readable text, turning block elements
// into line breaks so paragraph structure survives for the chunker.
func HTML(content string) string {
	content = htmlScript.ReplaceAllString(content, "")
	content = htmlStyle.ReplaceAllString(content, "")
	content = htmlHead.ReplaceAllString(content, "")
	content = htmlComment.ReplaceAllString(content, "")

	content = htmlOpenBlock.ReplaceAllString(content, "\n")
	content = htmlCloseBlock.ReplaceAllString(content, "\n\n")
	content = htmlBreak.ReplaceAllString(content, "\n")
	content = htmlTag.ReplaceAllString(content, "")

	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(lines, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
