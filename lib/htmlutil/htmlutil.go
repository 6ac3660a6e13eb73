package htmlutil

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// Strip renders an HTML fragment down to its visible text: tags are
// discarded, entities decoded, whitespace collapsed. Block elements
// become line breaks so "Hares: X</p><p>On-after: Y" does not run the
// two facts together. Calendar and event-platform APIs ship
// descriptions as markup blobs, hare and on-after extraction wants
// plain text.
func Strip(fragment string) string {
	node, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	var buffer bytes.Buffer
	stripRecursive(node, &buffer)

	var lines []string
	for _, line := range strings.Split(buffer.String(), "\n") {
		line = strings.TrimSpace(innerWhitespace.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func stripRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		stripRecursive(child, buffer)
	}
	if node.Type == html.ElementNode && blockElements[node.Data] {
		buffer.WriteByte('\n')
	}
}
