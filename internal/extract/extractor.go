// Package extract converts raw HTML into a cleaned, deduplicated text stream.
//
// The heuristic is intentionally lossy and order-preserving: strip elements
// that never carry article content, collect text from a fixed allow-list of
// content-bearing tags, filter boilerplate, and deduplicate. It is a pure
// function of its input.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Tags removed wholesale before any text is collected.
var unwantedTags = []string{
	"script", "style", "nav", "header", "footer",
	"aside", "iframe", "img", "video", "audio",
	"form", "button", "input", "select", "textarea",
	"noscript", "meta", "link", "title",
}

// Case-insensitive substrings matched against class and id attributes.
// Any element carrying a matching attribute is dropped with its subtree.
var unwantedAttrHints = []string{
	"ad", "advertisement", "banner", "popup", "modal", "sidebar",
	"menu", "navigation", "nav", "header", "footer", "social",
	"share", "comment", "related",
}

// Tags whose text is collected during the primary pass.
var contentTags = []string{
	"p", "div", "section", "article", "main",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"table", "thead", "tbody", "tr", "th", "td",
	"li", "ul", "ol", "blockquote", "pre", "code",
}

// Inline tags consulted only when the primary pass finds nothing.
var inlineTags = []string{"span", "a", "strong", "em", "b", "i"}

var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var tableCellTags = map[string]bool{"th": true, "td": true}

var nonWord = regexp.MustCompile(`^[\s\W]*$`)

// Clean parses raw HTML and returns the extracted text, one block per
// surviving element, blocks separated by a blank line. Identical input always
// yields identical output.
func Clean(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	doc.Find(strings.Join(unwantedTags, ", ")).Remove()
	removeByAttrHints(doc)

	blocks := collectContent(doc)
	if len(blocks) == 0 {
		blocks = collectInlineFallback(doc)
	}

	return strings.Join(dedupe(blocks), "\n\n"), nil
}

func removeByAttrHints(doc *goquery.Document) {
	doc.Find("[class], [id]").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		if matchesHint(class) || matchesHint(id) {
			s.Remove()
		}
	})
}

func matchesHint(attr string) bool {
	if attr == "" {
		return false
	}
	lower := strings.ToLower(attr)
	for _, hint := range unwantedAttrHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func collectContent(doc *goquery.Document) []string {
	var blocks []string
	doc.Find(strings.Join(contentTags, ", ")).Each(func(_ int, s *goquery.Selection) {
		text := flattenText(s)
		if !passesBaseFilter(text) {
			return
		}
		tag := goquery.NodeName(s)
		switch {
		case headingTags[tag]:
			blocks = append(blocks, "[HEADING] "+text)
		case tableCellTags[tag]:
			// Keep table cells even when they hold a single word.
			if wordCount(text) >= 1 {
				blocks = append(blocks, "[TABLE] "+text)
			}
		default:
			if wordCount(text) >= 2 {
				blocks = append(blocks, text)
			}
		}
	})
	return blocks
}

func collectInlineFallback(doc *goquery.Document) []string {
	root := doc.Selection
	if body := doc.Find("body"); body.Length() > 0 {
		root = body
	}
	var blocks []string
	root.Find(strings.Join(inlineTags, ", ")).Each(func(_ int, s *goquery.Selection) {
		text := flattenText(s)
		if len(text) > 5 && wordCount(text) >= 1 {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

// passesBaseFilter drops blocks that are too short, carry no word characters,
// look like cookie notices, or open with a subscription prompt.
func passesBaseFilter(text string) bool {
	if len(strings.TrimSpace(text)) <= 2 {
		return false
	}
	if nonWord.MatchString(text) {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "cookie") {
		return false
	}
	head := []rune(lower)
	if len(head) > 30 {
		head = head[:30]
	}
	return !strings.Contains(string(head), "subscribe")
}

// flattenText joins the stripped descendant text nodes of s with single
// spaces, mirroring a separator-joined DOM text walk.
func flattenText(s *goquery.Selection) string {
	var parts []string
	for _, node := range s.Nodes {
		walkText(node, &parts)
	}
	return strings.Join(parts, " ")
}

func walkText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
			*parts = append(*parts, trimmed)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, parts)
	}
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// dedupe removes repeated blocks by whitespace-normalized value, keeping the
// first occurrence in order.
func dedupe(blocks []string) []string {
	seen := make(map[string]struct{}, len(blocks))
	unique := make([]string, 0, len(blocks))
	for _, block := range blocks {
		normalized := strings.Join(strings.Fields(block), " ")
		if len(strings.TrimSpace(normalized)) <= 2 {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, normalized)
	}
	return unique
}
