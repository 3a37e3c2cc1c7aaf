package fetch

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const maxFeedItems = 20

// feedText renders an RSS/Atom document as plain text: the feed title
// followed by one paragraph per item.
func feedText(body []byte) (string, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if title := strings.TrimSpace(feed.Title); title != "" {
		sb.WriteString(title)
		sb.WriteString("\n\n")
	}

	for i, item := range feed.Items {
		if i >= maxFeedItems {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(title)

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		if summary = stripHTML(summary); summary != "" {
			sb.WriteString(": ")
			sb.WriteString(summary)
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// stripHTML reduces an HTML fragment to its visible text with entities
// decoded and whitespace collapsed.
func stripHTML(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return strings.Join(strings.Fields(text), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.Join(strings.Fields(text), " ")
	}

	var parts []string
	collectText(doc.Selection, &parts)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// collectText appends the text nodes under s in document order.
func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			*parts = append(*parts, c.Text())
		case "script", "style":
		default:
			collectText(c, parts)
		}
	})
}
