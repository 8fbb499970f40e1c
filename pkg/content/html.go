// Package content recovers plain text from the fallback representations
// of a protocol document: HTML mirror pages and the published PDF.
// The pattern and page strategies operate on this recovered text.
package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// TextFromHTML extracts the main body text from an HTML rendition of a
// protocol page. Readability handles the common layout; when it yields
// nothing usable the raw document text is taken via goquery with
// navigation chrome stripped.
func TextFromHTML(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return text, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, nav, header, footer").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		return "", fmt.Errorf("no text content in html")
	}
	return text, nil
}

// TitleFromHTML extracts the document title, trying readability first
// and falling back through the usual places in the markup.
func TitleFromHTML(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if title := strings.TrimSpace(article.Title); title != "" {
			return title, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title, nil
	}
	if title, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title), nil
	}
	return "", fmt.Errorf("title not found in html")
}
