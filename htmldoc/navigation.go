package htmldoc

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// boilerplateClass matches class and id values used for page chrome.
var boilerplateClass = regexp.MustCompile(
	`(?i)(^|[^a-z])(nav|navbar|navigation|menu|topnav|sidenav|breadcrumbs?|` +
		`site-header|page-header|masthead|banner|cookie-banner|` +
		`footer|site-footer|page-footer|colophon|` +
		`sidebar|widget-area|widget|share|social)([^a-z]|$)`)

// boilerplateRoles are ARIA landmark roles for page chrome.
var boilerplateRoles = map[string]bool{
	"navigation":    true,
	"complementary": true,
	"banner":        true,
	"contentinfo":   true,
	"search":        true,
}

// newSanitizer returns the policy applied before parsing. It keeps the
// document structure, table spans and data: images, and removes boilerplate
// elements together with their content.
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"main", "article", "section", "div", "span", "p", "br", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre", "code",
		"ul", "ol", "li", "dl", "dt", "dd", "figure", "figcaption", "address",
		"a", "b", "i", "em", "strong", "u", "small", "sub", "sup", "mark",
		"details", "summary",
	)
	p.AllowTables()
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	p.AllowAttrs("class", "id", "role").Globally()
	p.AllowAttrs("href").OnElements("a")
	p.AllowImages()
	p.AllowDataURIImages()
	p.SkipElementsContent(
		"script", "style", "title", "noscript", "template", "svg", "iframe", "object",
		"nav", "header", "footer", "aside", "select", "button", "form",
	)
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// exclusionChecker decides which elements of the sanitized tree are
// boilerplate.
type exclusionChecker struct {
	mode NavigationExclusionMode
}

func (ec exclusionChecker) exclude(n *html.Node) bool {
	if n.Type != html.ElementNode || ec.mode == NavigationExclusionNone {
		return false
	}
	if boilerplateRoles[getAttr(n, "role")] {
		return true
	}
	if n.Data != "body" && n.Data != "html" && n.Data != "main" {
		for _, key := range []string{"class", "id"} {
			if v := getAttr(n, key); v != "" && boilerplateClass.MatchString(v) {
				return true
			}
		}
	}
	if ec.mode >= NavigationExclusionAggressive {
		return linkHeavy(n)
	}
	return false
}

// linkHeavy reports whether a block container is mostly link text.
func linkHeavy(n *html.Node) bool {
	switch n.Data {
	case "div", "section", "ul", "ol", "p":
	default:
		return false
	}
	total := textLength(n)
	if total == 0 {
		return false
	}
	links, linkText := linkStats(n)
	return links >= 4 && float64(linkText)/float64(total) > 0.6
}

func textLength(n *html.Node) int {
	if n.Type == html.TextNode {
		return len(strings.TrimSpace(n.Data))
	}
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += textLength(c)
	}
	return total
}

// linkStats counts <a> elements below n and the text length inside them.
func linkStats(n *html.Node) (count, length int) {
	if n.Type == html.ElementNode && n.Data == "a" {
		return 1, textLength(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		cc, cl := linkStats(c)
		count += cc
		length += cl
	}
	return count, length
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
