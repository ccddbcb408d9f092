// Package markup renders recipe descriptions written in markdown into safe HTML.
package markup

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var (
	// [text](http://...) and bare autolinks pointing outside the app
	externalLinkRegex = regexp.MustCompile(`\[([^\]]*)\]\((?:https?:)?//[^)]*\)`)
	autoLinkRegex     = regexp.MustCompile(`<(?:https?:)?//[^>]*>`)

	// paragraphs left behind when the policy removes their only child
	emptyParagraphRegex = regexp.MustCompile(`<p>\s*</p>`)

	policy = bluemonday.UGCPolicy()
)

const extensions = blackfriday.CommonExtensions

// StripExternalLinks keeps the text of markdown links that point to other sites and drops the target.
func StripExternalLinks(md string) string {
	md = externalLinkRegex.ReplaceAllString(md, "$1")
	return autoLinkRegex.ReplaceAllString(md, "")
}

// RecipeHTML renders a recipe description. External links are removed before rendering and the
// output is sanitized, so raw HTML in the description never reaches clients.
func RecipeHTML(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out := blackfriday.Run([]byte(StripExternalLinks(md)), blackfriday.WithExtensions(extensions))
	html := emptyParagraphRegex.ReplaceAllString(string(policy.SanitizeBytes(out)), "")
	return strings.TrimSpace(html)
}
