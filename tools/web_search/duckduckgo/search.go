package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/mohammad-safakhou/safequery/tools/web_search/models"
)

// https://html.duckduckgo.com serves results as plain HTML without keys,
// which keeps discovery free of accounts and API tokens.
const endpoint = "https://html.duckduckgo.com/html/"

var (
	selBlock   = cascadia.MustCompile("div.result")
	selResult  = cascadia.MustCompile("a.result__a")
	selSnippet = cascadia.MustCompile("a.result__snippet")
)

type Search struct{}

func (s Search) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint+"?q="+url.QueryEscape(q), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status: %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseResults(doc, k), nil
}

// parseResults walks each result block so the snippet stays attached to its
// own link even when a block carries no snippet at all.
func parseResults(doc *html.Node, k int) []models.Result {
	var out []models.Result
	for _, block := range selBlock.MatchAll(doc) {
		if len(out) >= k {
			break
		}
		link := selResult.MatchFirst(block)
		if link == nil {
			continue
		}
		target := resolveRedirect(attr(link, "href"))
		if target == "" {
			continue
		}
		var snippet string
		if n := selSnippet.MatchFirst(block); n != nil {
			snippet = nodeText(n)
		}
		out = append(out, models.Result{Title: nodeText(link), URL: target, Snippet: snippet})
	}
	return out
}

// resolveRedirect unwraps DDG's /l/?uddg=<url> redirect links.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		if target, err := url.QueryUnescape(uddg); err == nil {
			return target
		}
	}
	if u.IsAbs() {
		return href
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
