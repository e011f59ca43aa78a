package convert

import (
	"bytes"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// promptClasses mark input-prompt decorations ("In [3]:") emitted by the
// classic and lab notebook templates.
var promptClasses = []string{"jp-InputPrompt", "input_prompt"}

// StripPrompts removes input-prompt elements from an HTML fragment. Fragments
// without prompts are returned unchanged.
func StripPrompts(fragment string) (string, error) {
	if !strings.Contains(fragment, "prompt") {
		return fragment, nil
	}

	if strings.Contains(strings.ToLower(fragment), "<html") {
		doc, err := html.Parse(strings.NewReader(fragment))
		if err != nil {
			return "", err
		}
		if removePrompts(doc) == 0 {
			return fragment, nil
		}
		var buf bytes.Buffer
		if err := html.Render(&buf, doc); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", err
	}

	removed := 0
	kept := nodes[:0]
	for _, n := range nodes {
		if isPrompt(n) {
			removed++
			continue
		}
		removed += removePrompts(n)
		kept = append(kept, n)
	}
	if removed == 0 {
		return fragment, nil
	}

	var buf bytes.Buffer
	for _, n := range kept {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func removePrompts(n *html.Node) int {
	removed := 0
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if isPrompt(c) {
			n.RemoveChild(c)
			removed++
		} else {
			removed += removePrompts(c)
		}
		c = next
	}
	return removed
}

func isPrompt(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(a.Val) {
			if slices.Contains(promptClasses, class) {
				return true
			}
		}
	}
	return false
}
