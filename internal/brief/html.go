package brief

import (
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML reads a request saved as an HTML page. The first <h1> is the
// topic, falling back to <title>; <meta name=".." content=".."> pairs become
// front matter. Keys are kept verbatim and the first occurrence wins.
func ParseHTML(input string) Brief {
	b := Brief{Raw: input, Meta: map[string]string{}}
	root, err := html.Parse(strings.NewReader(input))
	if err != nil || root == nil {
		b.Meta["topic"] = ""
		return b
	}
	var h1, title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h1":
				if h1 == "" {
					h1 = textOf(n)
				}
			case "title":
				if title == "" {
					title = textOf(n)
				}
			case "meta":
				name, content := attr(n, "name"), attr(n, "content")
				if name != "" && content != "" {
					if _, seen := b.Meta[name]; !seen {
						b.Meta[name] = strings.TrimSpace(content)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	switch {
	case h1 != "":
		b.Topic = h1
	case b.Meta["topic"] != "":
		b.Topic = b.Meta["topic"]
	default:
		b.Topic = title
	}
	if _, ok := b.Meta["topic"]; !ok {
		b.Meta["topic"] = b.Topic
	}
	return b
}

// Parse picks the HTML or Markdown reader from the file name.
func Parse(name, input string) Brief {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") {
		return ParseHTML(input)
	}
	return ParseBrief(input)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			collect(ch)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
