package render

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ImageMap is the <map> element dot emits for -Tcmapx.
type ImageMap struct {
	Name  string
	Areas []Area
	// HTML is the element re-rendered, ready to embed next to the image.
	HTML string
}

// Area is one clickable region.
type Area struct {
	Shape  string
	Coords string
	Href   string
	Title  string
}

// ParseImageMap extracts the first <map> element from cmapx output.
func ParseImageMap(data []byte) (*ImageMap, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var found *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "map" {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if found == nil {
		return nil, errors.New("no <map> element")
	}

	im := &ImageMap{Name: attr(found, "name")}
	if im.Name == "" {
		im.Name = attr(found, "id")
	}
	for c := found.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "area" {
			continue
		}
		im.Areas = append(im.Areas, Area{
			Shape:  attr(c, "shape"),
			Coords: attr(c, "coords"),
			Href:   strings.TrimSpace(attr(c, "href")),
			Title:  strings.TrimSpace(attr(c, "title")),
		})
	}

	var sb strings.Builder
	if err := html.Render(&sb, found); err != nil {
		return nil, err
	}
	im.HTML = sb.String()
	return im, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
