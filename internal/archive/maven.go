package archive

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MavenInfo carries the coordinates shown on the index page. Empty fields
// were not present in the descriptor.
type MavenInfo struct {
	GroupID      string `json:"group_id,omitempty"`
	ArtifactID   string `json:"artifact_id,omitempty"`
	Version      string `json:"version,omitempty"`
	JavaVersion  string `json:"java_version,omitempty"`
	Dependencies int    `json:"dependencies"`
}

// javaVersionProps are tried in order when looking for the Java version.
var javaVersionProps = []string{"java.version", "maven.compiler.release", "maven.compiler.source"}

func readPom(f *zip.File) (*MavenInfo, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParsePom(rc)
}

// ParsePom extracts the first groupId, artifactId and version elements in
// document order, the Java version property and the number of dependency
// elements. A parent block declared before the project's own coordinates
// therefore wins.
func ParsePom(r io.Reader) (*MavenInfo, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	info := &MavenInfo{}
	props := make(map[string]string)
	var stack []string

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse pom.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			if t.Name.Local == "dependency" {
				info.Dependencies++
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			cur := stack[len(stack)-1]
			switch cur {
			case "groupId":
				setOnce(&info.GroupID, text)
			case "artifactId":
				setOnce(&info.ArtifactID, text)
			case "version":
				setOnce(&info.Version, text)
			default:
				if len(stack) >= 2 && stack[len(stack)-2] == "properties" {
					props[cur] = text
				}
			}
		}
	}

	for _, p := range javaVersionProps {
		if v, ok := props[p]; ok {
			info.JavaVersion = v
			break
		}
	}
	return info, nil
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
