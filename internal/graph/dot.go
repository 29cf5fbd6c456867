package graph

import (
	"io"
	"strings"
)

// DefaultLabel is the caption printed under every rendered graph.
const DefaultLabel = `\nGenerated by Graffiti (http://graffiti.gaurs.io)`

// DotFileExtension is appended to the FQN to name a graph description file.
const DotFileExtension = ".dot"

// DotWriter renders type graphs in the Graphviz DOT language.
type DotWriter struct {
	Label string
}

// NewDotWriter creates a writer using label as graph caption. An empty label
// falls back to DefaultLabel.
func NewDotWriter(label string) *DotWriter {
	if label == "" {
		label = DefaultLabel
	}
	return &DotWriter{Label: label}
}

// Write renders g to w as a complete digraph block.
func (d *DotWriter) Write(w io.Writer, g *TypeGraph) error {
	_, err := io.WriteString(w, d.Render(g))
	return err
}

// Render returns the DOT text for g. Identical graphs render identically.
func (d *DotWriter) Render(g *TypeGraph) string {
	var sb strings.Builder

	d.writeHeader(&sb, g.Name)

	writeTable(&sb, g.Owner)
	sb.WriteString("\n\n")
	for _, e := range g.Edges {
		sb.WriteString(`"` + e.From + `":"` + e.Port + `"->"` + e.To + `"` + "\n")
	}
	sb.WriteString("\n")

	for _, t := range g.Related {
		sb.WriteString("\n\n")
		writeTable(&sb, t)
	}

	sb.WriteString("\n}")
	return sb.String()
}

// RenderDOT renders g with the default label.
func RenderDOT(g *TypeGraph) string {
	return NewDotWriter("").Render(g)
}

func (d *DotWriter) writeHeader(sb *strings.Builder, name string) {
	sb.WriteString(`digraph "` + name + `" {` + "\n")
	sb.WriteString("\tgraph [\n")
	sb.WriteString("\t\trankdir=\"LR\"\n")
	sb.WriteString("\t\tbgcolor=\"#ffffff\"\n")
	sb.WriteString("\t\tlabel=\"" + d.Label + "\"\n")
	sb.WriteString("\t\tlabeljust=\"l\"\n")
	sb.WriteString("\t\tnodesep=\"0.18\"\n")
	sb.WriteString("\t\tranksep=\"0.46\"\n")
	sb.WriteString("\t\tfontname=\"Helvetica\"\n")
	sb.WriteString("\t\tfontsize=\"11\"\n")
	sb.WriteString("\t\t];\n")
	sb.WriteString(" node [\n")
	sb.WriteString("\t\tfontname=\"Helvetica\"\n")
	sb.WriteString("\t\tfontsize=\"11\"\n")
	sb.WriteString("\t\tshape=\"plaintext\"\n")
	sb.WriteString("];\n")
	sb.WriteString("edge [\n")
	sb.WriteString("arrowsize=\"0.8\"\n")
	sb.WriteString("];\n\n")
}

func writeTable(sb *strings.Builder, t Table) {
	sb.WriteString(`"` + t.ID + `" [label=<` + "\n")
	sb.WriteString(`<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" BGCOLOR="#ffffff">` + "\n")
	sb.WriteString("\t<TR><TD BGCOLOR=\"#8CB4F0\" ALIGN=\"CENTER\">" + t.ID + "</TD></TR>\n")
	for _, row := range t.Rows {
		sb.WriteString("\t<TR><TD PORT=\"" + row + "\" BGCOLOR=\"#E2EBF9\" ALIGN=\"LEFT\">" + row + "</TD></TR>\n")
	}
	sb.WriteString("</TABLE>>\n")
	sb.WriteString(`URL=" ` + t.PageName + `.html"` + "\n")
	sb.WriteString(`tooltip=" ` + t.Tooltip + `"` + "\n")
	sb.WriteString("];")
}
