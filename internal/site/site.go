// Package site writes the browsable HTML output: an index page, one page
// per archive type, a 404 page for types without a page, and the static
// assets they share.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"graffiti/internal/archive"
	"graffiti/internal/graph"
	"graffiti/internal/render"
)

//go:embed templates/*.html assets
var content embed.FS

// MissingMavenValue is shown for Maven coordinates the archive lacks.
const MissingMavenValue = "maven prop not found"

// Options locates the output directories. CSSDir, JSDir and ImageDir are
// linked relative to Root when they live beneath it.
type Options struct {
	Root     string
	ImageDir string
	CSSDir   string
	JSDir    string
	Label    string
	Markdown bool
}

// Writer renders pages into Root.
type Writer struct {
	opts   Options
	tmpl   *template.Template
	md     *md.Converter
	logger *slog.Logger
}

// New parses the embedded templates.
func New(opts Options, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.ParseFS(content, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	w := &Writer{opts: opts, tmpl: tmpl, logger: logger}
	if opts.Markdown {
		w.md = md.NewConverter("", true, nil)
		w.md.Use(plugin.GitHubFlavored())
	}
	return w, nil
}

type page struct {
	Title   string
	Label   string
	CSSPath string
	JSPath  string
}

func (w *Writer) page(title string) page {
	return page{
		Title:   title,
		Label:   w.opts.Label,
		CSSPath: w.link(w.opts.CSSDir),
		JSPath:  w.link(w.opts.JSDir),
	}
}

// link returns dir as seen from Root, using forward slashes.
func (w *Writer) link(dir string) string {
	rel, err := filepath.Rel(w.opts.Root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(dir)
	}
	return filepath.ToSlash(rel)
}

// CopyAssets writes the stylesheet, the script and the 404 page.
func (w *Writer) CopyAssets() error {
	for sub, dst := range map[string]string{
		"assets/css": w.opts.CSSDir,
		"assets/js":  w.opts.JSDir,
	} {
		if err := copyDir(sub, dst); err != nil {
			return err
		}
	}
	return w.execute(graph.NotFoundPage, "404.html", w.page("Graffiti | not found"))
}

func copyDir(sub, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	return fs.WalkDir(content, sub, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := content.ReadFile(path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, filepath.Base(path))
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		return nil
	})
}

// IndexData is everything the index page shows.
type IndexData struct {
	JarName  string
	Counts   graph.Counts
	Maven    *archive.MavenInfo
	Types    []*graph.TypeNode
	Failures []graph.EntryFailure
}

type indexView struct {
	page
	JarName  string
	Counts   graph.Counts
	Maven    mavenView
	Types    []typeRow
	Failures []graph.EntryFailure
}

type mavenView struct {
	Group        string
	Artifact     string
	Version      string
	JavaVersion  string
	Dependencies int
}

type typeRow struct {
	Name    string
	Href    string
	Package string
}

// WriteIndex writes index.html.
func (w *Writer) WriteIndex(d IndexData) error {
	v := indexView{
		page:     w.page(d.JarName),
		JarName:  d.JarName,
		Counts:   d.Counts,
		Maven:    newMavenView(d.Maven),
		Failures: d.Failures,
	}
	for _, n := range d.Types {
		v.Types = append(v.Types, typeRow{
			Name:    n.Name,
			Href:    n.PageName() + ".html",
			Package: n.Package(),
		})
	}
	return w.execute("index", "index.html", v)
}

func newMavenView(m *archive.MavenInfo) mavenView {
	or := func(s string) string {
		if s == "" {
			return MissingMavenValue
		}
		return s
	}
	if m == nil {
		m = &archive.MavenInfo{}
	}
	return mavenView{
		Group:        or(m.GroupID),
		Artifact:     or(m.ArtifactID),
		Version:      or(m.Version),
		JavaVersion:  or(m.JavaVersion),
		Dependencies: m.Dependencies,
	}
}

type classView struct {
	page
	ClassName  string
	Image      string
	MapName    string
	Map        template.HTML
	Attributes []attributeRow
	Methods    []methodRow
}

type attributeRow struct {
	Name string
	Type string
	Href string
}

type methodRow struct {
	Signature string
	Class     string
}

var rowClass = map[graph.Visibility]string{
	graph.VisibilityPublic:   "success",
	graph.VisibilityPrivate:  "danger",
	graph.VisibilityAbstract: "warning",
}

// WriteClass writes <fqn>.html for a Resolved node. im may be nil when no
// image was rendered.
func (w *Writer) WriteClass(n *graph.TypeNode, im *render.ImageMap) error {
	if n == nil || n.Kind() != graph.KindResolved {
		return graph.ErrNotResolved
	}
	v := classView{
		page:      w.page("Graffiti | " + n.FullyQualifiedName),
		ClassName: n.FullyQualifiedName,
	}
	if im != nil {
		v.Image = w.link(filepath.Join(w.opts.ImageDir, n.FullyQualifiedName+render.ImageExtension))
		v.MapName = im.Name
		v.Map = template.HTML(im.HTML)
	}

	for _, name := range n.SortedAttributeNames() {
		target := n.Attributes[name]
		if target == nil {
			continue
		}
		label := target.FullyQualifiedName
		if k := target.Kind(); k == graph.KindPrimitive || k == graph.KindArray {
			label = target.Name
		}
		v.Attributes = append(v.Attributes, attributeRow{
			Name: name,
			Type: graph.UnescapeSignature(label),
			Href: target.PageName() + ".html",
		})
	}
	for _, m := range n.Methods {
		v.Methods = append(v.Methods, methodRow{Signature: m.Signature, Class: rowClass[m.Visibility]})
	}
	return w.execute(n.FullyQualifiedName, "class.html", v)
}

func (w *Writer) execute(name, tmpl string, data any) error {
	var buf bytes.Buffer
	if err := w.tmpl.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := os.MkdirAll(w.opts.Root, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", w.opts.Root, err)
	}
	out := filepath.Join(w.opts.Root, name+".html")
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	if w.md != nil {
		text, err := w.md.ConvertString(buf.String())
		if err != nil {
			return fmt.Errorf("convert %s to markdown: %w", name, err)
		}
		mdOut := filepath.Join(w.opts.Root, name+".md")
		if err := os.WriteFile(mdOut, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", mdOut, err)
		}
	}
	return nil
}
