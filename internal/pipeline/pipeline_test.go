package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graffiti/internal/archive/archivetest"
	"graffiti/internal/classfile"
	"graffiti/internal/classfile/classfiletest"
	"graffiti/internal/config"
	"graffiti/internal/graph"
	"graffiti/internal/logging"
	"graffiti/internal/render/rendertest"
	"graffiti/internal/report"
	"graffiti/internal/storage"
)

const pom = `<project>
  <groupId>io.gaurs</groupId>
  <artifactId>orders</artifactId>
  <version>1.2.0</version>
  <properties><java.version>17</java.version></properties>
  <dependencies><dependency/><dependency/></dependencies>
</project>`

func ordersJar(t *testing.T) string {
	t.Helper()
	order := classfiletest.Encode(classfiletest.Class{
		Name:        "com/x/Order",
		Super:       "java/lang/Object",
		AccessFlags: classfile.AccPublic,
		Fields: []classfile.Member{
			{AccessFlags: classfile.AccPrivate, Name: "id", Descriptor: "I"},
			{AccessFlags: classfile.AccPrivate, Name: "customer", Descriptor: "Lcom/x/Customer;"},
		},
		Methods: []classfile.Member{
			{AccessFlags: classfile.AccPublic, Name: "getId", Descriptor: "()I"},
		},
	})
	customer := classfiletest.Encode(classfiletest.Class{
		Name:        "com/x/Customer",
		Super:       "java/lang/Object",
		AccessFlags: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
	})
	return archivetest.WriteJar(t, t.TempDir(), "orders.jar", map[string][]byte{
		"META-INF/maven/io.gaurs/orders/pom.xml": []byte(pom),
		"com/x/Order.class":                      order,
		"com/x/Customer.class":                   customer,
		"com/x/Broken.class":                     []byte("not a class file"),
		"com/x/package-info.class":               []byte("ignored"),
	})
}

func testConfig(t *testing.T, executable string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Graphviz.Executable = executable
	cfg.Graphviz.Workers = 2
	return cfg
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func stageStatus(rep *report.Report, name string) string {
	for _, st := range rep.Stages {
		if st.Name == name {
			return st.Status
		}
	}
	return ""
}

func TestRunner_Run(t *testing.T) {
	cfg := testConfig(t, rendertest.FakeDot(t))
	cfg.Metrics.TextFile = filepath.Join(cfg.Output.Dir, "metrics", "graffiti.prom")
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "graffiti.db"))
	require.NoError(t, err)
	defer store.Close()

	rep, err := NewRunner(cfg, store, logging.Discard()).Run(context.Background(), ordersJar(t))
	require.NoError(t, err)

	assert.Equal(t, "orders.jar", rep.Archive)
	assert.Equal(t, graph.Counts{Classes: 1, Interfaces: 1}, rep.Counts)
	assert.Equal(t, 2, rep.Types)
	assert.Equal(t, 2, rep.Images)
	assert.Equal(t, 3, rep.Pages)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "com.x.Broken", rep.Failures[0].Type)
	assert.Equal(t, string(graph.ReasonDescribeFailed), rep.Failures[0].Reason)
	assert.Equal(t, report.StatusPartial, stageStatus(rep, "analyze"))
	assert.Equal(t, report.StatusOK, stageStatus(rep, "render"))
	assert.Equal(t, report.StatusOK, stageStatus(rep, "store"))

	root := cfg.Output.Dir
	for _, p := range []string{
		"index.html", "404.html", "com.x.Order.html", "com.x.Customer.html",
		"css/graffiti.css", "js/graffiti.js",
		"dot/com.x.Order.dot", "dot/com.x.Customer.dot",
		"images/com.x.Order.png", "images/com.x.Order.map",
		ReportFile,
	} {
		assert.FileExists(t, filepath.Join(root, p))
	}
	assert.NoFileExists(t, filepath.Join(root, "com.x.Broken.html"))
	assert.FileExists(t, cfg.Metrics.TextFile)

	dot := read(t, filepath.Join(root, "dot", "com.x.Order.dot"))
	assert.Contains(t, dot, `"com.x.Order":"customer"->"com.x.Customer"`)
	assert.Contains(t, dot, `"com.x.Order":"id"->"int"`)

	page := read(t, filepath.Join(root, "com.x.Order.html"))
	assert.Contains(t, page, `usemap="#com.x.Order"`)
	assert.Contains(t, page, `<a href="com.x.Customer.html">com.x.Customer</a>`)
	assert.Contains(t, page, `<tr class="success"><td border="1">public int com.x.Order.getId()</td></tr>`)

	index := read(t, filepath.Join(root, "index.html"))
	assert.Contains(t, index, `<td id="artifactId">orders</td>`)
	assert.Contains(t, index, `<td id="javaVersion">17</td>`)
	assert.Contains(t, index, `<td id="dependencyCount">2</td>`)
	assert.Contains(t, index, `<td>com.x.Broken</td><td>describe_failed</td>`)

	saved, err := report.Load(filepath.Join(root, ReportFile))
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, saved.RunID)
	assert.Equal(t, 1, saved.Summary.FailureCount)

	rec, err := store.LoadType(context.Background(), "com.x.Order")
	require.NoError(t, err)
	assert.Len(t, rec.Attributes, 2)
	run, err := store.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, run.RunID)
}

func TestRunner_RenderFailuresAreIsolated(t *testing.T) {
	cfg := testConfig(t, rendertest.FakeDot(t))
	t.Setenv(rendertest.FailEnv, "1")

	rep, err := NewRunner(cfg, nil, logging.Discard()).Run(context.Background(), ordersJar(t))
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Images)
	assert.Equal(t, report.StatusPartial, stageStatus(rep, "render"))
	assert.Equal(t, report.StatusSkipped, stageStatus(rep, "store"))

	var rendered []string
	for _, f := range rep.Failures {
		if f.Reason == string(graph.ReasonRenderFailed) {
			rendered = append(rendered, f.Type)
		}
	}
	assert.ElementsMatch(t, []string{"com.x.Order", "com.x.Customer"}, rendered)

	// Pages are still written, without a diagram.
	page := read(t, filepath.Join(cfg.Output.Dir, "com.x.Order.html"))
	assert.NotContains(t, page, "<img")
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "images", "com.x.Order.png"))
}

func TestRunner_MissingGraphviz(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "no-dot"))

	rep, err := NewRunner(cfg, nil, logging.Discard()).Run(context.Background(), ordersJar(t))
	require.NoError(t, err)
	assert.Equal(t, report.StatusSkipped, stageStatus(rep, "render"))
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "com.x.Order.html"))
}

func TestRunner_SourceOnlyArchive(t *testing.T) {
	cfg := testConfig(t, rendertest.FakeDot(t))
	jar := archivetest.WriteJar(t, t.TempDir(), "orders-sources.jar", map[string][]byte{
		"com/x/Order.java": []byte(`package com.x;

public class Order {
    private int id;
    private Customer customer;
    public int getId() { return id; }
}
`),
		"com/x/Customer.java": []byte(`package com.x;

public interface Customer {
    String name();
}
`),
	})

	rep, err := NewRunner(cfg, nil, logging.Discard()).Run(context.Background(), jar)
	require.NoError(t, err)
	assert.Equal(t, graph.Counts{Classes: 1, Interfaces: 1}, rep.Counts)
	assert.Empty(t, rep.Failures)

	page := read(t, filepath.Join(cfg.Output.Dir, "com.x.Order.html"))
	assert.Contains(t, page, `<a href="com.x.Customer.html">com.x.Customer</a>`)
	assert.Contains(t, page, "public int com.x.Order.getId()")
}

func TestRunner_EmptyArchive(t *testing.T) {
	cfg := testConfig(t, rendertest.FakeDot(t))
	jar := archivetest.WriteJar(t, t.TempDir(), "empty.jar", map[string][]byte{
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\n"),
	})

	rep, err := NewRunner(cfg, nil, logging.Discard()).Run(context.Background(), jar)
	require.ErrorIs(t, err, ErrNoTypes)
	require.NotNil(t, rep)
	assert.Equal(t, report.StatusError, stageStatus(rep, "scan"))
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, ReportFile))
}

func TestRunner_MissingArchive(t *testing.T) {
	cfg := testConfig(t, rendertest.FakeDot(t))
	_, err := NewRunner(cfg, nil, logging.Discard()).Run(context.Background(), filepath.Join(t.TempDir(), "absent.jar"))
	assert.ErrorContains(t, err, "scan")
}
