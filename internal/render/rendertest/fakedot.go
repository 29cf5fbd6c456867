// Package rendertest provides a stand-in for the Graphviz dot executable.
package rendertest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FailEnv makes the fake executable exit with an error when set.
const FailEnv = "FAKE_DOT_FAIL"

// The image map is named after the DOT file's base name and lists two
// areas, like dot -Tcmapx does for a two row owner table.
const script = `#!/bin/sh
in=""
out=""
for arg in "$@"; do
  case "$arg" in
    -o*) out="${arg#-o}" ;;
    -T*) ;;
    *) in="$arg" ;;
  esac
done
name=$(basename "$in" .dot)
printf 'PNG' > "$out"
if [ -n "$` + FailEnv + `" ]; then
  echo "syntax error in line 3" >&2
  exit 1
fi
cat <<MAP
<map id="$name" name="$name">
<area shape="rect" id="node2" href=" com.x.Customer.html" title=" com.x.Customer" alt="" coords="120,8,240,40"/>
<area shape="rect" id="node3" href=" 404.html" title=" int" alt="" coords="120,60,160,90"/>
</map>
MAP
`

// FakeDot writes an executable shell script that mimics
// `dot -Tpng <file> -o<image> -Tcmapx` and returns its path. Tests using it
// are skipped on Windows.
func FakeDot(t testing.TB) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake dot is a shell script")
	}
	p := filepath.Join(t.TempDir(), "dot")
	if err := os.WriteFile(p, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake dot: %v", err)
	}
	return p
}
