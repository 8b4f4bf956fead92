package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/pagesmith/internal/build"
)

// Build states reported by /api/build/status.
const (
	StatePending = "pending"
	StateOK      = "ok"
	StateFailed  = "failed"
)

// BuildStatus summarises the most recent build.
type BuildStatus struct {
	State       string    `json:"state"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Staged      int       `json:"staged"`
	Styles      string    `json:"styles,omitempty"`
	Scripts     string    `json:"scripts,omitempty"`
	Failures    int       `json:"failures"`
	Diagnostics int       `json:"diagnostics"`
	Error       string    `json:"error,omitempty"`
}

// reloadScript connects to /ws and reloads the page after every build.
const reloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    if (msg.type === "reload") {
      location.reload();
    } else if (msg.type === "build_error") {
      console.error("pagesmith build failed: " + msg.content);
    }
  };
})();
</script>
`

func (s *PreviewServer) recordStatus(report *build.Report, err error) {
	status := BuildStatus{State: StateOK, FinishedAt: time.Now()}
	if report != nil {
		status.Duration = report.Duration.String()
		status.Staged = len(report.Staged)
		status.Styles = report.StyleSummary()
		status.Scripts = report.ScriptSummary()
		status.Failures = len(report.Failures)
		if report.Diagnostics != nil {
			status.Diagnostics = report.Diagnostics.Count()
		}
	}
	if err != nil {
		status.State = StateFailed
		status.Error = err.Error()
	}

	s.statusMutex.Lock()
	s.status = status
	s.statusMutex.Unlock()
}

// Status returns the most recent build status.
func (s *PreviewServer) Status() BuildStatus {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.status
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"healthy": true,
		"clients": s.ClientCount(),
		"root":    s.root,
	})
}

func (s *PreviewServer) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

// handleStatic serves files from the output tree. Directories resolve to
// their index.html and extensionless paths to <path>.html, which is how
// published links are written.
func (s *PreviewServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, ok := s.resolve(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if !strings.EqualFold(filepath.Ext(file), ".html") {
		http.ServeFile(w, r, file)
		return
	}

	content, err := os.ReadFile(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	w.Write(InjectReloadScript(content))
}

// resolve maps a request path to a regular file below the served root.
func (s *PreviewServer) resolve(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	candidate := filepath.Join(s.root, filepath.FromSlash(clean))

	candidates := []string{candidate}
	if strings.HasSuffix(urlPath, "/") || clean == "/" {
		candidates = []string{filepath.Join(candidate, "index.html")}
	} else if path.Ext(clean) == "" {
		candidates = append(candidates, candidate+".html", filepath.Join(candidate, "index.html"))
	}

	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && info.Mode().IsRegular() {
			return c, true
		}
	}
	return "", false
}

// InjectReloadScript inserts the live reload client before the closing body
// tag, or appends it when there is none.
func InjectReloadScript(content []byte) []byte {
	idx := lastIndexFold(content, []byte("</body>"))
	if idx < 0 {
		return append(append([]byte(nil), content...), reloadScript...)
	}

	out := make([]byte, 0, len(content)+len(reloadScript))
	out = append(out, content[:idx]...)
	out = append(out, reloadScript...)
	out = append(out, content[idx:]...)
	return out
}

func lastIndexFold(s, sep []byte) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if bytes.EqualFold(s[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	response, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
