// Package phpcgi runs .php files of a hosted project through php-cgi.
package phpcgi

import (
	"net/http"
	"net/http/cgi"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"
)

// Bridge executes PHP scripts with the project directory as working root.
type Bridge struct {
	Binary string
	Logger *zap.Logger
}

func New(binary string, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{Binary: binary, Logger: logger}
}

// Available reports whether the configured binary can be found.
func (b *Bridge) Available() bool {
	_, err := exec.LookPath(b.Binary)
	return err == nil
}

// Serve runs script (a slash path relative to projectDir) and writes its
// output to w. scriptURL is the public URL of the script.
func (b *Bridge) Serve(w http.ResponseWriter, r *http.Request, projectDir, script, scriptURL string) {
	full := filepath.Join(projectDir, filepath.FromSlash(script))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	bin, err := exec.LookPath(b.Binary)
	if err != nil {
		b.Logger.Error("php binary not found", zap.String("binary", b.Binary), zap.Error(err))
		http.Error(w, "PHP is not available", http.StatusBadGateway)
		return
	}

	h := &cgi.Handler{
		Path: bin,
		Dir:  projectDir,
		Root: scriptURL,
		Env: []string{
			"SCRIPT_FILENAME=" + full,
			"DOCUMENT_ROOT=" + projectDir,
			"REDIRECT_STATUS=200",
		},
		Logger: zap.NewStdLog(b.Logger),
		Stderr: &stderrWriter{logger: b.Logger, script: full},
	}
	h.ServeHTTP(w, r)
}

// stderrWriter forwards php-cgi's stderr to the service log.
type stderrWriter struct {
	logger *zap.Logger
	script string
}

func (s *stderrWriter) Write(p []byte) (int, error) {
	s.logger.Warn("php stderr", zap.String("script", s.script), zap.ByteString("output", p))
	return len(p), nil
}
