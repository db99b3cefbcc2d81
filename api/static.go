package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// staticHandler serves files under dir, answering JSON 404 for anything
// that does not exist so unknown routes look the same everywhere.
func staticHandler(dir string) http.Handler {
	fsrv := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		info, err := os.Stat(name)
		if err != nil {
			notFound(w, r)
			return
		}
		if info.IsDir() && !fileExists(filepath.Join(name, "index.html")) {
			notFound(w, r)
			return
		}
		fsrv.ServeHTTP(w, r)
	})
}

func fileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}
