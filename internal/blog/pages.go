package blog

import (
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// pages はパスと静的ページのファイル名の対応。
var pages = map[string]string{
	"/":        "index.html",
	"/blog":    "blog.html",
	"/login":   "login.html",
	"/profile": "profile.html",
}

// setupPages は公開ディレクトリの静的ページを配信する。
// /api/ 配下の未定義パスはJSONの404を返す。
func (s *Server) setupPages() {
	dir := s.cfg.PublicDir
	if dir == "" {
		s.router.NoRoute(notFound)
		return
	}

	for route, file := range pages {
		page := filepath.Join(dir, file)
		s.router.GET(route, func(c *gin.Context) {
			c.File(page)
		})
	}

	files := http.FileServer(noListingFS{http.Dir(dir)})
	s.router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			notFound(c)
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	})
}

// notFound は未定義のルートに404を返す。
func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "Not found."})
}

// noListingFS はindex.htmlを持たないディレクトリを存在しないものとして扱うファイルシステム。
// http.FileServer によるディレクトリ一覧の出力を防ぐ。
type noListingFS struct {
	fs http.FileSystem
}

// Open はファイルを開く。index.htmlの無いディレクトリは fs.ErrNotExist を返す。
func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		index, err := n.fs.Open(path.Join(name, "index.html"))
		if err != nil {
			_ = f.Close()
			return nil, fs.ErrNotExist
		}
		_ = index.Close()
	}
	return f, nil
}
