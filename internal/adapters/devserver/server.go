// Package devserver serves the output tree over HTTP and reloads connected
// browsers when it changes.
package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/pkg/browser"
	"github.com/rs/cors"
	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	reloadDebounce  = 100 * time.Millisecond
	shutdownTimeout = 5 * time.Second
	readTimeout     = 10 * time.Second
)

// Server is the development server.
type Server struct {
	cfg      *domain.Config
	watchers ports.WatcherFactory
	logger   ports.Logger
	hub      *Hub
	open     func(url string) error
}

// New creates a Server for cfg. Changes are observed through a watcher
// created by watchers.
func New(cfg *domain.Config, watchers ports.WatcherFactory, logger ports.Logger) *Server {
	return &Server{
		cfg:      cfg,
		watchers: watchers,
		logger:   logger,
		hub:      NewHub(),
		open:     browser.OpenURL,
	}
}

// WithOpener replaces the function used to open the browser.
func (s *Server) WithOpener(open func(url string) error) *Server {
	s.open = open
	return s
}

// Hub returns the reload hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler. The reload websocket bypasses the
// compression and CORS middleware because it hijacks the connection.
func (s *Server) Handler() http.Handler {
	static := http.NewServeMux()
	static.HandleFunc(ClientPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = io.WriteString(w, clientScript)
	})
	static.Handle("/", s.files())

	mux := http.NewServeMux()
	mux.Handle(ReloadPath, s.hub.Handler())
	mux.Handle("/", gzhttp.GzipHandler(cors.AllowAll().Handler(static)))
	return mux
}

// files serves the output root. HTML documents get the reload client.
func (s *Server) files() http.Handler {
	root := http.Dir(s.cfg.Abs(s.cfg.Paths.App))
	fileServer := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, s.startPath(), http.StatusFound)
			return
		}

		name := path.Clean(r.URL.Path)
		info, err := stat(root, name)
		if err != nil {
			fileServer.ServeHTTP(w, r)
			return
		}

		if info.IsDir() {
			if !strings.HasSuffix(r.URL.Path, "/") {
				http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
				return
			}
			index := path.Join(name, "index.html")
			if info, err = stat(root, index); err != nil {
				fileServer.ServeHTTP(w, r)
				return
			}
			name = index
		}

		if !isHTML(name) {
			fileServer.ServeHTTP(w, r)
			return
		}

		data, err := readFile(root, name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		http.ServeContent(w, r, info.Name(), info.ModTime(), bytes.NewReader(Inject(data)))
	})
}

// Serve listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.Port))
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "port", s.cfg.Server.Port)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	appDir := s.cfg.Abs(s.cfg.Paths.App)
	if err := os.MkdirAll(appDir, domain.DirPerm); err != nil {
		_ = lis.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "path", appDir)
	}

	w, err := s.watchers()
	if err != nil {
		_ = lis.Close()
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := w.Start(gctx, appDir); err != nil {
		_ = lis.Close()
		return err
	}

	g.Go(func() error {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return zerr.Wrap(err, domain.ErrServerFailed.Error())
		}
		return nil
	})

	g.Go(func() error {
		debouncer := watcher.NewDebouncer(reloadDebounce, func([]string) { s.hub.Broadcast() })
		defer debouncer.Stop()
		for event := range w.Events() {
			debouncer.Add(event.Path)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		_ = w.Stop()
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	url := "http://localhost:" + portOf(lis) + s.startPath()
	s.logger.Info("serving " + filepath.ToSlash(s.cfg.Paths.App) + " at " + url)
	if s.cfg.Server.Open && s.open != nil {
		if err := s.open(url); err != nil {
			s.logger.Warn("could not open browser: " + err.Error())
		}
	}

	return g.Wait()
}

func (s *Server) startPath() string {
	p := s.cfg.Server.StartPath
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if path.Ext(p) == "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func stat(root http.FileSystem, name string) (os.FileInfo, error) {
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return f.Stat()
}

func readFile(root http.FileSystem, name string) ([]byte, error) {
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func isHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}

func portOf(lis net.Listener) string {
	if addr, ok := lis.Addr().(*net.TCPAddr); ok {
		return fmt.Sprint(addr.Port)
	}
	return lis.Addr().String()
}
