// Package ui serves the generated analysis report over HTTP.
package ui

import (
	"net/http"
	"os"
	"path/filepath"

	"claimscope/domain/stats"
	"claimscope/internal"
	"claimscope/internal/config"
	"claimscope/internal/report"

	"github.com/gin-gonic/gin"
)

// Server exposes the markdown report, the chart PNGs and a JSON view of
// the latest test results.
type Server struct {
	router  *gin.Engine
	cfg     *config.Config
	logger  *internal.Logger
	results []stats.TestResult
}

// NewServer creates the report server.
func NewServer(cfg *config.Config, logger *internal.Logger, results []stats.TestResult) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	gin.SetMode(cfg.Server.GinMode)

	s := &Server{
		router:  gin.Default(),
		cfg:     cfg,
		logger:  logger,
		results: results,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleReport)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/api/results", s.handleResults)
	s.router.Static("/plots", s.cfg.Paths.PlotsDir)
}

// Run blocks serving HTTP on the configured port.
func (s *Server) Run() error {
	addr := ":" + s.cfg.Server.Port
	s.logger.Info("Report server listening on %s", addr)
	return s.router.Run(addr)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// handleReport renders the latest markdown report as HTML.
func (s *Server) handleReport(c *gin.Context) {
	mdPath := filepath.Join(s.cfg.Paths.ReportsDir, "report.md")
	md, err := os.ReadFile(mdPath)
	if err != nil {
		s.logger.Warn("Report not found at %s: %v", mdPath, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "no report generated yet, run the pipeline first"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.RenderHTML(string(md)))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleResults returns the test results of the run the server was
// started with.
func (s *Server) handleResults(c *gin.Context) {
	if len(s.results) == 0 {
		c.JSON(http.StatusOK, gin.H{"results": []stats.TestResult{}, "count": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": s.results, "count": len(s.results)})
}
