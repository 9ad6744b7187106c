package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	scenarioocr "github.com/menta2k/scenario-ocr"
	"github.com/menta2k/scenario-ocr/internal/config"
	"github.com/menta2k/scenario-ocr/internal/utils"
	"github.com/menta2k/scenario-ocr/pkg/encoder"
	"github.com/menta2k/scenario-ocr/pkg/scenario"
	"github.com/menta2k/scenario-ocr/pkg/types"
)

// formSlack is room for multipart headers and the token field on top of the
// upload limit
const formSlack = 64 << 10

//go:embed templates/*.html
var templatesFS embed.FS

// RunnerFactory builds a runner for one request's configuration
type RunnerFactory func(cfg *config.Config) (*scenarioocr.Runner, error)

// Server is the browser demo: upload an image, run it, show the response
type Server struct {
	cfg       config.Config
	engine    *gin.Engine
	newRunner RunnerFactory
}

// page is the data rendered into index.html
type page struct {
	Token   string
	Preview template.URL
	Output  string
	Error   string
}

// New creates the demo server. cfg is copied; each request works on its own
// copy with the token from the form applied.
func New(cfg *config.Config) *Server {
	s := &Server{
		cfg:       *cfg,
		newRunner: scenarioocr.New,
	}

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())
	engine.MaxMultipartMemory = cfg.Web.MaxUploadBytes
	engine.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.GET("/", s.index)
	engine.POST("/", s.submit)
	engine.POST("/api/run", s.apiRun)

	s.engine = engine
	return s
}

// SetRunnerFactory replaces how runners are built, mainly for tests
func (s *Server) SetRunnerFactory(f RunnerFactory) {
	s.newRunner = f
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the server fails
func (s *Server) Run(addr string) error {
	log.Printf("scenario-web listening on %s", addr)
	return s.engine.Run(addr)
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", page{Token: s.cfg.API.Token})
}

func (s *Server) submit(c *gin.Context) {
	upload, mime, status, err := s.readUpload(c)

	// an oversized body is never parsed for the token field
	data := page{Token: s.cfg.API.Token}
	if status != http.StatusRequestEntityTooLarge {
		data.Token = s.formToken(c)
	}
	if err != nil {
		data.Error = errorText(err)
		c.HTML(status, "index.html", data)
		return
	}
	data.Preview = template.URL(utils.MakeDataURL(mime, base64.StdEncoding.EncodeToString(upload)))

	out, status, err := s.process(c, upload)
	if err != nil {
		data.Error = errorText(err)
		c.HTML(status, "index.html", data)
		return
	}
	data.Output = out.Raw
	c.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) apiRun(c *gin.Context) {
	upload, _, status, err := s.readUpload(c)
	if err != nil {
		c.JSON(status, gin.H{"error": errorText(err)})
		return
	}

	out, status, err := s.process(c, upload)
	if err != nil {
		c.JSON(status, gin.H{"error": errorText(err)})
		return
	}
	c.JSON(http.StatusOK, out)
}

// readUpload returns the uploaded image bytes and their MIME type. The body
// is capped before the multipart form is parsed.
func (s *Server) readUpload(c *gin.Context) ([]byte, string, int, error) {
	limit := s.cfg.Web.MaxUploadBytes
	tooLarge := fmt.Errorf("file size cannot exceed %s", utils.FormatFileSize(limit))

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formSlack)
	if c.Request.ContentLength > limit+formSlack {
		return nil, "", http.StatusRequestEntityTooLarge, tooLarge
	}

	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", http.StatusRequestEntityTooLarge, tooLarge
		}
		return nil, "", http.StatusBadRequest, errors.New("please upload an image (form field 'image')")
	}

	if file.Size > limit {
		return nil, "", http.StatusRequestEntityTooLarge, tooLarge
	}

	f, err := file.Open()
	if err != nil {
		return nil, "", http.StatusBadRequest, errors.New("failed to open uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, "", http.StatusBadRequest, errors.New("failed to read uploaded file")
	}
	if int64(len(data)) > limit {
		return nil, "", http.StatusRequestEntityTooLarge, tooLarge
	}

	mime := utils.SniffImageMIME(data)
	if mime == "" {
		return nil, "", http.StatusUnsupportedMediaType, errors.New("please choose an image file")
	}
	return data, mime, http.StatusOK, nil
}

func (s *Server) process(c *gin.Context, upload []byte) (*types.Output, int, error) {
	cfg := s.cfg
	cfg.API.User = s.cfg.Web.User
	cfg.API.Token = s.formToken(c)

	runner, err := s.newRunner(&cfg)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	out, err := runner.ProcessReader(c.Request.Context(), bytes.NewReader(upload))
	if err != nil {
		return nil, statusFor(err), err
	}
	return out, http.StatusOK, nil
}

// formToken returns the token typed into the form, or the configured one
func (s *Server) formToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.PostForm("token")); token != "" {
		return token
	}
	return s.cfg.API.Token
}

func statusFor(err error) int {
	var httpErr *scenario.HTTPError
	switch {
	case errors.Is(err, encoder.ErrImageDecode):
		return http.StatusBadRequest
	case errors.As(err, &httpErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorText(err error) string {
	return "Error: " + err.Error()
}
