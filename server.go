package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/firodj/n64sora/internal"
	"github.com/firodj/n64sora/internal/n64"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/sirupsen/logrus"
)

// maxUpload bounds a posted ROM; retail cartridges top out at 64 MiB.
const maxUpload = 64 << 20

type server struct {
	cfg   internal.Config
	table *n64.Table
	repo  *internal.SQLRepository
	log   *logrus.Logger
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type cicResponse struct {
	Checksum string `json:"checksum"`
	Name     string `json:"name"`
	NTSC     string `json:"ntsc"`
	PAL      string `json:"pal"`
	Offset   string `json:"offset"`
}

func newServer(cfg internal.Config, table *n64.Table, repo *internal.SQLRepository, log *logrus.Logger) *echo.Echo {
	s := &server{cfg: cfg, table: table, repo: repo, log: log}

	e := echo.New()
	e.HideBanner = true
	e.POST("/analyze", s.analyze)
	e.GET("/analyses", s.analyses)
	e.GET("/ipl3", s.ipl3)
	return e
}

// analyze runs the pipeline over the request body. The file name for the
// report comes from ?name=.
func (s *server) analyze(c echo.Context) error {
	name := path.Base(c.QueryParam("name"))
	if name == "." || name == "/" {
		name = "upload.z64"
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxUpload))
	if err != nil {
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
	}

	report, _, err := internal.Analyze(name, raw, s.table, s.cfg, logrus.NewEntry(s.log))
	if err != nil {
		var se *internal.StageError
		if errors.As(err, &se) {
			return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: se.Err.Error(), Stage: se.Stage})
		}
		return err
	}
	report.RunID = uuid.NewString()

	if s.repo != nil {
		if err := s.repo.Save(c.Request().Context(), report.Record()); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, report)
}

func (s *server) analyses(c echo.Context) error {
	if s.repo == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "history is disabled"})
	}
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("bad limit %q", v)})
		}
		limit = n
	}
	recs, err := s.repo.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

func (s *server) ipl3(c echo.Context) error {
	var out []cicResponse
	for _, cic := range s.table.Entries() {
		out = append(out, cicResponse{
			Checksum: fmt.Sprintf("%08X", cic.Checksum),
			Name:     cic.Name(),
			NTSC:     cic.NTSCName,
			PAL:      cic.PALName,
			Offset:   fmt.Sprintf("0x%X", cic.EntrypointOffset),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func serveCommand() *ffcli.Command {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var af analysisFlags
	af.register(fs)
	var (
		listen = fs.String("listen", ":1357", "address to listen on")
		db     = fs.String("db", "", "SQLite file for the history, in memory when empty")
	)

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "n64sora serve [flags]",
		ShortHelp:  "Serve the analysis over HTTP",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(ctx context.Context, args []string) error {
			cfg, err := af.config()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			cfg.DB = *db
			log := newLogger(cfg.Verbosity)

			table, err := loadTable(cfg.IPL3Table)
			if err != nil {
				return err
			}
			repo, err := openRepository(ctx, cfg.DB, cfg.Verbosity > 0)
			if err != nil {
				return err
			}
			defer repo.Close()

			e := newServer(cfg, table, repo, log)
			go func() {
				<-ctx.Done()
				e.Close()
			}()
			log.Infof("listening on %s", *listen)
			if err := e.Start(*listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
