package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// retrieveRequest is the body of POST /corpus/retrieve.
type retrieveRequest struct {
	Query string `json:"query"`
}

// buildFailure is returned when a synchronous build fails as a whole.
type buildFailure struct {
	Error  string              `json:"error"`
	Report *domain.BuildReport `json:"report,omitempty"`
}

// handleBuild starts a rebuild. With ?wait=true it blocks and returns the
// report; otherwise it returns 202 and the outcome is polled from /status.
func (s *Server) handleBuild(c echo.Context) error {
	wait := false
	if v := c.QueryParam("wait"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return writeError(c, fmt.Errorf("%w: wait must be true or false", domain.ErrInvalidInput))
		}
		wait = b
	}

	if !wait {
		if err := s.ports.Builder.Start(c.Request().Context()); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusAccepted, echo.Map{"status": "accepted"})
	}

	report, err := s.ports.Builder.Build(c.Request().Context())
	if err != nil {
		if errors.Is(err, domain.ErrBuildInProgress) || report == nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusInternalServerError, buildFailure{Error: err.Error(), Report: report})
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.ports.Builder.Status())
}

func (s *Server) handleRetrieve(c echo.Context) error {
	var req retrieveRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, fmt.Errorf("%w: invalid json", domain.ErrInvalidInput))
	}
	result, err := s.ports.Retriever.Retrieve(c.Request().Context(), req.Query)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListFiles(c echo.Context) error {
	files, err := s.ports.Viewer.ListFiles(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"files": files, "total": len(files)})
}

// handleChunks serves GET /corpus/files/:id?offset=&limit=&anchor=.
func (s *Server) handleChunks(c echo.Context) error {
	var req domain.PageRequest
	var err error
	if req.Offset, err = intParam(c, "offset"); err != nil {
		return writeError(c, err)
	}
	if req.Limit, err = intParam(c, "limit"); err != nil {
		return writeError(c, err)
	}
	if c.QueryParam("anchor") != "" {
		anchor, err := intParam(c, "anchor")
		if err != nil {
			return writeError(c, err)
		}
		req.Anchor = &anchor
	}

	page, err := s.ports.Viewer.Chunks(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleMeta(c echo.Context) error {
	meta, err := s.ports.Viewer.Meta(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, meta)
}

// intParam parses an optional integer query parameter; absent means 0.
func intParam(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return n, nil
}
