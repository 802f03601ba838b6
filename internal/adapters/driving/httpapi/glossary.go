package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// glossaryListing is the body of GET /glossary.
type glossaryListing struct {
	Files   []domain.GlossaryFileInfo `json:"files"`
	Entries []domain.GlossaryEntry    `json:"entries"`
}

func (s *Server) handleGlossaryList(c echo.Context) error {
	files := s.ports.Glossary.List()
	if files == nil {
		files = []domain.GlossaryFileInfo{}
	}
	entries := s.ports.Glossary.Entries()
	if entries == nil {
		entries = []domain.GlossaryEntry{}
	}
	return c.JSON(http.StatusOK, glossaryListing{Files: files, Entries: entries})
}

// handleGlossaryUpload accepts a multipart form with the file in "file".
func (s *Server) handleGlossaryUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fmt.Errorf("%w: multipart field \"file\" is required", domain.ErrInvalidInput))
	}
	if fh.Size > MaxGlossaryUpload {
		return c.JSON(http.StatusRequestEntityTooLarge, errorBody{
			Error:    fmt.Sprintf("glossary file exceeds %d bytes", MaxGlossaryUpload),
			Filename: fh.Filename,
		})
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxGlossaryUpload+1))
	if err != nil {
		return writeError(c, err)
	}

	delta, err := s.ports.Glossary.Upload(c.Request().Context(), fh.Filename, data)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, delta)
}

func (s *Server) handleGlossaryDelete(c echo.Context) error {
	if err := s.ports.Glossary.Delete(c.Request().Context(), c.Param("filename")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
