package server

import (
	"net/http"

	"github.com/brettbedarf/dirstore"
	"github.com/labstack/echo/v4"
)

// CreateDirectoryRequest is the body of POST /directory.
type CreateDirectoryRequest struct {
	Name   string                `json:"name" validate:"required,max=255"`
	Parent *dirstore.DirectoryID `json:"parent"`
}

// RenameDirectoryRequest is the body of PUT /directory/:id.
type RenameDirectoryRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleGetDirectory(c echo.Context) error {
	id, err := directoryParam(c)
	if err != nil {
		return err
	}
	dir, err := s.store.Get(c.Request().Context(), ownerOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dir)
}

func (s *Server) handleCreateDirectory(c echo.Context) error {
	var req CreateDirectoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	dir, err := s.store.Create(c.Request().Context(), ownerOf(c), req.Name, req.Parent)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dir)
}

// handleRenameDirectory renames and answers with the refreshed subtree.
func (s *Server) handleRenameDirectory(c echo.Context) error {
	id, err := directoryParam(c)
	if err != nil {
		return err
	}
	var req RenameDirectoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	owner := ownerOf(c)
	if err := s.store.Rename(ctx, owner, id, req.Name); err != nil {
		return err
	}
	dir, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dir)
}

func (s *Server) handleDeleteDirectory(c echo.Context) error {
	id, err := directoryParam(c)
	if err != nil {
		return err
	}
	if err := s.store.Delete(c.Request().Context(), ownerOf(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func directoryParam(c echo.Context) (dirstore.DirectoryID, error) {
	id, err := dirstore.ParseDirectoryID(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid directory id").SetInternal(err)
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
