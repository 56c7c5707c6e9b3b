// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smartgallery-dev/smartgallery/internal/gallery"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

// RegisterService sets the gallery service and registers REST routes.
func (s *Server) RegisterService(svc *gallery.Service) {
	s.gallery = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Indexing endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "add-image",
		Method:      http.MethodPost,
		Path:        "/api/v1/images",
		Summary:     "Index a single image",
		Tags:        []string{"images"},
	}, s.handleAddImage)

	huma.Register(s.api, huma.Operation{
		OperationID: "add-folder",
		Method:      http.MethodPost,
		Path:        "/api/v1/images/folder",
		Summary:     "Index every image in a folder",
		Tags:        []string{"images"},
	}, s.handleAddFolder)

	// Search endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "search-images",
		Method:      http.MethodPost,
		Path:        "/api/v1/search",
		Summary:     "Find the image closest to a text query",
		Tags:        []string{"search"},
	}, s.handleSearch)

	// Tenant endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "init-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Initialize a tenant collection",
		Tags:        []string{"tenants"},
	}, s.handleInitTenant)

	// Status endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "gallery-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Gallery status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

type addImageInput struct {
	UserID string `query:"user_id" required:"true" doc:"Tenant identifier"`
	Body   struct {
		ImagePath string `json:"image_path" minLength:"1" doc:"Filesystem path of the image"`
	}
}
type addImageOutput struct {
	Body struct {
		Identifier string `json:"identifier" doc:"Identifier the image was indexed under"`
	}
}

type addFolderInput struct {
	UserID string `query:"user_id" required:"true" doc:"Tenant identifier"`
	Body   struct {
		FolderPath string `json:"folder_path" minLength:"1" doc:"Filesystem path of the folder"`
	}
}
type addFolderOutput struct {
	Body struct {
		Attempted int               `json:"attempted" doc:"Number of image files found"`
		Succeeded int               `json:"succeeded" doc:"Number of images indexed"`
		Failures  []gallery.Failure `json:"failures,omitempty" doc:"Per-file failures"`
	}
}

type searchInput struct {
	UserID string `query:"user_id" required:"true" doc:"Tenant identifier"`
	Body   struct {
		Query string `json:"query" minLength:"1" doc:"Free-text query"`
	}
}
type searchOutput struct {
	Body struct {
		Found      bool    `json:"found" doc:"Whether a match was found"`
		Identifier string  `json:"identifier,omitempty" doc:"Identifier of the best match"`
		Score      float64 `json:"score,omitempty" doc:"Cosine similarity of the best match"`
	}
}

type initTenantInput struct {
	ID string `path:"id" doc:"Tenant identifier"`
}
type initTenantOutput struct {
	Body struct {
		Status string `json:"status" example:"initialized"`
	}
}

type statusOutput struct {
	Body struct {
		Status  string   `json:"status" example:"ok" doc:"Gallery status"`
		Tenants []string `json:"tenants" doc:"Known tenant identifiers"`
	}
}

// --- Handlers ---

func (s *Server) handleAddImage(ctx context.Context, input *addImageInput) (*addImageOutput, error) {
	id, err := s.gallery.AddImage(ctx, input.UserID, input.Body.ImagePath)
	if err != nil {
		return nil, apiError(err)
	}
	out := &addImageOutput{}
	out.Body.Identifier = id
	return out, nil
}

func (s *Server) handleAddFolder(ctx context.Context, input *addFolderInput) (*addFolderOutput, error) {
	summary, err := s.gallery.AddFolder(ctx, input.UserID, input.Body.FolderPath)
	if err != nil {
		return nil, apiError(err)
	}
	out := &addFolderOutput{}
	out.Body.Attempted = summary.Attempted
	out.Body.Succeeded = summary.Succeeded
	out.Body.Failures = summary.Failures
	return out, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	result, err := s.gallery.Search(ctx, input.UserID, input.Body.Query)
	if err != nil {
		return nil, apiError(err)
	}
	out := &searchOutput{}
	out.Body.Found = result.Found
	out.Body.Identifier = result.Identifier
	out.Body.Score = result.Score
	return out, nil
}

func (s *Server) handleInitTenant(ctx context.Context, input *initTenantInput) (*initTenantOutput, error) {
	if err := s.gallery.InitTenant(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	out := &initTenantOutput{}
	out.Body.Status = "initialized"
	return out, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	tenants, err := s.gallery.Tenants(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "ok"
	out.Body.Tenants = tenants
	return out, nil
}

// apiError maps a service error onto the matching HTTP status, keeping the
// dotted error code in the response detail.
func apiError(err error) error {
	msg := err.Error()
	if code := sgerr.CodeOf(err); code != "" {
		msg = fmt.Sprintf("%s: %s", code, msg)
	}
	return huma.NewError(sgerr.HTTPStatus(err), msg)
}
