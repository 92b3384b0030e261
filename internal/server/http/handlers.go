package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/auth"
	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/features"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/storage"
	"github.com/helixir/research-assistant-service/internal/temporal"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"max=255"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

type createProjectRequest struct {
	Title  string `json:"title" validate:"required,max=255"`
	Domain string `json:"domain" validate:"max=255"`
	Aim    string `json:"aim"`
}

type listProjectsResponse struct {
	Projects      []*domain.Project `json:"projects"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type listSourcesResponse struct {
	Sources []*domain.Source `json:"sources"`
}

// Column widths of the documents table.
const (
	maxFilenameRunes = 255
	maxMIMELength    = 100
)

type uploadResponse struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
}

// register handles POST /auth/register.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.deps.Auth.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.writeServiceError(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// login handles POST /auth/login.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		User:        res.User,
	})
}

// me handles GET /auth/me.
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

// createProject handles POST /projects.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req createProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	project := &domain.Project{
		ID:     uuid.New(),
		UserID: user.ID,
		Title:  req.Title,
		Domain: req.Domain,
		Aim:    req.Aim,
	}
	if err := s.deps.Projects.Create(r.Context(), project); err != nil {
		s.writeServiceError(w, r, "create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// listProjects handles GET /projects.
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	limit, offset := parsePaginationParams(r)

	projects, err := s.deps.Projects.List(r.Context(), user.ID, limit, offset)
	if err != nil {
		s.writeServiceError(w, r, "list projects", err)
		return
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	writeJSON(w, http.StatusOK, listProjectsResponse{
		Projects:      projects,
		NextPageToken: encodePageToken(offset, limit, len(projects)),
	})
}

// getProject handles GET /projects/{id}. Projects of other users are reported as missing.
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}

	project, err := s.deps.Projects.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeServiceError(w, r, "get project", err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// listProjectSources handles GET /projects/{id}/sources: the papers saved by
// surveys run against the project.
func (s *Server) listProjectSources(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}

	if _, err := s.deps.Projects.Get(r.Context(), user.ID, id); err != nil {
		s.writeServiceError(w, r, "list sources", err)
		return
	}

	sources, err := s.deps.Sources.ListByProject(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "list sources", err)
		return
	}
	if sources == nil {
		sources = []*domain.Source{}
	}
	writeJSON(w, http.StatusOK, listSourcesResponse{Sources: sources})
}

// uploadDocument handles POST /upload?project_id=.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)

	projectID, ok := parseUUID(w, r.URL.Query().Get("project_id"), "project_id")
	if !ok {
		return
	}
	if _, err := s.deps.Projects.Get(ctx, user.ID, projectID); err != nil {
		s.writeServiceError(w, r, "upload", err)
		return
	}

	file, filename, contentType, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	if utf8.RuneCountInString(filename) > maxFilenameRunes {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("filename must be at most %d characters", maxFilenameRunes))
		return
	}
	if len(contentType) > maxMIMELength {
		contentType = "application/octet-stream"
	}

	location, err := s.deps.Store.Save(ctx, storage.UploadKey(filename), contentType, file)
	if err != nil {
		s.writeServiceError(w, r, "store upload", err)
		return
	}

	doc := &domain.Document{
		ID:        uuid.New(),
		ProjectID: projectID,
		UserID:    user.ID,
		Filename:  filename,
		Path:      location,
		MIME:      contentType,
	}
	if err := s.deps.Documents.Create(ctx, doc); err != nil {
		if delErr := s.deps.Store.Delete(ctx, location); delErr != nil {
			observability.LoggerFromContext(ctx, s.logger).Error().
				Err(delErr).
				Str("location", location).
				Msg("failed to remove stored upload")
		}
		s.writeServiceError(w, r, "create document", err)
		return
	}

	observability.LoggerFromContext(ctx, s.logger).Info().
		Str("document_id", doc.ID.String()).
		Str("project_id", projectID.String()).
		Msg("document uploaded")

	writeJSON(w, http.StatusCreated, uploadResponse{DocumentID: doc.ID, Filename: doc.Filename})
}

// startSurveyJob handles POST /survey/jobs. The survey runs in the worker;
// clients poll GET /jobs/{id}.
func (s *Server) startSurveyJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.JobStarter == nil {
		writeError(w, http.StatusNotFound, "survey jobs are disabled")
		return
	}

	ctx := r.Context()
	user, _ := userFromContext(ctx)
	logger := observability.LoggerFromContext(ctx, s.logger)

	var req features.SurveyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	job := &domain.Job{
		ID:     uuid.New(),
		UserID: user.ID,
		Type:   domain.JobTypeSurvey,
		Status: domain.JobStatusQueued,
	}
	if err := s.deps.Jobs.Create(ctx, job); err != nil {
		s.writeServiceError(w, r, "create job", err)
		return
	}

	workflowID, err := s.deps.JobStarter.StartSurveyJob(ctx, job.ID, temporal.SurveyJobInput{
		UserID:  user.ID,
		Request: req,
	})
	if err != nil {
		logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to start survey job")
		if _, uerr := s.deps.Jobs.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, "failed to schedule job", nil); uerr != nil {
			logger.Error().Err(uerr).Str("job_id", job.ID.String()).Msg("failed to mark job failed")
		}
		writeError(w, http.StatusServiceUnavailable, "job scheduler unavailable")
		return
	}

	if err := s.deps.Jobs.SetWorkflowID(ctx, job.ID, workflowID); err != nil {
		logger.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to record workflow id")
	}
	job.WorkflowID = workflowID

	logger.Info().
		Str("job_id", job.ID.String()).
		Str("workflow_id", workflowID).
		Msg("survey job started")

	writeJSON(w, http.StatusAccepted, job)
}

// getJob handles GET /jobs/{id}. Jobs of other users are reported as missing.
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}

	job, err := s.deps.Jobs.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeServiceError(w, r, "get job", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// writeServiceError logs unexpected failures before mapping err to a response.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !isClientError(err) {
		observability.LoggerFromContext(r.Context(), s.logger).Error().Err(err).Str("op", op).Msg("request failed")
	}
	writeDomainError(w, err)
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrAlreadyExists) ||
		errors.Is(err, domain.ErrFeatureDisabled)
}
