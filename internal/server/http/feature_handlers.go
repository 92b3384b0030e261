package httpserver

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/features"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// serveFeature decodes a JSON request, runs call for the authenticated user
// and writes its result.
func serveFeature[Req, Resp any](
	s *Server,
	w http.ResponseWriter,
	r *http.Request,
	op string,
	call func(ctx context.Context, user *domain.User, req Req) (Resp, error),
) {
	user, _ := userFromContext(r.Context())

	var req Req
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := call(r.Context(), user, req)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) generateSurvey(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "survey", func(ctx context.Context, user *domain.User, req features.SurveyRequest) (*features.SurveyResponse, error) {
		return s.deps.Features.GenerateSurvey(ctx, user.ID, req)
	})
}

func (s *Server) findGaps(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "gaps", func(ctx context.Context, _ *domain.User, req features.GapRequest) (*features.GapResponse, error) {
		return s.deps.Features.FindGaps(ctx, req)
	})
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "translate", func(ctx context.Context, user *domain.User, req features.TranslateRequest) (*features.TranslateResponse, error) {
		return s.deps.Features.Translate(ctx, user.ID, req)
	})
}

func (s *Server) personaSummary(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "persona summary", func(ctx context.Context, user *domain.User, req features.PersonaSummaryRequest) (*features.PersonaSummaryResponse, error) {
		return s.deps.Features.PersonaSummary(ctx, user.ID, req)
	})
}

func (s *Server) buildMethodology(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "methodology", func(ctx context.Context, _ *domain.User, req features.MethodologyRequest) (*features.MethodologyResponse, error) {
		return s.deps.Features.BuildMethodology(ctx, req)
	})
}

func (s *Server) replicateExperiment(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "replicator", func(ctx context.Context, _ *domain.User, req features.ReplicatorRequest) (*features.ReplicatorResponse, error) {
		return s.deps.Features.ReplicateExperiment(ctx, req)
	})
}

func (s *Server) crossDomain(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "cross-domain", func(ctx context.Context, _ *domain.User, req features.CrossDomainRequest) (*features.CrossDomainResponse, error) {
		return s.deps.Features.SynthesizeCrossDomain(ctx, req)
	})
}

func (s *Server) recommendBenchmarks(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "benchmarks", func(ctx context.Context, _ *domain.User, req features.BenchmarkRequest) (*features.BenchmarkResponse, error) {
		return s.deps.Features.RecommendBenchmarks(ctx, req)
	})
}

func (s *Server) scanContradictions(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "contradictions", func(ctx context.Context, _ *domain.User, req features.ContradictionRequest) (*features.ContradictionResponse, error) {
		return s.deps.Features.AnalyzeContradictions(ctx, req)
	})
}

func (s *Server) validateCitations(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "citations", func(ctx context.Context, _ *domain.User, req features.CitationValidateRequest) (*features.CitationValidateResponse, error) {
		return s.deps.Features.ValidateCitations(ctx, req)
	})
}

func (s *Server) generateLatex(w http.ResponseWriter, r *http.Request) {
	serveFeature(s, w, r, "latex", func(ctx context.Context, _ *domain.User, req features.LatexRequest) (*features.LatexResponse, error) {
		return s.deps.Features.GenerateLatex(ctx, req)
	})
}

// transcribe handles POST /voice/transcribe with a multipart "file" field.
func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	file, filename, contentType, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	resp, err := s.deps.Features.Transcribe(r.Context(), filename, contentType, file)
	if err != nil {
		s.writeServiceError(w, r, "transcribe", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// formFile reads the "file" part of a size-limited multipart body. It writes
// the error response and returns ok=false on failure.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, string, bool) {
	if r.ContentLength > s.cfg.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return nil, "", "", false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return nil, "", "", false
		}
		writeError(w, http.StatusBadRequest, "multipart form with a file field is required")
		return nil, "", "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return nil, "", "", false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return file, header.Filename, contentType, true
}
