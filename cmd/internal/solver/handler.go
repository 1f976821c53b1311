package solver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"aya/cmd/internal/auth/api"
)

const (
	msgEmptyQuestion  = "Please enter a question first."
	msgUploadTmpl     = "Please upload %s first."
	msgUnsupported    = "Unsupported problem kind."
	msgInvalidRequest = "Invalid request."
	msgTooLarge       = "The uploaded file is too large."

	// multipartOverhead leaves room for the form fields around the file part.
	multipartOverhead = 64 << 10
)

type solveRequest struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Handler serves POST /solve. It expects to run behind a session check.
type Handler struct {
	svc            *Service
	log            *slog.Logger
	maxUploadBytes int64
}

// NewHandler constructs the solve endpoint.
func NewHandler(log *slog.Logger, svc *Service, cfg Config) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("solver: nil service")
	}
	if log == nil {
		log = slog.Default()
	}
	limit := cfg.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	return &Handler{svc: svc, log: log, maxUploadBytes: limit}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p, status, err := h.readProblem(w, r)
	if err != nil {
		h.log.Debug("solver.request.reject", "err", err)
		api.WriteError(w, status, "invalid_request", msgForStatus(status))
		return
	}

	sol, err := h.svc.Solve(r.Context(), p)
	if err != nil {
		code, msg := problemError(err)
		api.WriteError(w, http.StatusBadRequest, code, msg)
		return
	}

	if claims, ok := api.ClaimsFromContext(r.Context()); ok {
		h.log.Info("solver.request.done", "username", claims.Username, "id", sol.ID, "kind", sol.Kind, "failed", sol.Failed)
	}
	api.WriteJSON(w, http.StatusOK, sol)
}

func (h *Handler) readProblem(w http.ResponseWriter, r *http.Request) (Problem, int, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return Problem{}, http.StatusRequestEntityTooLarge, err
			}
			return Problem{}, http.StatusBadRequest, err
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		p := Problem{Text: r.FormValue("text")}
		kind, err := ParseKind(r.FormValue("kind"))
		if err != nil {
			// Let Solve report the unsupported kind.
			kind = Kind(r.FormValue("kind"))
		}
		p.Kind = kind

		f, fh, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			return p, 0, nil
		case err != nil:
			return Problem{}, http.StatusBadRequest, err
		}
		defer func() { _ = f.Close() }()

		data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
		if err != nil {
			return Problem{}, http.StatusBadRequest, err
		}
		if int64(len(data)) > h.maxUploadBytes {
			return Problem{}, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", h.maxUploadBytes)
		}
		p.Filename = fh.Filename
		p.Upload = data
		return p, 0, nil

	case "application/json", "":
		var req solveRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, multipartOverhead))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return Problem{}, http.StatusBadRequest, err
		}
		kind, err := ParseKind(req.Kind)
		if err != nil {
			kind = Kind(req.Kind)
		}
		return Problem{Kind: kind, Text: req.Text}, 0, nil

	default:
		return Problem{}, http.StatusUnsupportedMediaType, fmt.Errorf("content type %q", ct)
	}
}

func problemError(err error) (string, string) {
	var mu MissingUploadError
	switch {
	case errors.Is(err, ErrEmptyQuestion):
		return "empty_question", msgEmptyQuestion
	case errors.As(err, &mu):
		return "missing_upload", fmt.Sprintf(msgUploadTmpl, mu.Kind.noun())
	case errors.Is(err, ErrUnsupportedKind):
		return "unsupported_kind", msgUnsupported
	default:
		return "invalid_request", msgInvalidRequest
	}
}

func msgForStatus(status int) string {
	if status == http.StatusRequestEntityTooLarge {
		return msgTooLarge
	}
	return msgInvalidRequest
}

