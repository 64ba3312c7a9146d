package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/reconcile"
	"github.com/sells-group/recon-cli/internal/store"
)

type compareRequest struct {
	Left  any    `json:"left"`
	Right any    `json:"right"`
	Shape string `json:"shape"`
}

type compareResponse struct {
	Report  *model.ComparisonReport     `json:"report"`
	Summary reconcile.ComparisonSummary `json:"summary"`
}

type auditRequest struct {
	Record any    `json:"record"`
	Shape  string `json:"shape"`
}

type correctionsRequest struct {
	Record         any             `json:"record"`
	Findings       []model.Finding `json:"findings"`
	CriticalIssues []string        `json:"critical_issues"`
}

type reconcileRequest struct {
	Record     any                       `json:"record"`
	Shape      string                    `json:"shape"`
	Report     *model.VerificationReport `json:"report"`
	ReportText string                    `json:"report_text"`
}

func (req reconcileRequest) job() reconcile.Job {
	return reconcile.Job{
		Document:   model.Document{Shape: resolveShape(req.Shape, req.Record), Record: req.Record},
		Report:     req.Report,
		ReportText: req.ReportText,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"store":    s.deps.Store != nil,
		"pipeline": s.deps.Pipeline != nil,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decode(w, r, &req) {
		return
	}
	shape := resolveShape(req.Shape, req.Left)
	report := reconcile.NewComparator(s.deps.Options.Rules).Compare(req.Left, req.Right, shape)
	writeJSON(w, http.StatusOK, compareResponse{Report: report, Summary: reconcile.SummarizeComparison(report)})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if !decode(w, r, &req) {
		return
	}
	shape := resolveShape(req.Shape, req.Record)
	writeJSON(w, http.StatusOK, reconcile.AuditCalculations(req.Record, shape, s.options().Audit))
}

func (s *Server) handleCorrections(w http.ResponseWriter, r *http.Request) {
	var req correctionsRequest
	if !decode(w, r, &req) {
		return
	}
	res := reconcile.CorrectRecord(req.Record, &model.VerificationReport{
		Findings:       req.Findings,
		CriticalIssues: req.CriticalIssues,
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if !decode(w, r, &req) {
		return
	}
	job := req.job()
	var res *reconcile.Result
	if job.Report != nil {
		res = reconcile.Reconcile(job.Document, job.Report, s.options())
	} else {
		res = reconcile.ReconcileRaw(job.Document, job.ReportText, s.options())
	}
	writeJSON(w, http.StatusOK, res)
}

// maxBatch caps the items of one batch request.
const maxBatch = 100

type batchRequest struct {
	Items []reconcileRequest `json:"items"`
}

type batchResponse struct {
	Results []*reconcile.Result `json:"results"`
}

func (s *Server) handleReconcileBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 || len(req.Items) > maxBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("items must hold 1 to %d records", maxBatch))
		return
	}

	jobs := make([]reconcile.Job, len(req.Items))
	for i, item := range req.Items {
		jobs[i] = item.job()
	}
	results, err := reconcile.ReconcileAll(r.Context(), jobs, s.options(), s.deps.Concurrency)
	if err != nil {
		// Only a cancelled request gets here; nobody is left to answer.
		zap.L().Warn("api: batch abandoned", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "document pipeline not configured")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close() //nolint:errcheck

	path, err := spool(file, filepath.Ext(header.Filename))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	defer os.Remove(path) //nolint:errcheck

	shape, _ := model.ParseShape(r.FormValue("shape"))
	out, err := s.deps.Pipeline.Process(r.Context(), path, shape)
	if err != nil {
		zap.L().Error("api: document failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("file", header.Filename),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Shape:  model.Shape(q.Get("shape")),
		Source: q.Get("source"),
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if raw := q.Get(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid "+key)
				return
			}
			*dst = n
		}
	}

	runs, err := s.deps.Store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.deps.Store.GetRun(r.Context(), id)
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("api: get run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// resolveShape parses tag, falling back to the root type of record.
func resolveShape(tag string, record any) model.Shape {
	if shape, ok := model.ParseShape(tag); ok {
		return shape
	}
	return model.DetectShape(record)
}

func spool(src io.Reader, ext string) (string, error) {
	f, err := os.CreateTemp("", "recon-upload-*"+ext)
	if err != nil {
		return "", eris.Wrap(err, "api: create temp file")
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()           //nolint:errcheck
		os.Remove(f.Name()) //nolint:errcheck
		return "", eris.Wrap(err, "api: write upload")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name()) //nolint:errcheck
		return "", eris.Wrap(err, "api: close upload")
	}
	return f.Name(), nil
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeJSON encodes v before writing the status so an unencodable body
// becomes a 500 rather than a truncated success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
		status = http.StatusInternalServerError
		data = []byte(`{"error":"response could not be encoded"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
