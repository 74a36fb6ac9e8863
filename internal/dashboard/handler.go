// Package dashboard serves the upload form, report previews, charts and CSV
// downloads over HTTP.
package dashboard

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
	"github.com/Wuchinator/astro-chat-analytics/internal/astrologer"
	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"github.com/Wuchinator/astro-chat-analytics/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	fieldProfile   = "profile"
	fieldRaw       = "raw_file"
	fieldCompleted = "completed_file"
	fieldAstro     = "astro_file"

	// multipart parts above this size spill to temporary files
	multipartMemory = 32 << 20
	previewRows     = 1000
)

type Runner interface {
	Run(ctx context.Context, profile analytics.Profile, in analytics.Inputs) (*analytics.Result, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, result *analytics.Result, files report.Files) ([]string, error)
}

type Options struct {
	Profiles       *analytics.Profiles
	DefaultProfile string
	MaxUploadBytes int64
	// Astrologers replaces the astro_type.csv upload when set.
	Astrologers astrologer.Repository
	// Delivery saves every finished run when set.
	Delivery Deliverer
	// Health reports the state of external dependencies.
	Health func(ctx context.Context) error
}

type Handler struct {
	runner    Runner
	history   *History
	opts      Options
	templates *template.Template
	logger    *zap.Logger
}

func NewHandler(runner Runner, history *History, opts Options, logger *zap.Logger) (*Handler, error) {
	if opts.Profiles == nil {
		return nil, errors.New("dashboard needs at least one report profile")
	}
	if _, err := opts.Profiles.Get(opts.DefaultProfile); err != nil {
		return nil, fmt.Errorf("default profile: %w", err)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Handler{
		runner:    runner,
		history:   history,
		opts:      opts,
		templates: tmpl,
		logger:    logger,
	}, nil
}

type profileOption struct {
	Name     string
	Title    string
	Selected bool
}

type indexView struct {
	Title       string
	Profiles    []profileOption
	Prompt      string
	Error       string
	Reports     []*Entry
	AstroFromDB bool
}

func (h *Handler) indexView(selected string) indexView {
	if selected == "" {
		selected = h.opts.DefaultProfile
	}
	view := indexView{
		Title:       "Astrology Chat Data Processor",
		Reports:     h.history.List(),
		AstroFromDB: h.opts.Astrologers != nil,
	}
	for _, name := range h.opts.Profiles.Names() {
		p, _ := h.opts.Profiles.Get(name)
		title := p.Title
		if title == "" {
			title = p.Name
		}
		view.Profiles = append(view.Profiles, profileOption{Name: name, Title: title, Selected: name == selected})
	}
	return view
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	view := h.indexView(r.URL.Query().Get(fieldProfile))
	if h.history.Len() == 0 {
		view.Prompt = PromptMessage
	}
	h.render(w, http.StatusOK, "index", view)
}

// CreateReport runs one report over the uploaded files and redirects to its preview.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.opts.MaxUploadBytes {
		h.renderError(w, http.StatusRequestEntityTooLarge, "", fmt.Sprintf("Upload exceeds %d bytes.", h.opts.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderError(w, http.StatusRequestEntityTooLarge, "", fmt.Sprintf("Upload exceeds %d bytes.", h.opts.MaxUploadBytes))
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			h.renderError(w, http.StatusBadRequest, "", "Could not read the upload.")
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	name := r.FormValue(fieldProfile)
	if name == "" {
		name = h.opts.DefaultProfile
	}
	profile, err := h.opts.Profiles.Get(name)
	if err != nil {
		h.renderError(w, http.StatusBadRequest, "", fmt.Sprintf("Unknown report %q.", name))
		return
	}

	in, err := h.readInputs(r, profile)
	if errors.Is(err, ErrMissingUpload) {
		view := h.indexView(profile.Name)
		view.Prompt = PromptMessage
		h.render(w, http.StatusOK, "index", view)
		return
	}
	if err != nil {
		h.logger.Warn("Rejected upload", zap.Error(err))
		h.renderError(w, http.StatusBadRequest, profile.Name, err.Error())
		return
	}

	result, err := h.runner.Run(r.Context(), profile, in)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analytics.ErrInvalidTimestamp) || errors.Is(err, dataset.ErrMissingColumn) {
			status = http.StatusUnprocessableEntity
		}
		h.logger.Error("Report run failed", zap.String("profile", profile.Name), zap.Error(err))
		h.renderError(w, status, profile.Name, err.Error())
		return
	}

	entry, err := h.finish(r.Context(), profile, result)
	if err != nil {
		h.logger.Error("Failed to render report", zap.Error(err))
		h.renderError(w, http.StatusInternalServerError, profile.Name, "Could not render the report.")
		return
	}

	http.Redirect(w, r, "/reports/"+entry.ID, http.StatusSeeOther)
}

func (h *Handler) readInputs(r *http.Request, profile analytics.Profile) (analytics.Inputs, error) {
	var in analytics.Inputs
	var err error

	if in.Events, err = readUpload(r, fieldRaw); err != nil {
		return in, err
	}
	if profile.NeedsCompleted() {
		if in.Completed, err = readUpload(r, fieldCompleted); err != nil {
			return in, err
		}
	}

	var list []astrologer.Astrologer
	if h.opts.Astrologers != nil {
		if list, err = h.opts.Astrologers.List(r.Context()); err != nil {
			return in, fmt.Errorf("could not load astrologers: %w", err)
		}
	} else {
		table, err := readUpload(r, fieldAstro)
		if err != nil {
			return in, err
		}
		if list, err = astrologer.FromTable(table); err != nil {
			return in, err
		}
	}
	in.Astrologers = astrologer.NewDirectory(list, h.logger)
	return in, nil
}

func readUpload(r *http.Request, field string) (*dataset.Table, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("%w: %s", ErrMissingUpload, field)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", field, err)
	}
	defer file.Close()

	if header.Size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingUpload, field)
	}

	t, err := dataset.ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %w", header.Filename, field, err)
	}
	return t, nil
}

func (h *Handler) finish(ctx context.Context, profile analytics.Profile, result *analytics.Result) (*Entry, error) {
	data, err := report.CSV(result.Report)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:        result.RunID.String(),
		Title:     profile.Title,
		Result:    result,
		CSV:       data,
		Charts:    report.Charts(result.Report),
		CreatedAt: result.Report.GeneratedAt,
	}
	if entry.Title == "" {
		entry.Title = profile.Name
	}

	if h.opts.Delivery != nil {
		locations, err := h.opts.Delivery.Deliver(ctx, result, report.RunFiles(entry.ID))
		if err != nil {
			h.logger.Error("Failed to save report", zap.String("run_id", entry.ID), zap.Error(err))
		}
		entry.Locations = locations
	}

	h.history.Add(entry)
	return entry, nil
}

type reportView struct {
	Title     string
	ID        string
	Header    []string
	Rows      [][]string
	Total     int
	Truncated bool
	Locations []string
}

func (h *Handler) ShowReport(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	table, err := entry.Result.Report.Table()
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "", "Could not render the report.")
		return
	}

	view := reportView{
		Title:     entry.Title,
		ID:        entry.ID,
		Header:    table.Columns(),
		Total:     table.Len(),
		Locations: entry.Locations,
	}
	n := table.Len()
	if n > previewRows {
		n = previewRows
		view.Truncated = true
	}
	for i := 0; i < n; i++ {
		row := table.Row(i)
		values := make([]string, len(row))
		for j, c := range row {
			values[j] = c.Value
		}
		view.Rows = append(view.Rows, values)
	}

	h.render(w, http.StatusOK, "report", view)
}

func (h *Handler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FinalFileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(entry.CSV); err != nil {
		h.logger.Warn("Failed to write csv download", zap.Error(err))
	}
}

func (h *Handler) Charts(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, entry.Charts)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"reports": h.history.Len(),
	}
	if h.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.Health(ctx); err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			h.respondJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	h.respondJSON(w, http.StatusOK, body)
}

func (h *Handler) entry(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	id := chi.URLParam(r, "id")
	entry, err := h.history.Get(id)
	if err != nil {
		http.Error(w, ErrReportNotFound.Error(), http.StatusNotFound)
		return nil, false
	}
	return entry, true
}

func (h *Handler) renderError(w http.ResponseWriter, status int, profile, message string) {
	view := h.indexView(profile)
	view.Error = message
	h.render(w, status, "index", view)
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("Failed to write JSON response", zap.Error(err))
	}
}
