package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ahmethakanbesel/metal-tracker/internal/alert"
	"github.com/ahmethakanbesel/metal-tracker/internal/metric"
	"github.com/ahmethakanbesel/metal-tracker/internal/report"
)

const maxHistory = 500

// Store is the read side of the metric repository used by the API.
type Store interface {
	ListActiveSources(ctx context.Context) ([]metric.Source, error)
	FindActiveSource(ctx context.Context, code string) (*metric.Source, error)
	LatestValue(ctx context.Context, sourceID int64) (*metric.Value, error)
	LastValueBefore(ctx context.Context, sourceID int64, from, to time.Time) (*metric.Value, error)
	History(ctx context.Context, sourceID int64, limit int) ([]metric.Value, error)
}

type Services struct {
	Metrics *metric.Service
	Reports *report.Service
	Alerts  *alert.Service
	Store   Store

	// MetalSymbol is the tracked metal's symbol, XAU when empty.
	MetalSymbol string
}

type handler struct {
	metrics *metric.Service
	reports *report.Service
	alerts  *alert.Service
	store   Store
	symbol  string
}

// metalSymbols maps the metal names accepted in paths to upstream symbols.
var metalSymbols = map[string]string{
	"gold":   "XAU",
	"silver": "XAG",
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.ListActiveSources(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (h *handler) timeframe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := metric.ReconcileRequest{
		Start:          q.Get("start_date"),
		End:            q.Get("end_date"),
		PersistMissing: q.Get("persist") != "false",
	}

	if appErr := req.Validate(); appErr != nil {
		writeError(w, appErr.HTTPStatus(), appErr.Message())
		return
	}

	res, err := h.metrics.Reconcile(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTimeframeDTO(req, res))
}

func (h *handler) fetchLatest(w http.ResponseWriter, r *http.Request) {
	v, err := h.metrics.FetchLatest(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	var dto fetchDTO
	if v != nil {
		n := number(v.Value)
		dto.AddedPrice = &n
	}
	writeJSON(w, http.StatusOK, dto)
}

type reportDTO struct {
	SourceName  string      `json:"sourceName"`
	Yesterday   json.Number `json:"yesterday"`
	Today       json.Number `json:"today"`
	Change      json.Number `json:"change"`
	Pct         json.Number `json:"pct"`
	YesterdayAt time.Time   `json:"yesterdayAt"`
	TodayAt     time.Time   `json:"todayAt"`
}

func (h *handler) dailyReport(w http.ResponseWriter, r *http.Request) {
	d, err := h.reports.Today(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "no price data available for today or yesterday")
		return
	}
	writeJSON(w, http.StatusOK, reportDTO{
		SourceName:  d.SourceName,
		Yesterday:   number(d.Yesterday),
		Today:       number(d.Today),
		Change:      number(d.Change),
		Pct:         number(d.Pct),
		YesterdayAt: d.YesterdayAt,
		TodayAt:     d.TodayAt,
	})
}

// todayValue returns the latest value recorded on the current UTC day for
// the named metal.
func (h *handler) todayValue(w http.ResponseWriter, r *http.Request) {
	metal := strings.ToLower(r.PathValue("metal"))
	symbol, ok := metalSymbols[metal]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown metal "+metal)
		return
	}
	if symbol != h.symbol {
		writeError(w, http.StatusNotFound, metal+" is not tracked")
		return
	}

	src, err := h.store.FindActiveSource(r.Context(), h.metrics.SourceCode())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if src == nil {
		writeError(w, http.StatusNotFound, "no active source configured")
		return
	}

	now := time.Now()
	v, err := h.store.LastValueBefore(r.Context(), src.ID, metric.StartOfDay(now), metric.StartOfDay(now).AddDate(0, 0, 1))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "no value recorded today")
		return
	}
	writeJSON(w, http.StatusOK, newValueDTO(*v))
}

func (h *handler) latestValue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid source id")
	if !ok {
		return
	}

	v, err := h.store.LatestValue(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "no values recorded for source")
		return
	}
	writeJSON(w, http.StatusOK, newValueDTO(*v))
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid source id")
	if !ok {
		return
	}

	limit := maxHistory
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistory)
	}

	values, err := h.store.History(r.Context(), id, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	out := make([]valueDTO, 0, len(values))
	for _, v := range values {
		out = append(out, newValueDTO(v))
	}
	writeJSON(w, http.StatusOK, out)
}

type createRuleBody struct {
	SourceCode string      `json:"sourceCode"`
	Condition  string      `json:"condition"`
	Threshold  json.Number `json:"threshold"`
	Email      string      `json:"email"`
}

func (h *handler) createRule(w http.ResponseWriter, r *http.Request) {
	var body createRuleBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.SourceCode == "" {
		body.SourceCode = h.metrics.SourceCode()
	}

	rule, err := h.alerts.CreateRule(r.Context(), alert.CreateRuleRequest{
		SourceCode: body.SourceCode,
		Condition:  body.Condition,
		Threshold:  body.Threshold.String(),
		Email:      body.Email,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *handler) ruleLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid rule id")
	if !ok {
		return
	}
	logs, err := h.alerts.Logs(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if logs == nil {
		logs = []alert.Log{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func pathID(w http.ResponseWriter, r *http.Request, msg string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}
