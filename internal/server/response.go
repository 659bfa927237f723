package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/metal-tracker/internal/apperror"
	"github.com/ahmethakanbesel/metal-tracker/internal/metric"
)

type APIResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func writeJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[T]{
		Message: "ok",
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[string]{
		Message: message,
		Data:    "",
	})
}

// writeAppError maps err to its status code. Errors without a code are
// logged and reported as 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if ae, ok := apperror.As(err); ok {
		writeError(w, ae.HTTPStatus(), ae.Error())
		return
	}
	if errors.Is(err, r.Context().Err()) && r.Context().Err() != nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}
	requestLogger(r.Context()).Error("request failed", "path", r.URL.Path, "error", err) //nolint:gosec // structured logging
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// number renders a decimal as a JSON number without losing precision.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func nullNumber(d decimal.NullDecimal) *json.Number {
	if !d.Valid {
		return nil
	}
	n := number(d.Decimal)
	return &n
}

type recordDTO struct {
	Date          string       `json:"date"`
	OunceUnit     *json.Number `json:"ounceUnit"`
	ConvertedUnit json.Number  `json:"convertedUnit"`
}

type timeframeDTO struct {
	Start       string      `json:"start"`
	End         string      `json:"end"`
	OK          bool        `json:"ok"`
	Source      string      `json:"source"`
	Error       string      `json:"error,omitempty"`
	Inserted    int64       `json:"inserted"`
	WriteErrors []string    `json:"writeErrors,omitempty"`
	Data        []recordDTO `json:"data"`
}

func newTimeframeDTO(req metric.ReconcileRequest, res *metric.ReconcileResult) timeframeDTO {
	dto := timeframeDTO{
		Start:    req.Start,
		End:      req.End,
		OK:       res.OK,
		Source:   res.Source,
		Inserted: res.Inserted,
		Data:     make([]recordDTO, 0, len(res.Data)),
	}
	if res.Err != nil {
		dto.Error = res.Err.Error()
	}
	for _, e := range res.WriteErrors {
		dto.WriteErrors = append(dto.WriteErrors, e.Error())
	}
	for _, rec := range res.Data {
		dto.Data = append(dto.Data, recordDTO{
			Date:          rec.Date,
			OunceUnit:     nullNumber(rec.OunceUnit),
			ConvertedUnit: number(rec.ConvertedUnit),
		})
	}
	return dto
}

type valueDTO struct {
	ID         int64        `json:"id"`
	SourceID   int64        `json:"sourceId"`
	Value      json.Number  `json:"value"`
	BasePrice  *json.Number `json:"basePrice"`
	RecordedAt time.Time    `json:"recordedAt"`
	Origin     string       `json:"origin"`
}

func newValueDTO(v metric.Value) valueDTO {
	return valueDTO{
		ID:         v.ID,
		SourceID:   v.SourceID,
		Value:      number(v.Value),
		BasePrice:  nullNumber(v.BasePrice),
		RecordedAt: v.RecordedAt,
		Origin:     string(v.Origin),
	}
}

type fetchDTO struct {
	AddedPrice *json.Number `json:"addedPrice"`
}
