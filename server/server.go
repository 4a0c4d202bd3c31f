// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
	"strconv"
	"strings"
)

// FloatT is a struct with a single float64 field, F64
type FloatT struct {
	F64 float64 `json:"f64"`
}

// BoolT is a struct with a single bool field, Bool
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single string field, Str
type StrT struct {
	Str string `json:"str"`
}

// IntT is a struct with a single int field, Int
type IntT struct {
	Int int `json:"int"`
}

// HumanPayload is a tagged union of the scalar types the HTTP interfaces
// return.  T selects the populated field.
type HumanPayload struct {
	T      types.BasicKind
	Float  float64
	Bool   bool
	String string
	Int    int
}

// value returns the populated field wrapped in its xxxT struct
func (hp HumanPayload) value() (interface{}, string, error) {
	switch hp.T {
	case types.Float64:
		return FloatT{F64: hp.Float}, strconv.FormatFloat(hp.Float, 'g', -1, 64), nil
	case types.Bool:
		return BoolT{Bool: hp.Bool}, strconv.FormatBool(hp.Bool), nil
	case types.String:
		return StrT{Str: hp.String}, hp.String, nil
	case types.Int:
		return IntT{Int: hp.Int}, strconv.Itoa(hp.Int), nil
	}
	return nil, "", fmt.Errorf("HumanPayload: type %v not supported", hp.T)
}

// EncodeAndRespond writes the payload as JSON ({"f64": 1.5}), or as plain
// text when the client accepts text/plain and not JSON
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	obj, txt, err := hp.value()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "text/plain") && !strings.Contains(accept, "application/json") {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, txt)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err = json.NewEncoder(w).Encode(obj)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RespondJSON writes v as JSON with a 200 status
func RespondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
