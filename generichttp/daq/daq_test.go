package daq_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/daqmx/generichttp/daq"
	"github.com/nasa-jpl/daqmx/nidaqmx"
	"github.com/nasa-jpl/daqmx/nidaqmx/sim"
)

func newServer(t *testing.T) (*httptest.Server, *sim.Driver) {
	t.Helper()
	drv := sim.New()
	drv.AddDevice(sim.USB6001("Dev1", 0x1A2B3C4D))
	in, err := nidaqmx.New(drv, nidaqmx.Selector{})
	if err != nil {
		t.Fatal(err)
	}
	h, err := daq.NewHTTPDAQ(in)
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	h.RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, drv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestDeviceInfo(t *testing.T) {
	srv, _ := newServer(t)
	resp := get(t, srv.URL+"/device")
	defer resp.Body.Close()
	var d nidaqmx.Device
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatal(err)
	}
	if d.Name != "Dev1" || d.Model != "USB-6001" || d.SerialNumber != 0x1A2B3C4D {
		t.Errorf("unexpected device %+v", d)
	}
}

func TestModelRoute(t *testing.T) {
	srv, _ := newServer(t)
	resp := get(t, srv.URL+"/model")
	defer resp.Body.Close()
	var s struct {
		Str string `json:"str"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Str != "USB-6001" {
		t.Errorf("expected USB-6001, got %q", s.Str)
	}
}

func TestAnalogRoutes(t *testing.T) {
	srv, drv := newServer(t)
	drv.Wire("Dev1/ao1", "Dev1/ai0")

	resp := post(t, srv.URL+"/ao", `{"channel":"ao1","voltage":2.5}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /ao: status %d", resp.StatusCode)
	}
	if v := drv.AnalogOutput("Dev1/ao1"); v != 2.5 {
		t.Errorf("expected 2.5 V on ao1, got %v", v)
	}

	resp = get(t, srv.URL+"/ai?channel=ai0")
	var f struct {
		F64 float64 `json:"f64"`
	}
	err := json.NewDecoder(resp.Body).Decode(&f)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if f.F64 != 2.5 {
		t.Errorf("expected 2.5 V on ai0, got %v", f.F64)
	}

	resp = post(t, srv.URL+"/ai", `{"channel":"ai0","samples":16,"rate":100,"mode":"rse"}`)
	var samples []float64
	err = json.NewDecoder(resp.Body).Decode(&samples)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 16 {
		t.Errorf("expected 16 samples, got %d", len(samples))
	}

	resp = post(t, srv.URL+"/ao/ao0", `{"f64":-1}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || drv.AnalogOutput("Dev1/ao0") != -1 {
		t.Errorf("per-channel write failed: status %d", resp.StatusCode)
	}
}

func TestErrorStatus(t *testing.T) {
	srv, _ := newServer(t)
	cases := []struct {
		path, body string
		code       int
	}{
		{"/ao", `{"channel":"ao7","voltage":1}`, http.StatusNotFound},
		{"/ao", `{"channel":"ai0","voltage":1}`, http.StatusBadRequest},
		{"/ao", `{"channel":"ao0","voltage":11}`, http.StatusBadRequest},
		{"/ao", `not json`, http.StatusBadRequest},
		{"/ai", `{"channel":"ai0","samples":0}`, http.StatusBadRequest},
		{"/dio", `{"port":0,"line":0,"value":1}`, http.StatusBadRequest},
		{"/dio", `{"port":0,"line":0}`, http.StatusBadRequest},
		{"/frequency", `{"channel":"ai1","samples":100,"rate":100}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		resp := post(t, srv.URL+tc.path, tc.body)
		resp.Body.Close()
		if resp.StatusCode != tc.code {
			t.Errorf("POST %s %s: expected %d, got %d", tc.path, tc.body, tc.code, resp.StatusCode)
		}
	}
}

func TestDigitalRoutes(t *testing.T) {
	srv, drv := newServer(t)
	resp := post(t, srv.URL+"/dio", `{"port":1,"line":2,"value":true}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /dio: status %d", resp.StatusCode)
	}
	if !drv.Line("Dev1/port1/line2") {
		t.Error("expected port1/line2 to be high")
	}

	drv.SetLine("Dev1/port0/line5", true)
	resp = get(t, srv.URL+"/dio?port=0&line=5")
	var b struct {
		Bool bool `json:"bool"`
	}
	err := json.NewDecoder(resp.Body).Decode(&b)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !b.Bool {
		t.Error("expected port0/line5 to read high")
	}

	resp = get(t, srv.URL+"/dio?port=zero&line=5")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad port, got %d", resp.StatusCode)
	}

	resp = post(t, srv.URL+"/dio/port2/line0", `{"bool":true}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !drv.Line("Dev1/port2/line0") {
		t.Errorf("per-line write failed: status %d", resp.StatusCode)
	}

	resp = post(t, srv.URL+"/release", `{"port":1,"line":2}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /release: status %d", resp.StatusCode)
	}
}

func TestFrequencyRoute(t *testing.T) {
	srv, drv := newServer(t)
	drv.SetSignal("Dev1/ai4", sim.Sine(50, 1, 0))
	resp := post(t, srv.URL+"/frequency", `{"channel":"ai4","samples":1000,"rate":1000}`)
	defer resp.Body.Close()
	var f struct {
		F64 float64 `json:"f64"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 != 50 {
		t.Errorf("expected 50 Hz, got %v", f.F64)
	}
}
