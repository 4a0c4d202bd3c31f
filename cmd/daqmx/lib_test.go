package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func mockConfig() Config {
	return Config{
		Mock: true,
		Devices: []DeviceSetup{
			{Endpoint: "bench/daq", Name: "Dev1"},
			{Endpoint: "/bench/daq2/", Serial: "0xBEEF"},
		},
	}
}

func TestBuildMuxServesEveryDevice(t *testing.T) {
	c := mockConfig()
	mux, err := BuildMux(c, MockDriver(c, zerolog.Nop()), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/endpoints")
	if err != nil {
		t.Fatal(err)
	}
	graph := map[string][]string{}
	err = json.NewDecoder(resp.Body).Decode(&graph)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	for _, ep := range []string{"/bench/daq", "/bench/daq2"} {
		routes, ok := graph[ep]
		if !ok {
			t.Fatalf("expected %s in %v", ep, graph)
		}
		joined := strings.Join(routes, "\n")
		for _, want := range []string{"GET /lock", "POST /ao", "POST /dio/port2/line0"} {
			if !strings.Contains(joined, want) {
				t.Errorf("%s: missing route %s", ep, want)
			}
		}
	}

	resp, err = http.Get(srv.URL + "/bench/daq2/device")
	if err != nil {
		t.Fatal(err)
	}
	var dev struct {
		Serial uint32 `json:"serial"`
	}
	err = json.NewDecoder(resp.Body).Decode(&dev)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if dev.Serial != 0xBEEF {
		t.Errorf("expected the second device to have serial BEEF, got %X", dev.Serial)
	}
}

func TestBuildMuxLock(t *testing.T) {
	c := mockConfig()
	mux, err := BuildMux(c, MockDriver(c, zerolog.Nop()), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/bench/daq/lock", "application/json", strings.NewReader(`{"bool":true}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	resp, err = http.Post(srv.URL+"/bench/daq/ao", "application/json", strings.NewReader(`{"channel":"ao0","voltage":1}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusLocked {
		t.Errorf("expected 423 from a locked device, got %d", resp.StatusCode)
	}
	resp, err = http.Post(srv.URL+"/bench/daq2/ao", "application/json", strings.NewReader(`{"channel":"ao0","voltage":1}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("locking one device must not lock another, got %d", resp.StatusCode)
	}
}

func TestBuildMuxRejectsDuplicates(t *testing.T) {
	c := mockConfig()
	c.Devices[1].Endpoint = "/bench/daq"
	c.Devices[1].Serial = ""
	c.Devices[1].Name = "Dev2"
	if _, err := BuildMux(c, MockDriver(c, zerolog.Nop()), zerolog.Nop()); err == nil {
		t.Error("expected a duplicate endpoint to be rejected")
	}
}

func TestBuildMuxRejectsSameDeviceTwice(t *testing.T) {
	c := Config{Mock: true, Devices: []DeviceSetup{
		{Endpoint: "/a", Name: "Dev1"},
		{Endpoint: "/b", Model: "USB-6001"},
	}}
	drv := MockDriver(Config{Devices: c.Devices[:1]}, zerolog.Nop())
	_, err := BuildMux(c, drv, zerolog.Nop())
	if err == nil {
		t.Fatal("expected two endpoints on one device to be rejected")
	}
	if !strings.Contains(err.Error(), "Dev1") {
		t.Errorf("expected the error to name the device, got %v", err)
	}
}

func TestBuildMuxUnknownDevice(t *testing.T) {
	c := mockConfig()
	drv := MockDriver(c, zerolog.Nop())
	c.Devices[0].Name = "Dev7"
	if _, err := BuildMux(c, drv, zerolog.Nop()); err == nil {
		t.Error("expected an unknown device name to fail")
	}
}
