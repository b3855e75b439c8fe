package ventapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"

	"github.com/airqc/ventcore/dacbus/dacbustest"
	"github.com/airqc/ventcore/gp8403"
	"github.com/airqc/ventcore/ventctl"
)

func newTestServer(t *testing.T) (*httptest.Server, *ventctl.Core, *dacbustest.Fake) {
	t.Helper()
	bus := dacbustest.NewFake()
	dac := gp8403.New(bus)
	core := ventctl.New(dac, 0x58)
	if err := core.Begin(false); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	r := chi.NewRouter()
	New(core).Mount(r, "")
	return httptest.NewServer(r), core, bus
}

func TestSetManualStepAndStartOverHTTP(t *testing.T) {
	srv, core, bus := newTestServer(t)
	defer srv.Close()
	logBeforePoll := len(bus.Log)

	body, _ := json.Marshal(map[string]int{"int": 4})
	resp, err := http.Post(srv.URL+"/manual-step", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /manual-step: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/start", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST /start: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	core.Poll(0, nil, false)

	resp, err = http.Get(srv.URL + "/snapshot")
	if err != nil {
		t.Fatalf("GET /snapshot: %v", err)
	}
	var snap struct {
		Running    bool `json:"running"`
		OutputMV   int  `json:"output_mv"`
		ManualStep int  `json:"manual_step"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if !snap.Running || snap.OutputMV != 4000 || snap.ManualStep != 4 {
		t.Fatalf("unexpected snapshot over HTTP: %+v", snap)
	}
	if got := len(bus.Log) - logBeforePoll; got != 1 {
		t.Fatalf("expected exactly one DAC write for a same-tick manual-step change + start, got %d: %+v", got, bus.Log[logBeforePoll:])
	}
}

func TestInvalidModeRejected(t *testing.T) {
	srv, _, _ := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"str": "sideways"})
	resp, err := http.Post(srv.URL+"/mode", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /mode: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid mode, got %d", resp.StatusCode)
	}
}
