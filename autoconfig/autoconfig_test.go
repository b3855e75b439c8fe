package autoconfig

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSanitizeClampsPercentages(t *testing.T) {
	cfg := Config{CO2: SensorConfig{Enabled: true, Band: Band{Green: -5, Yellow: 40, Orange: 70, Red: 250}}}
	got := Sanitize(cfg)
	want := Band{Green: 0, Yellow: 40, Orange: 70, Red: 100}
	if diff := cmp.Diff(want, got.CO2.Band); diff != "" {
		t.Fatalf("Sanitize mismatch (-want +got):\n%s", diff)
	}
}

func TestDeserializeFlatForm(t *testing.T) {
	text := []byte(`{"enabled":true,"co2":{"enabled":true,"band":{"green":10,"yellow":20,"orange":30,"red":40}}}`)
	cfg, err := Deserialize(text)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !cfg.Enabled || cfg.CO2.Band.Red != 40 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestDeserializeLegacyAutoWrapper(t *testing.T) {
	text := []byte(`{"auto":{"enabled":true,"pm25":{"enabled":false,"band":{"green":1,"yellow":2,"orange":3,"red":4}}}}`)
	cfg, err := Deserialize(text)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !cfg.Enabled || cfg.PM25.Enabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestDeserializeMissingFieldsKeepFactoryDefaults(t *testing.T) {
	cfg, err := Deserialize([]byte(`{"enabled":true}`))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	want := Sanitize(Default())
	if diff := cmp.Diff(want.CO2, cfg.CO2); diff != "" {
		t.Fatalf("expected omitted channel to retain factory defaults (-want +got):\n%s", diff)
	}
	if !cfg.Enabled {
		t.Fatalf("expected explicit field to still apply, got %+v", cfg)
	}
}

func TestDeserializeMalformedTextFails(t *testing.T) {
	if _, err := Deserialize([]byte(`{not json`)); err == nil {
		t.Fatal("expected malformed JSON to fail")
	}
}

func TestRoundTripSerializeDeserializeSanitizeIsIdempotent(t *testing.T) {
	cfg := Sanitize(Default())
	cfg.CO.Band.Red = 5000 // will be clamped back to 100 by Sanitize

	text, err := Serialize(cfg)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	back, err := Deserialize(text)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	want := Sanitize(cfg)
	if diff := cmp.Diff(want, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDecodeForFileRoundTrips(t *testing.T) {
	cfg := Sanitize(Default())
	raw, err := EncodeForFile(cfg)
	if err != nil {
		t.Fatalf("EncodeForFile: %v", err)
	}
	back, err := DecodeFromFile(raw)
	if err != nil {
		t.Fatalf("DecodeFromFile: %v", err)
	}
	if diff := cmp.Diff(cfg, back); diff != "" {
		t.Fatalf("file round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFromFileRejectsTornWrite(t *testing.T) {
	cfg := Sanitize(Default())
	raw, err := EncodeForFile(cfg)
	if err != nil {
		t.Fatalf("EncodeForFile: %v", err)
	}
	truncated := raw[:len(raw)/2]
	if _, err := DecodeFromFile(truncated); err == nil {
		t.Fatal("expected truncated file to be rejected")
	}
}

func TestSerializeProducesValidJSON(t *testing.T) {
	text, err := Serialize(Default())
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(text, &m); err != nil {
		t.Fatalf("Serialize output is not valid JSON: %v", err)
	}
}
