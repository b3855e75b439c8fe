package autoconfig

import "encoding/json"

// Serialize always emits the flat form, after sanitizing. Byte-exact
// reproduction of whatever was last deserialized is not guaranteed or
// required; only the sanitized field values are.
func Serialize(c Config) ([]byte, error) {
	return json.Marshal(Sanitize(c))
}

// Deserialize parses text into a Config, accepting either the flat form
// or the legacy {"auto": {...}} wrapper. Fields a document omits are
// merged onto the factory defaults rather than the zero value, so a
// partial document never silently disables or zeroes a channel it
// doesn't mention. This only fails (returning the error) on malformed
// JSON text, never on a well-formed but incomplete document.
func Deserialize(text []byte) (Config, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(text, &probe); err != nil {
		return Config{}, err
	}

	cfg := Sanitize(Default())
	if raw, ok := probe["auto"]; ok {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return Config{}, err
		}
		return Sanitize(cfg), nil
	}

	if err := json.Unmarshal(text, &cfg); err != nil {
		return Config{}, err
	}
	return Sanitize(cfg), nil
}
