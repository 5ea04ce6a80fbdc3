package env

import (
	"bytes"
	"fmt"
	"maps"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

type Map map[string]string

// New returns a pointer to Env with all internal maps initialized.
func New() *Env {
	return &Env{Global: Map{}, Local: Map{}}
}

// FromStringMap copies m into a Map.
func FromStringMap(m map[string]string) Map {
	out := make(Map, len(m))
	maps.Copy(out, m)
	return out
}

// Env supports layered variables:
//   - Global: variables from config and values extracted by earlier cases (whole run)
//   - Local: variables declared by a suite file (reset per suite)
//
// Lookup and rendering give precedence to Local over Global.
type Env struct {
	mu     sync.RWMutex
	Global Map `yaml:"-" json:"-" mapstructure:"-"`
	Local  Map `yaml:"-" json:"env" mapstructure:"env"`
	sealed bool
}

// UnmarshalYAML allows decoding a plain mapping under the `env` key directly into Local.
func (e *Env) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	var m map[string]string
	if err := value.Decode(&m); err != nil {
		return err
	}
	e.Local = FromStringMap(m)
	return nil
}

// Seal makes the Env read-only; later SetString calls fail.
func (e *Env) Seal() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.sealed = true
	e.mu.Unlock()
}

// Clone returns an unsealed deep copy.
func (e *Env) Clone() *Env {
	if e == nil {
		return New()
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &Env{Global: FromStringMap(e.Global), Local: FromStringMap(e.Local)}
}

// GetString reads a value from the chosen map ("global" or "local").
func (e *Env) GetString(mapName, key string) string {
	if e == nil {
		return ""
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	m := e.Global
	if normalizeMapName(mapName) == "local" {
		m = e.Local
	}
	return m[key]
}

// SetString sets a string into the chosen map. Returns error if sealed.
func (e *Env) SetString(mapName, key, val string) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sealed {
		return fmt.Errorf("env: sealed (immutable)")
	}
	m := &e.Global
	if normalizeMapName(mapName) == "local" {
		m = &e.Local
	}
	if *m == nil {
		*m = Map{}
	}
	(*m)[key] = val
	return nil
}

func normalizeMapName(n string) string {
	if strings.EqualFold(strings.TrimSpace(n), "local") {
		return "local"
	}
	return "global"
}

// merged returns a combined map (Global then overridden by Local).
func (e *Env) merged() map[string]string {
	m := map[string]string{}
	if e == nil {
		return m
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	maps.Copy(m, e.Global)
	maps.Copy(m, e.Local)
	return m
}

// Lookup searches Local first, then Global.
func (e *Env) Lookup(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if v, ok := e.Local[key]; ok {
		return v, true
	}
	v, ok := e.Global[key]
	return v, ok
}

// RenderGoTemplate renders strings like {{.env.username}}.
// Templates that fail to parse or reference missing keys are returned unchanged.
func (e *Env) RenderGoTemplate(s string) string {
	out, err := e.RenderGoTemplateErr(s)
	if err != nil {
		return s
	}
	return out
}

// RenderGoTemplateErr behaves like RenderGoTemplate but reports parse and
// missing-key errors. Used for request bodies where a silent fallback would hide issues.
func (e *Env) RenderGoTemplateErr(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	t, err := template.New("gotmpl").Option("missingkey=error").Parse(s)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, map[string]any{"env": e.merged()}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
