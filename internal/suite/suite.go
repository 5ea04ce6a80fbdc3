// Package suite loads YAML contract suites and runs them through the
// executor and verifier.
//
// A suite directory holds files named NNN_name.yaml, run in numeric order:
//
//	name: posts
//	env:
//	  user: "1"
//	cases:
//	  - name: get first post
//	    request:
//	      method: GET
//	      url: "{{.env.base}}/posts/1"
//	    expect:
//	      status: 200
//	      body:
//	        - path: userId
//	          equals: 1
//	    extract:
//	      title: title
package suite

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/loykin/apicontract/pkg/env"
	"gopkg.in/yaml.v3"
)

// Suite is one suite file.
type Suite struct {
	Name  string   `yaml:"name"`
	Env   *env.Env `yaml:"env"`
	Cases []Case   `yaml:"cases"`
}

// Case is one request and the expectations on its response.
type Case struct {
	Name    string      `yaml:"name"`
	Skip    bool        `yaml:"skip"`
	Request RequestSpec `yaml:"request"`
	Expect  ExpectSpec  `yaml:"expect"`
	// Extract maps env names to path expressions evaluated on the response.
	// Extracted values are visible to every later case of the run.
	Extract map[string]string `yaml:"extract"`
	// ExtractMissing is "skip" (default) or "fail".
	ExtractMissing string          `yaml:"extract_missing"`
	Properties     *PropertiesSpec `yaml:"properties"`
	Log            *LogSpec        `yaml:"log"`
}

// PropertiesSpec persists response values into a properties file.
type PropertiesSpec struct {
	File   string            `yaml:"file"`
	Values map[string]string `yaml:"values"`
}

// LogSpec selects response logging: detail is all|status|headers|cookies|body,
// when is always|if_error|<status code>.
type LogSpec struct {
	Detail string `yaml:"detail"`
	When   string `yaml:"when"`
}

var suiteFileRegex = regexp.MustCompile(`^(\d+)_.*\.(ya?ml)$`)

type sfile struct {
	index int
	name  string
	path  string
}

func listSuiteFiles(dir string) ([]sfile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []sfile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		m := suiteFileRegex.FindStringSubmatch(name)
		if len(m) == 0 {
			continue
		}
		var idx int
		if _, err := fmt.Sscanf(m[1], "%d", &idx); err != nil {
			continue
		}
		files = append(files, sfile{index: idx, name: name, path: filepath.Join(dir, name)})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].index != files[j].index {
			return files[i].index < files[j].index
		}
		return files[i].name < files[j].name
	})
	return files, nil
}

// Files returns the suite files of dir in run order.
func Files(dir string) ([]string, error) {
	files, err := listSuiteFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

// LoadFile reads a suite file. A suite without a name is named after its file.
func LoadFile(path string) (*Suite, error) {
	clean := filepath.Clean(path)
	// #nosec G304 -- path comes from the suite directory listing or the user
	f, err := os.Open(clean)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(clean), err)
	}
	if s.Name == "" {
		s.Name = suiteName(filepath.Base(clean))
	}
	return s, nil
}

// Decode reads a suite from r.
func Decode(r io.Reader) (*Suite, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Suite
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode YAML suite: %w", err)
	}
	if s.Env == nil {
		s.Env = env.New()
	}
	return &s, nil
}

// suiteName turns "001_posts.yaml" into "posts".
func suiteName(file string) string {
	base := file[:len(file)-len(filepath.Ext(file))]
	if m := regexp.MustCompile(`^\d+_(.+)$`).FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return base
}
