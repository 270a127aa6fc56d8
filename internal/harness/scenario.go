package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/roster/internal/ir"
)

// Scenario defines a membership contract test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial is the index the events are applied to. Absent means empty.
	Initial map[string][]string `yaml:"initial,omitempty"`

	// Events are wire envelopes applied in order.
	Events []EventStep `yaml:"events"`

	// Expect is the full expected final index. Nil skips the comparison.
	Expect map[string][]string `yaml:"expect,omitempty"`

	// Assertions validate properties the final index alone cannot show.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// EventStep is one envelope in a scenario.
type EventStep struct {
	// Kind is the envelope discriminator. Unknown kinds are allowed and
	// exercise the no-op path.
	Kind string `yaml:"kind"`

	// Payload is the envelope payload, converted to JSON before decoding.
	Payload map[string]any `yaml:"payload,omitempty"`
}

// Assertion validates a property of the run.
type Assertion struct {
	// Type is one of identity, untouched, empty, member_count.
	Type string `yaml:"type"`

	// Parents lists the parents checked by untouched.
	Parents []string `yaml:"parents,omitempty"`

	// Parent and Count are used by member_count.
	Parent string `yaml:"parent,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertIdentity    = "identity"
	AssertUntouched   = "untouched"
	AssertEmpty       = "empty"
	AssertMemberCount = "member_count"
)

// Envelope converts the step into a wire envelope.
func (s EventStep) Envelope() (ir.Envelope, error) {
	env := ir.Envelope{Kind: s.Kind}
	if len(s.Payload) == 0 {
		return env, nil
	}
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return ir.Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	env.Payload = payload
	return env, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios expands files and directories into a sorted list of
// scenario files. Directories are searched recursively for .yaml and .yml.
func FindScenarios(paths ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("scenario path %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch filepath.Ext(path) {
			case ".yaml", ".yml":
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	if files == nil {
		files = []string{}
	}
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateName(s.Name); err != nil {
		return err
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for i, step := range s.Events {
		if step.Kind == "" {
			return fmt.Errorf("events[%d]: kind is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateName rejects names that would not stay inside the golden
// directory when used as <name>.golden.
func validateName(name string) error {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || filepath.Base(name) != name {
		return fmt.Errorf("name %q must be a plain file name (no path separators or \"..\")", name)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertIdentity, AssertEmpty:
	case AssertUntouched:
		if len(a.Parents) == 0 {
			return fmt.Errorf("assertions[%d]: parents list is required for untouched", index)
		}
	case AssertMemberCount:
		if a.Parent == "" {
			return fmt.Errorf("assertions[%d]: parent is required for member_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for member_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
