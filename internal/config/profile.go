package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/procharness/internal/registry"
)

//go:embed schema.cue
var schemaCUE string

// Profile selects and configures a run.
type Profile struct {
	Name        string   `yaml:"name" json:"name"`
	Include     []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude     []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	ExcludeTags []string `yaml:"exclude_tags,omitempty" json:"exclude_tags,omitempty"`

	// Parallel is the number of cases run at once; 0 means sequential.
	Parallel int `yaml:"parallel,omitempty" json:"parallel,omitempty"`

	// Timeout is a Go duration string; empty means no bound.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Isolate runs cases in a supervised child process; nil means true.
	Isolate *bool `yaml:"isolate,omitempty" json:"isolate,omitempty"`

	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	DB     string `yaml:"db,omitempty" json:"db,omitempty"`
}

// Default returns the profile used when none is given. It leaves out cases
// that abort the process or never return.
func Default() Profile {
	return Profile{
		Name:        "default",
		ExcludeTags: []string{registry.TagFatal, registry.TagNonterminating},
	}
}

// Isolated reports whether the run should be supervised.
func (p Profile) Isolated() bool {
	return p.Isolate == nil || *p.Isolate
}

// TimeoutDuration parses Timeout. An empty Timeout yields zero.
func (p Profile) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout: negative duration %s", p.Timeout)
	}
	return d, nil
}

// Validate checks p against the profile schema and checks its globs.
func (p Profile) Validate() error {
	ctx := cuecontext.New()
	schema, err := profileSchema(ctx)
	if err != nil {
		return err
	}
	v := ctx.Encode(p)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return newProfileError("", err)
	}
	return p.checkPatterns()
}

func (p Profile) checkPatterns() error {
	for _, pattern := range slices.Concat(p.Include, p.Exclude) {
		if _, err := path.Match(pattern, ""); err != nil {
			return &ProfileError{Field: "pattern", Message: fmt.Sprintf("%q: %v", pattern, err)}
		}
	}
	if _, err := p.TimeoutDuration(); err != nil {
		return &ProfileError{Field: "timeout", Message: err.Error()}
	}
	return nil
}

// Selects reports whether tc belongs to the run. A case is selected when it
// matches an include glob (or there are none), matches no exclude glob and
// carries no excluded tag.
func (p Profile) Selects(tc registry.TestCase) bool {
	if len(p.Include) > 0 && !matchAny(p.Include, tc.Name) {
		return false
	}
	if matchAny(p.Exclude, tc.Name) {
		return false
	}
	for _, tag := range p.ExcludeTags {
		if tc.HasTag(tag) {
			return false
		}
	}
	return true
}

var _ registry.Selector = Profile{}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// LoadProfile reads a profile from a .yaml, .yml or .cue file.
func LoadProfile(file string) (Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, file)
	default:
		return Profile{}, fmt.Errorf("unsupported profile extension %q (want .yaml, .yml or .cue)", filepath.Ext(file))
	}
}

// ParseYAML decodes and validates a YAML profile. Unknown fields are errors.
func ParseYAML(data []byte) (Profile, error) {
	var p Profile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// ParseCUE compiles a CUE profile, unifies it with the schema and decodes it.
// The source may declare fields at top level or under a "profile" field.
func ParseCUE(data []byte, filename string) (Profile, error) {
	ctx := cuecontext.New()
	schema, err := profileSchema(ctx)
	if err != nil {
		return Profile{}, err
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Profile{}, newProfileError(filename, err)
	}
	if nested := v.LookupPath(cue.ParsePath("profile")); nested.Exists() {
		v = nested
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Profile{}, newProfileError(filename, err)
	}

	var p Profile
	if err := unified.Decode(&p); err != nil {
		return Profile{}, newProfileError(filename, err)
	}
	if err := p.checkPatterns(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func profileSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile profile schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Profile")), nil
}

// ProfileError describes an invalid profile.
type ProfileError struct {
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *ProfileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// IsProfileError reports whether err is a *ProfileError.
func IsProfileError(err error) bool {
	var pe *ProfileError
	return errors.As(err, &pe)
}

// newProfileError keeps the first CUE error and its position.
func newProfileError(filename string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ProfileError{Message: err.Error()}
	}

	first := errs[0]
	pe := &ProfileError{
		Field:   strings.Join(first.Path(), "."),
		Message: first.Error(),
	}
	for _, pos := range cueerrors.Positions(first) {
		if filename != "" && pos.Filename() == filename {
			pe.Pos = pos
			break
		}
	}
	return pe
}
