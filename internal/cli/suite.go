package cli

import (
	"github.com/spf13/pflag"

	"github.com/roach88/procharness/internal/config"
	"github.com/roach88/procharness/internal/lesson"
	"github.com/roach88/procharness/internal/registry"
)

// SelectionOptions are the case selection flags shared by run, list and worker.
type SelectionOptions struct {
	Profile     string
	Filter      []string
	Exclude     []string
	ExcludeTags []string
}

func (s *SelectionOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.Profile, "profile", "", "profile file (.yaml, .yml or .cue)")
	fs.StringSliceVar(&s.Filter, "filter", nil, "run only cases matching these globs")
	fs.StringSliceVar(&s.Exclude, "exclude", nil, "skip cases matching these globs")
	fs.StringSliceVar(&s.ExcludeTags, "exclude-tag", nil, "skip cases carrying these tags (adds to the profile)")
}

// loadProfile returns the selected profile with the selection flags applied.
func (s *SelectionOptions) loadProfile() (config.Profile, error) {
	p := config.Default()
	if s.Profile != "" {
		loaded, err := config.LoadProfile(s.Profile)
		if err != nil {
			return config.Profile{}, WrapExitError(ExitCommandError, "failed to load profile", err)
		}
		p = loaded
	}

	p.Include = append(p.Include, s.Filter...)
	p.Exclude = append(p.Exclude, s.Exclude...)
	p.ExcludeTags = append(p.ExcludeTags, s.ExcludeTags...)
	return p, nil
}

// buildSuite registers the lesson suite under the profile's selection.
func buildSuite(p config.Profile) (*registry.Registry, error) {
	reg := registry.New(registry.WithSelector(p))
	if err := lesson.Register(reg); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to register suite", err)
	}
	reg.Seal()
	return reg, nil
}
