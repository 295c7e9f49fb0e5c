package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	SelectionOptions
}

// ListedCase describes one selected case.
type ListedCase struct {
	Name        string   `json:"name" yaml:"name"`
	ExpectPanic bool     `json:"expect_panic" yaml:"expect_panic"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ListResult is the list command payload.
type ListResult struct {
	Profile     string       `json:"profile" yaml:"profile"`
	Fingerprint string       `json:"fingerprint" yaml:"fingerprint"`
	Cases       []ListedCase `json:"cases" yaml:"cases"`
}

// Text renders the result one case per line.
func (r ListResult) Text() string {
	var b strings.Builder
	for _, c := range r.Cases {
		b.WriteString(c.Name)
		if c.ExpectPanic {
			b.WriteString(" [expect panic]")
		}
		if len(c.Tags) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(c.Tags, ", "))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%d case(s) selected by profile %s\n", len(r.Cases), r.Profile)
	return b.String()
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the selected test cases",
		Long: `List the cases a run with the same selection would execute, in
registration order, with their expectations and tags.

Example:
  procharness list
  procharness list --filter 'uses_*'
  procharness list --profile nightly.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCases(cmd, opts)
		},
	}

	opts.SelectionOptions.addFlags(cmd.Flags())

	return cmd
}

func listCases(cmd *cobra.Command, opts *ListOptions) error {
	out := formatter(opts.RootOptions, cmd)

	p, err := opts.loadProfile()
	if err != nil {
		return reportError(out, ErrCodeProfile, err)
	}
	if err := p.Validate(); err != nil {
		return reportError(out, ErrCodeProfile, WrapExitError(ExitCommandError, "invalid profile", err))
	}

	reg, err := buildSuite(p)
	if err != nil {
		return reportError(out, ErrCodeRegistry, err)
	}

	result := ListResult{
		Profile:     p.Name,
		Fingerprint: reg.Fingerprint(),
		Cases:       make([]ListedCase, 0, reg.Len()),
	}
	for tc := range reg.All() {
		result.Cases = append(result.Cases, ListedCase{
			Name:        tc.Name,
			ExpectPanic: tc.ExpectAbnormalTermination,
			Tags:        tc.Tags,
		})
	}
	return out.Success(result)
}
