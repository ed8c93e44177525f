package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kingrea/bpixm/internal/config"
	"github.com/kingrea/bpixm/internal/logging"
	"github.com/kingrea/bpixm/internal/revision"
	"github.com/kingrea/bpixm/internal/session"
	"github.com/kingrea/bpixm/internal/tui"
)

// revsLimit is how many revisions `bpixm revs` lists by default.
const revsLimit = 20

// opened bundles what every command needs; close releases the log file.
type opened struct {
	session *session.Session
	logger  *logging.Logger
}

func (o *opened) close() {
	if o.logger != nil {
		_ = o.logger.Close()
	}
}

// open loads the global config and the active revision of workDir. Any
// error here is a startup failure. A readOnly open leaves the revision log
// untouched.
func open(workDir string, readOnly bool) (*opened, error) {
	cfg, err := config.Load(workDir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(workDir)
	if err != nil {
		return nil, err
	}
	openSession := session.Open
	if readOnly {
		openSession = session.OpenReadOnly
	}
	s, err := openSession(cfg, osfs.New(workDir), logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	return &opened{session: s, logger: logger}, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// sessionRunner opens the working directory around a subcommand body.
type sessionRunner func(run func(cmd *cobra.Command, s *session.Session, args []string) error) func(*cobra.Command, []string) error

func newRootCmd() *cobra.Command {
	var workDir string

	root := &cobra.Command{
		Use:           "bpixm",
		Short:         "Track barrel pixel modules mounted on the detector layers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdin) {
				return errors.New("the interactive menus need a terminal; see `bpixm --help` for scripting commands")
			}
			o, err := open(workDir, false)
			if err != nil {
				return err
			}
			defer o.close()
			return runInteractive(o.session, os.Stdin, os.Stdout, isTerminal(os.Stdout))
		},
	}
	root.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "working directory holding bpixm.yaml and the data revisions")

	runner := func(readOnly bool) sessionRunner {
		return func(run func(cmd *cobra.Command, s *session.Session, args []string) error) func(*cobra.Command, []string) error {
			return func(cmd *cobra.Command, args []string) error {
				o, err := open(workDir, readOnly)
				if err != nil {
					return err
				}
				defer o.close()
				return run(cmd, o.session, args)
			}
		}
	}
	withSession, readOnly := runner(false), runner(true)

	root.AddCommand(
		newHeadCmd(readOnly),
		newRevsCmd(readOnly),
		newForkCmd(withSession),
		newSwitchCmd(withSession),
		newStatusCmd(readOnly),
		newSearchCmd(readOnly),
		newTagCmd(withSession),
	)
	return root
}

func runInteractive(s *session.Session, in io.Reader, out io.Writer, tty bool) error {
	colors := s.Config().Colors() && tty
	ui := tui.NewTerminal(in, out, colors, s.Config().DisplayWidth())
	if s.Operator() == "" {
		name, err := ui.Input("operator name")
		if err != nil {
			return err
		}
		if err := s.SetOperator(name); err != nil {
			return err
		}
	}
	return tui.NewApp(s, ui, tui.WithStyles(ui.Styles())).Run()
}

func newHeadCmd(with sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "head",
		Short: "Print the newest revision number",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, s *session.Session, _ []string) error {
			head, err := s.Head()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), head)
			return nil
		}),
	}
}

func newRevsCmd(with sessionRunner) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "revs",
		Short: "List revisions with their last log date and tag",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, s *session.Session, _ []string) error {
			revs, err := s.Revisions(limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderRevisions(revs, s.Revision().Number))
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", revsLimit, "number of revisions to list")
	return cmd
}

func newForkCmd(with sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "fork",
		Short: "Copy the active revision into a new HEAD revision and switch to it",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, s *session.Session, _ []string) error {
			from := s.Revision().Number
			next, err := s.Fork()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created REV %d out of REV %d\n", next, from)
			return nil
		}),
	}
}

func newSwitchCmd(with sessionRunner) *cobra.Command {
	var discard bool
	cmd := &cobra.Command{
		Use:   "switch N",
		Short: "Make revision N the active one",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, s *session.Session, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid revision number %q", args[0])
			}
			token := revision.KeepUnsaved
			if discard {
				token = revision.DiscardUnsaved
			}
			if err := s.SwitchTo(n, token); err != nil {
				return err
			}
			status, err := s.RevisionStatus()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&discard, "discard", false, "drop unsaved changes of the current revision")
	return cmd
}

func newStatusCmd(with sessionRunner) *cobra.Command {
	var layerName string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the mounting status of a layer against its plan",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, s *session.Session, _ []string) error {
			rev := s.Revision()
			if layerName == "" {
				layerName = rev.ActiveLayer()
			}
			layer, ok := rev.Layer(layerName)
			if !ok {
				return fmt.Errorf("%w: %q (have %s)", revision.ErrUnknownLayer, layerName, strings.Join(rev.LayerNames(), ", "))
			}
			status, err := s.RevisionStatus()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "layer %s, %s\n\n", layer.Topology.Name, status)
			fmt.Fprintln(out, tui.RenderStatus(layer.Plan, layer.Mounted, tui.NewStyles(false)))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&layerName, "layer", "l", "", "layer to show (default: the active layer)")
	return cmd
}

func newSearchCmd(with sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "search ID",
		Short: "Look a module up in storage, the plan and the mounted layers",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, s *session.Session, args []string) error {
			result, err := s.Search(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSearch(result))
			if result.LocationUnknown() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: storage location for module %s is unknown, this module ID might not exist\n", result.ID)
			}
			return nil
		}),
	}
}

func newTagCmd(with sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "tag TEXT",
		Short: "Set the tag of the active revision",
		Args:  cobra.MinimumNArgs(1),
		RunE: with(func(cmd *cobra.Command, s *session.Session, args []string) error {
			return s.SetTag(strings.Join(args, " "))
		}),
	}
}
