// Package cli implements the mrcli command-line interface.
//
// The root command starts the interactive shell, or runs a single
// command when --cmd is given. Agent endpoints resolve in order from
// the --agents flag, positional arguments, the MRCLI_AGENTS environment
// variable, and finally the config file; none found is a configuration
// error.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/routerlab/mrcli/internal/broker"
	"github.com/routerlab/mrcli/internal/config"
	"github.com/routerlab/mrcli/internal/errors"
	"github.com/routerlab/mrcli/internal/fields"
	"github.com/routerlab/mrcli/internal/output"
	"github.com/routerlab/mrcli/internal/shell"
	"github.com/routerlab/mrcli/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const welcomeMsg = "Welcome to Mr. CLI. Type 'help' if you need it."

// AgentsEnvVar names the environment variable carrying agent endpoints.
const AgentsEnvVar = "MRCLI_AGENTS"

// Global flags
var (
	configFlag  string
	agentsFlag  string
	targetFlags []string
	cmdFlag     string
	modeFlag    string
	timeoutFlag float64
)

// NewClientFunc builds the agent client for a resolved endpoint list.
type NewClientFunc func(addresses []string) (broker.Client, error)

// newClient is the installed agent transport constructor. The transport
// implementation registers itself from main; tests inject fakes. The
// agent wire protocol is not part of this repository.
var newClient NewClientFunc = func(addresses []string) (broker.Client, error) {
	return nil, &broker.NoAgentsError{Addresses: addresses}
}

// SetClientFactory installs the agent transport constructor.
func SetClientFactory(f NewClientFunc) {
	newClient = f
}

// rootCmd starts the shell, interactively or one-shot.
var rootCmd = &cobra.Command{
	Use:   "mrcli [agent host:port pairs]",
	Short: "Run commands on many network devices at once",
	Long: `mrcli is an interactive shell that fans a single typed command out to
many networked devices through a remote execution agent, showing
per-device results as they arrive.

Examples:
  mrcli localhost:8080,localhost:8081

  MRCLI_AGENTS="localhost:8080,server.example.com:8080" mrcli

  export MRCLI_AGENTS="localhost:8080"
  mrcli -t cr1.mel -o csv -c "show arp"`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute runs the root command and exits nonzero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configFlag, "config", "", "config file path (default: "+config.ConfigFileName+", then ~/"+config.GlobalConfigDir+"/"+config.GlobalConfigFile+")")
	flags.StringVar(&agentsFlag, "agents", "", "comma-separated agent host:port pairs")
	flags.StringArrayVarP(&targetFlags, "target", "t", nil, "adds a single target device (repeatable)")
	flags.StringVarP(&cmdFlag, "cmd", "c", "", "the command to execute on each target, then exit")
	flags.StringVarP(&modeFlag, "output", "o", "", "output mode (text, buffered, csv)")
	flags.Float64Var(&timeoutFlag, "timeout", 0, "request timeout in seconds")
}

func runRoot(cmd *cobra.Command, args []string) error {
	ui.DetectColorProfile()

	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	agents := resolveAgents(args, cfg)
	if len(agents) == 0 {
		_ = cmd.Usage()
		return errors.New(errors.ErrConfig,
			"No agent addresses provided",
			"Pass host:port pairs, set "+AgentsEnvVar+", or run 'mrcli init'")
	}

	client, err := newClient(agents)
	if err != nil {
		if broker.IsNoAgents(err) {
			_ = cmd.Usage()
		}
		return err
	}

	timeout := cfg.Timeout
	if cmd.Flags().Changed("timeout") {
		timeout = timeoutFlag
	}
	mode := cfg.Mode
	if modeFlag != "" {
		mode = modeFlag
	}
	targetSpecs := cfg.Targets
	if len(targetFlags) > 0 {
		targetSpecs = targetFlags
	}

	oneShot := cmdFlag != ""
	interactive := !oneShot && term.IsTerminal(int(os.Stdout.Fd()))

	sh := shell.New(client, shell.Options{
		Interactive: interactive,
		Extractor:   fields.Builtin(),
		Targets:     targetSpecs,
		HistoryFile: cfg.History,
	})
	if timeout > 0 {
		if err := sh.Session().SetTimeout(timeout); err != nil {
			return err
		}
	}

	if oneShot {
		sh.RunOnce(cmdFlag, mode)
		return nil
	}

	if mode != "" && mode != output.DefaultMode {
		sh.Dispatch("output " + mode)
	}

	if interactive {
		fmt.Println(welcomeMsg)
	}
	err = sh.Run()
	if interactive {
		fmt.Println("\nBye.")
	}
	return err
}

// resolveAgents applies the endpoint precedence: --agents flag, then
// positional arguments, then MRCLI_AGENTS, then the config file.
func resolveAgents(args []string, cfg *config.Config) []string {
	raw := agentsFlag
	if raw == "" {
		raw = strings.Join(args, ",")
	}
	if raw == "" {
		raw = os.Getenv(AgentsEnvVar)
	}
	if raw == "" {
		return cfg.Agents
	}

	var agents []string
	for _, piece := range strings.Split(raw, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			agents = append(agents, piece)
		}
	}
	return agents
}
