package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/routerlab/mrcli/internal/config"
	"github.com/routerlab/mrcli/internal/errors"
	"github.com/routerlab/mrcli/internal/output"
	"github.com/routerlab/mrcli/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	initAgentsFlag string
	initForce      bool
	initNonInter   bool
)

// initCmd creates a new .mrcli.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create " + config.ConfigFileName + " configuration",
	Long: `Initialize a new mrcli configuration file.

Creates a ` + config.ConfigFileName + ` file in the current directory, guiding you
through agent endpoints and session defaults with interactive prompts.

Examples:
  mrcli init
  mrcli init --agents localhost:8080,localhost:8081
  mrcli init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(InitOptions{
			Agents:         initAgentsFlag,
			Overwrite:      initForce,
			NonInteractive: initNonInter,
		})
	},
}

func init() {
	initCmd.Flags().StringVar(&initAgentsFlag, "agents", "", "pre-specify agent host:port pairs")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initNonInter, "non-interactive", false, "skip prompts, use flags and defaults")
	rootCmd.AddCommand(initCmd)
}

// InitOptions holds options for the init command.
type InitOptions struct {
	Agents         string // Pre-specified comma-separated agent endpoints
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use defaults
}

// Init creates a new .mrcli.yaml configuration file.
func Init(opts InitOptions) error {
	configPath := filepath.Join(".", config.ConfigFileName)

	// Check for existing config
	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		var overwrite bool

		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)

		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}

		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	if opts.NonInteractive {
		if opts.Agents == "" {
			return errors.New(errors.ErrConfig,
				"Agent endpoints are required in non-interactive mode",
				"Provide --agents or run interactively")
		}
		cfg.Agents = splitAgents(opts.Agents)
	} else {
		agentsValue := opts.Agents
		timeoutValue := strconv.FormatFloat(cfg.Timeout, 'f', -1, 64)
		modeValue := cfg.Mode

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Agent endpoints").
					Description("Comma-separated host:port pairs the shell connects to").
					Placeholder("localhost:8080,server.example.com:8080").
					Value(&agentsValue).
					Validate(func(s string) error {
						if len(splitAgents(s)) == 0 {
							return fmt.Errorf("at least one endpoint is required")
						}
						return nil
					}),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Request timeout (seconds)").
					Description("Shared deadline for each command fan-out").
					Value(&timeoutValue).
					Validate(func(s string) error {
						seconds, err := strconv.ParseFloat(s, 64)
						if err != nil {
							return fmt.Errorf("must be a number")
						}
						if seconds < 1 {
							return fmt.Errorf("1 second is the minimum timeout")
						}
						return nil
					}),
			),
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Default output mode").
					Options(
						huh.NewOption("text (print results as they arrive)", output.ModeText),
						huh.NewOption("buffered (accumulate per device)", output.ModeBuffered),
						huh.NewOption("csv (field extraction)", output.ModeCSV),
					).
					Value(&modeValue),
			),
		)

		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Check terminal compatibility or use --non-interactive")
		}

		cfg.Agents = splitAgents(agentsValue)
		cfg.Timeout, _ = strconv.ParseFloat(timeoutValue, 64)
		cfg.Mode = modeValue
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(cfg, configPath); err != nil {
		return err
	}

	rendered, _ := yaml.Marshal(cfg)
	check := lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess)
	fmt.Printf("%s Wrote %s:\n\n%s", check, configPath, rendered)
	return nil
}

func splitAgents(raw string) []string {
	var agents []string
	for _, piece := range strings.Split(raw, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			agents = append(agents, piece)
		}
	}
	return agents
}
