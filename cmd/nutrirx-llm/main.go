// Package main is the entry point for the nutrirx-llm CLI.
// nutrirx-llm resolves the best on-device text generation backend for the
// current hardware, manages local model downloads, and runs one-shot
// generations against the resolved provider.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GarrettC14/nutrirx-llm/internal/catalog"
	"github.com/GarrettC14/nutrirx-llm/internal/config"
	"github.com/GarrettC14/nutrirx-llm/internal/device"
	"github.com/GarrettC14/nutrirx-llm/internal/download"
	"github.com/GarrettC14/nutrirx-llm/internal/llama"
	"github.com/GarrettC14/nutrirx-llm/internal/provider"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool
	asJSON  bool
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nutrirx-llm",
		Short: "NutriRx LLM - On-device model resolution and generation",
		Long: `nutrirx-llm picks the best on-device text generation backend for the
current hardware and manages its lifecycle:
  • Device capability classification (RAM, architecture, platform model support)
  • Platform foundation model when the OS provides one
  • Quantized local models with managed download and integrity checks
  • Graceful degradation on unsupported hardware

Inspect the device:      nutrirx-llm classify
Resolve a backend:       nutrirx-llm resolve
Run a generation:        nutrirx-llm generate "your prompt"`,
		PersistentPreRunE: initLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.nutrirx/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "machine-readable JSON output")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nutrirx-llm v%s\n", version)
		},
	})

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(downloadCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOGGING INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

func initLogging(cmd *cobra.Command, args []string) error {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	zlog.Logger = zerolog.New(writer).With().Timestamp().Logger()

	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE WIRING
// ═══════════════════════════════════════════════════════════════════════════════

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newManager(cfg *config.Config) *provider.Manager {
	return provider.NewManager(provider.ManagerConfig{
		Classifier: device.NewClassifier(device.NewHostSource()),
		ModelsDir:  cfg.Models.Dir,
		Runtime:    llama.NewRuntime(),
		Bridge:     provider.NewPlatformBridge(),
	})
}

// ═══════════════════════════════════════════════════════════════════════════════
// CLASSIFY COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Classify the current device's capability tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier := device.NewClassifier(device.NewHostSource())
			c := classifier.Classify(cmd.Context())

			if asJSON {
				return printJSON(c)
			}

			fmt.Println(titleStyle.Render("Device Classification"))
			fmt.Printf("%s %s\n", labelStyle.Render("Tier:"), tierStyle(c.Tier).Render(string(c.Tier)))
			fmt.Printf("%s %.1f GB\n", labelStyle.Render("RAM:"), c.RAMGB)
			fmt.Printf("%s %s\n", labelStyle.Render("Architecture:"), c.Arch)
			fmt.Printf("%s %s\n", labelStyle.Render("Model:"), c.Model)
			fmt.Printf("%s %t\n", labelStyle.Render("Foundation:"), c.FoundationEligible)
			return nil
		},
	}
}

func tierStyle(t device.Tier) lipgloss.Style {
	switch t {
	case device.TierUnsupported:
		return errStyle
	case device.TierMinimal:
		return warnStyle
	default:
		return okStyle
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// RESOLVE / STATUS COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the generation backend for this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mgr := newManager(cfg)

			p, err := mgr.Resolve(cmd.Context())
			if err != nil {
				return err
			}

			c := mgr.Classification()
			if asJSON {
				return printJSON(map[string]any{
					"provider":       p.Name(),
					"status":         p.Status(),
					"classification": c,
				})
			}

			fmt.Println(titleStyle.Render("Resolved Provider"))
			fmt.Printf("%s %s\n", labelStyle.Render("Provider:"), p.Name())
			fmt.Printf("%s %s\n", labelStyle.Render("Tier:"), string(c.Tier))
			fmt.Printf("%s %s\n", labelStyle.Render("Status:"), string(p.Status()))
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show provider and model status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mgr := newManager(cfg)

			p, err := mgr.Resolve(cmd.Context())
			if err != nil {
				return err
			}

			model := mgr.ModelInfo()
			downloaded := mgr.ModelDownloaded()

			if asJSON {
				return printJSON(map[string]any{
					"provider":         p.Name(),
					"status":           p.Status(),
					"model":            model,
					"model_downloaded": downloaded,
				})
			}

			fmt.Println(titleStyle.Render("Engine Status"))
			fmt.Printf("%s %s\n", labelStyle.Render("Provider:"), p.Name())
			fmt.Printf("%s %s\n", labelStyle.Render("Status:"), string(p.Status()))
			if model != nil {
				fmt.Printf("%s %s\n", labelStyle.Render("Model:"), model.Name)
				fmt.Printf("%s %.1f GB\n", labelStyle.Render("Size:"), float64(model.SizeBytes)/(1024*1024*1024))
				state := errStyle.Render("not downloaded")
				if downloaded {
					state = okStyle.Render("downloaded")
				}
				fmt.Printf("%s %s\n", labelStyle.Render("On disk:"), state)
			}
			return nil
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// MODELS COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			models := catalog.All()
			if asJSON {
				return printJSON(models)
			}

			fmt.Println(titleStyle.Render("Model Catalog"))
			for _, m := range models {
				fmt.Printf("\n  %s\n", okStyle.Render(m.Name))
				fmt.Printf("%s %s\n", labelStyle.Render("  Tier:"), string(m.Tier))
				fmt.Printf("%s %.1f GB min RAM\n", labelStyle.Render("  Requires:"), m.MinRAMGB)
				fmt.Printf("%s %.2f GB\n", labelStyle.Render("  Size:"), float64(m.SizeBytes)/(1024*1024*1024))
				fmt.Printf("%s %d tokens\n", labelStyle.Render("  Context:"), m.ContextWindow)
				fmt.Printf("%s %s\n", labelStyle.Render("  Dialect:"), m.Dialect)
			}
			return nil
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// DOWNLOAD / DELETE COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func downloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download and initialize the model for this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mgr := newManager(cfg)

			if _, err := mgr.Resolve(cmd.Context()); err != nil {
				return err
			}
			if mgr.ModelDownloaded() {
				fmt.Println(okStyle.Render("Model already downloaded."))
			}

			err = mgr.Initialize(cmd.Context(), printProgress)
			fmt.Println()
			if err != nil {
				return err
			}
			fmt.Println(okStyle.Render("Provider ready."))
			return nil
		},
	}
}

func printProgress(p download.Progress) {
	mb := func(b int64) float64 { return float64(b) / (1024 * 1024) }
	fmt.Printf("\r  %5.1f%%  %8.1f / %.1f MB  ETA %4.0fs",
		p.Percentage, mb(p.BytesDownloaded), mb(p.TotalBytes), p.ETASeconds)
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the downloaded model for this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mgr := newManager(cfg)

			if _, err := mgr.Resolve(cmd.Context()); err != nil {
				return err
			}
			model := mgr.ModelInfo()
			if model == nil {
				fmt.Println(warnStyle.Render("No managed model for this provider."))
				return nil
			}
			if err := mgr.DeleteModel(); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", okStyle.Render("Deleted"), model.Name)
			return nil
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// GENERATE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func generateCmd() *cobra.Command {
	var system string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate text with the resolved provider",
		Long: `Generate a completion for the given prompt.

Examples:
  nutrirx-llm generate "Suggest a low-sodium dinner"
  nutrirx-llm generate --system "You are a dietitian" "Plan my week"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := strings.Join(args, " ")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mgr := newManager(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := mgr.Initialize(ctx, printProgress); err != nil {
				return err
			}
			defer mgr.Cleanup(context.Background())

			out, err := mgr.Generate(ctx, system, user)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(map[string]string{"response": out})
			}
			fmt.Println(strings.TrimSpace(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall generation timeout")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	// Show command
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cfg)
			}

			fmt.Println("NutriRx LLM Configuration:")
			fmt.Println("──────────────────────────")
			fmt.Printf("Models Dir: %s\n", cfg.Models.Dir)
			fmt.Printf("Log Level:  %s\n", cfg.Logging.Level)
			fmt.Printf("Log File:   %s\n", cfg.Logging.File)
			return nil
		},
	})

	// Path command
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			if cfgPath != "" {
				fmt.Println(cfgPath)
				return
			}
			home, _ := os.UserHomeDir()
			fmt.Println(filepath.Join(home, ".nutrirx", "config.yaml"))
		},
	})

	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
