package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"bitebook/internal/search"
	"bitebook/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bitebook",
	Short: "bitebook – track the places you want to eat and drink",
	Long: `bitebook keeps a list of restaurants, bars and cafes you have visited or
want to visit. Run without a subcommand to open the terminal UI.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

// Execute is the entry point called from main.
func Execute(version string) {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.api, "api", "", "Places service base URL (or set BITEBOOK_API_URL)")
	pf.StringVar(&flags.mapsKey, "maps-key", "", "Google Maps API key (or set GOOGLE_MAPS_API_KEY)")
	pf.StringVar(&flags.token, "token", "", "Bearer token for the places service (or set BITEBOOK_API_TOKEN)")
	pf.BoolVar(&flags.debug, "debug", false, "Write a debug log to ~/.bitebook/debug.log (or set BITEBOOK_DEBUG)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(visitCmd)
	rootCmd.AddCommand(unvisitCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(serveCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Anything logged while the TUI owns the terminal would corrupt it.
	if cfg.Debug {
		f, err := tea.LogToFile(filepath.Join(cfg.ConfigDir, "debug.log"), "bitebook")
		if err != nil {
			return fmt.Errorf("failed to open debug log: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	if err := applyOnboarding(cfg); err != nil {
		return err
	}

	opts := ui.Options{Service: cfg.placesClient()}
	if cfg.MapsEnabled {
		opts.Provider = search.NewGoogleClient(cfg.MapsAPIKey)
	} else {
		fmt.Fprintln(os.Stderr, "ℹ  No GOOGLE_MAPS_API_KEY set — autocomplete and maps disabled")
	}
	if path, err := ui.DefaultPrefsPath(); err == nil {
		opts.PrefsPath = path
	}

	p := tea.NewProgram(ui.New(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}
