package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/parkwise"
	"github.com/menta2k/parkwise/internal/config"
	"github.com/menta2k/parkwise/internal/server"
	"github.com/menta2k/parkwise/internal/utils"
	"github.com/menta2k/parkwise/pkg/analytics"
	"github.com/menta2k/parkwise/pkg/render"
	"github.com/menta2k/parkwise/pkg/types"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
)

// Preference flags shared by recommend and render
var (
	vehicleType string
	covered     bool
	nearExit    bool
	asJSON      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var spotsCmd = &cobra.Command{
	Use:   "spots",
	Short: "List every spot in the lot",
	RunE: func(cmd *cobra.Command, args []string) error {
		pw := parkwise.NewWithConfig(cfg, nil, logger)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), pw.Spots())
		}
		fmt.Fprintln(cmd.OutOrStdout(), spotsTable(pw.Spots()))
		return nil
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print the recommended spots for a vehicle type and preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := preferences()
		if err != nil {
			return err
		}
		ids := parkwise.NewWithConfig(cfg, nil, logger).Recommend(prefs)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), map[string][]string{"recommended": ids})
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no spots recommended")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(ids, " "))
		return nil
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show occupancy by vehicle type",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := parkwise.NewWithConfig(cfg, nil, logger).Analytics()
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		fmt.Fprintln(cmd.OutOrStdout(), analyticsTable(report))
		return nil
	},
}

var locateIn string

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Describe where the car in a photo is parked",
	RunE:  runLocate,
}

var (
	renderOut     string
	renderQuality int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Draw the lot map with recommended spots highlighted",
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := preferences()
		if err != nil {
			return err
		}
		format := utils.GetFileExtension(renderOut)
		if err := utils.EnsureDir(renderOut); err != nil {
			return err
		}
		img := parkwise.NewWithConfig(cfg, nil, logger).LotMap(prefs)
		if err := render.Save(img, renderOut, format, renderQuality, false); err != nil {
			return fmt.Errorf("failed to save lot map: %w", err)
		}
		logger.Info("wrote lot map", zap.String("path", renderOut))
		return nil
	},
}

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		if utils.FileExists(path) && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().SaveToFile(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.Locator.APIKey != "" {
			shown.Locator.APIKey = "********"
		}
		out, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{recommendCmd, renderCmd} {
		c.Flags().StringVarP(&vehicleType, "vehicle", "t", "car", "vehicle type: car, twoWheeler, threeWheeler or heavy")
		c.Flags().BoolVar(&covered, "covered", false, "only covered spots")
		c.Flags().BoolVar(&nearExit, "near-exit", false, "only spots near an exit")
	}
	for _, c := range []*cobra.Command{spotsCmd, recommendCmd, analyticsCmd, locateCmd} {
		c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	}

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	locateCmd.Flags().StringVarP(&locateIn, "in", "i", "", "photo path (jpg/png/gif/webp) or data URI")
	_ = locateCmd.MarkFlagRequired("in")

	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "lot.png", "output path; format follows the extension (png, jpg, webp)")
	renderCmd.Flags().IntVar(&renderQuality, "quality", 90, "JPEG/WebP quality (1-100)")

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func preferences() (types.Preferences, error) {
	category, err := types.ParseVehicleCategory(vehicleType)
	if err != nil {
		return types.Preferences{}, err
	}
	return types.Preferences{
		VehicleCategory: category,
		CoveredOnly:     covered,
		NearExitOnly:    nearExit,
	}, nil
}

// newParkWise builds the application with the configured vision backend
func newParkWise(ctx context.Context) (*parkwise.ParkWise, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	vc, err := parkwise.NewVisionClient(ctx, cfg.Locator)
	if err != nil {
		return nil, err
	}
	return parkwise.NewWithConfig(cfg, vc, logger), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pw, err := newParkWise(ctx)
	if err != nil {
		return err
	}

	srv := pw.Server(server.Options{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
	})
	logger.Info("starting parkwise",
		zap.String("version", parkwise.Version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("backend", cfg.Locator.Backend))
	return srv.Run(ctx)
}

func runLocate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pw, err := newParkWise(ctx)
	if err != nil {
		return err
	}

	var outcome types.LocateOutcome
	if strings.HasPrefix(locateIn, "data:") {
		outcome = pw.Locate(ctx, locateIn)
	} else {
		outcome = pw.LocateFile(ctx, locateIn)
	}

	if asJSON {
		if err := writeJSON(cmd.OutOrStdout(), outcome); err != nil {
			return err
		}
	} else if outcome.OK() {
		fmt.Fprintln(cmd.OutOrStdout(), outcome.LocationDescription)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(outcome.ErrorMessage))
	}
	if !outcome.OK() {
		return fmt.Errorf("locate failed: %s", outcome.ErrorKind)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func spotsTable(spots []types.ParkingSpot) string {
	t := newTable("ID", "Type", "Status", "Covered", "Near exit", "Distance", "Price")
	for _, s := range spots {
		status := "free"
		if s.IsOccupied {
			status = "occupied"
		}
		t.Row(
			s.ID,
			s.VehicleCategory.Label(),
			status,
			yesNo(s.IsCovered),
			yesNo(s.IsNearExit),
			fmt.Sprintf("%d m", s.DistanceToVenue),
			strconv.FormatFloat(s.Price, 'f', 2, 64),
		)
	}
	return t.String()
}

func analyticsTable(report analytics.Report) string {
	t := newTable("Vehicle type", "Total", "Occupied", "Available")
	for _, c := range report.ByCategory {
		t.Row(c.Name, strconv.Itoa(c.Total), strconv.Itoa(c.Occupied), strconv.Itoa(c.Available))
	}
	o := report.Overall
	t.Row("All", strconv.Itoa(o.Total), strconv.Itoa(o.Occupied), strconv.Itoa(o.Available))
	return t.String() + fmt.Sprintf("\noccupancy %.1f%%", o.Rate*100)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
