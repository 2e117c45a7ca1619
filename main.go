package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/rm-hull/blur-overlay/cmd"
	"github.com/rm-hull/blur-overlay/internal"
	"github.com/rm-hull/blur-overlay/internal/service"
	"github.com/spf13/cobra"
)

func main() {
	var port int
	var workers int
	var debug bool
	var accelerator string
	var outDir string
	var overlay string
	var quality string
	var params service.Params

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	defaults, err := cmd.ParamsFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	rootCmd := &cobra.Command{
		Use:  "blur-overlay",
		Long: `Blurred loading overlays: downscale, tint and stack blur captured images`,
	}

	blurCmd := &cobra.Command{
		Use:   "blur <file.png>... [--out-dir <path>] [--radius <n>] [--downscale <f> | --quality low|high] [--overlay <colour>] [--accelerated] [--debug]",
		Short: "Blur PNG files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, files []string) error {
			c, err := service.ParseColor(overlay)
			if err != nil {
				return err
			}
			params.Overlay = c
			params.Debug = debug
			if quality != "" {
				q, err := service.ParseQuality(quality)
				if err != nil {
					return err
				}
				params.DownScale = q.DownScale()
			}
			return cmd.BlurFiles(files, outDir, params.Normalize(), accelerator, workers)
		},
	}

	blurCmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory to write blurred images to")
	blurCmd.Flags().IntVar(&params.Radius, "radius", defaults.Radius, "Blur radius, 0 disables blurring")
	blurCmd.Flags().Float64Var(&params.DownScale, "downscale", defaults.DownScale, "Down scale factor applied before blurring (>= 1.0)")
	blurCmd.Flags().StringVar(&quality, "quality", "", "Quality preset, overrides --downscale: low (4.0) or high (1.0)")
	blurCmd.Flags().StringVar(&overlay, "overlay", formatColor(defaults), "Overlay colour: #RRGGBB, #AARRGGBB or name[@alpha]")
	blurCmd.Flags().BoolVar(&params.UseAccelerated, "accelerated", false, "Use the accelerated Gaussian kernel, falling back to stack blur")
	blurCmd.Flags().StringVar(&accelerator, "accelerator", cmd.AcceleratorFromEnv(), "Accelerator to use with --accelerated")
	blurCmd.Flags().IntVar(&workers, "workers", 4, "Number of blur workers")
	blurCmd.Flags().BoolVar(&debug, "debug", false, "Log timing and allocation details for each blur")

	apiServerCmd := &cobra.Command{
		Use:   "api-server [--port <port>] [--workers <n>] [--accelerator <name>] [--debug]",
		Short: "Start HTTP API server",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.ApiServer(port, workers, accelerator, debug)
		},
	}

	apiServerCmd.Flags().IntVar(&port, "port", 8080, "Port to run HTTP server on")
	apiServerCmd.Flags().IntVar(&workers, "workers", 4, "Number of blur workers")
	apiServerCmd.Flags().StringVar(&accelerator, "accelerator", cmd.AcceleratorFromEnv(), "Accelerator used for accelerated requests")
	apiServerCmd.Flags().BoolVar(&debug, "debug", false, "Enable debugging (pprof, blur diagnostics) - WARNING: do not enable in production")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(internal.Version())
		},
	}

	rootCmd.AddCommand(blurCmd, apiServerCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func formatColor(p service.Params) string {
	c := p.Overlay
	return fmt.Sprintf("#%02X%02X%02X%02X", c.A, c.R, c.G, c.B)
}
