package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"d30-print/internal/config"
	"d30-print/internal/imaging"
	"d30-print/internal/printer"
	"d30-print/internal/protocol"
	"d30-print/internal/raster"
)

var exampleUsage = strings.TrimSpace(`
  d30-print "Strawberry jam" --output jam.png
  d30-print "Strawberry jam" --print --device-mac AA:BB:CC:DD:EE:FF --adapter-mac 11:22:33:44:55:66
  d30-print "Apples" --fruit --print
  d30-print image logo.png --rotate --dither --print --transport serial --serial-port /dev/rfcomm0
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

type options struct {
	cfgPath   string
	print     bool
	output    string
	rotate    bool
	threshold int
}

func main() {
	cfg := config.DefaultConfig()
	var opts options

	root := &cobra.Command{
		Use:     "d30-print TEXT",
		Short:   "Print text labels on a Phomemo D30 over Bluetooth",
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := loadConfig(cmd, &cfg, opts)
			if err != nil {
				return err
			}
			img, err := imaging.RenderLabel(args[0], imaging.LabelOptions{
				FontPath: cfg.FontPath,
				FontSize: cfg.FontSize,
				Size:     labelSize(cfg),
			})
			if err != nil {
				return err
			}
			return emit(cmd.Context(), cfg, opts, log, imaging.ForPrint(img))
		},
	}

	imageCmd := &cobra.Command{
		Use:   "image FILE",
		Short: "Print an image file (png, jpeg, gif, bmp, webp)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := loadConfig(cmd, &cfg, opts)
			if err != nil {
				return err
			}
			img, err := imaging.LoadImage(args[0])
			if err != nil {
				return err
			}
			if opts.rotate {
				img = imaging.ForPrint(img)
			}
			return emit(cmd.Context(), cfg, opts, log, img)
		},
	}
	imageCmd.Flags().BoolVar(&opts.rotate, "rotate", false, "rotate a landscape image upright before printing")
	root.AddCommand(imageCmd)

	// Flags
	f := root.PersistentFlags()
	f.StringVar(&opts.cfgPath, "config", "", "path to config file (default: $HOME/.d30-print/config.toml)")
	f.StringVar(&cfg.DeviceMAC, "device-mac", cfg.DeviceMAC, "printer Bluetooth address (bluetoothctl devices)")
	f.StringVar(&cfg.AdapterMAC, "adapter-mac", cfg.AdapterMAC, "local adapter Bluetooth address (bluetoothctl list)")
	f.StringVar(&cfg.Transport, "transport", cfg.Transport, "rfcomm (direct socket) or serial (bound port)")
	f.StringVar(&cfg.SerialPort, "serial-port", cfg.SerialPort, "serial port for the serial transport, e.g. /dev/rfcomm0 or COM4")
	f.IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "serial baud rate")
	f.IntVar(&cfg.Channel, "channel", cfg.Channel, "RFCOMM channel")
	f.StringVar(&cfg.Model, "model", cfg.Model, "printer model")
	f.StringVar(&cfg.FontPath, "font", cfg.FontPath, "path to a TTF font (default: Go Regular)")
	f.Float64Var(&cfg.FontSize, "font-size", cfg.FontSize, "font size in pixels")
	f.BoolVar(&cfg.Fruit, "fruit", cfg.Fruit, "lay out text for fruit labels")
	f.BoolVar(&cfg.Dither, "dither", cfg.Dither, "Floyd-Steinberg dithering instead of a threshold")
	f.IntVar(&opts.threshold, "threshold", cfg.Threshold, "gray level (0-255) below which pixels print")
	f.BoolVar(&cfg.Invert, "invert", cfg.Invert, "swap ink and paper")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	f.BoolVar(&opts.print, "print", false, "send the label to the printer")
	f.StringVarP(&opts.output, "output", "o", "label.png", "where to save the preview when not printing")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig layers the config file and D30_* environment under the flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command, cfg *config.Config, opts options) (zerolog.Logger, error) {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	if changed["threshold"] {
		cfg.Threshold = opts.threshold
	}

	cfgFile := opts.cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}
	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("load config: %w", err)
		}
		config.ApplyFileConfig(cfg, fc, changed)
	} else if opts.cfgPath != "" {
		return zerolog.Nop(), fmt.Errorf("config file %s not found", opts.cfgPath)
	}

	if err := config.ApplyEnvConfig(cfg, changed); err != nil {
		return zerolog.Nop(), err
	}

	log := config.NewLogger(cfg.LogLevel)
	if opts.print {
		if err := cfg.ValidateForPrint(); err != nil {
			return log, err
		}
	} else if err := cfg.Validate(); err != nil {
		return log, err
	}
	log.Debug().Interface("config", cfg).Msg("configuration")
	return log, nil
}

func labelSize(cfg config.Config) imaging.LabelSize {
	if cfg.Fruit {
		return imaging.FruitLabel
	}
	return imaging.StandardLabel
}

// emit normalizes the upright image and either prints it or saves a preview
func emit(ctx context.Context, cfg config.Config, opts options, log zerolog.Logger, img image.Image) error {
	profile, err := cfg.Profile()
	if err != nil {
		return err
	}
	r, err := imaging.Normalize(img, profile.DotWidth, imaging.NormalizeOptions{
		Threshold: uint8(cfg.Threshold),
		Dither:    cfg.Dither,
		Invert:    cfg.Invert,
	})
	if err != nil {
		return err
	}

	if !opts.print {
		if err := savePreview(opts.output, r); err != nil {
			return err
		}
		log.Info().Str("path", opts.output).Int("rows", r.Height()).Msg("preview saved")
		return nil
	}

	enc, err := protocol.NewEncoder(profile)
	if err != nil {
		return err
	}
	job := &printer.Job{
		Dialer:  dialer(cfg, profile),
		Encoder: enc,
		Adapter: cfg.AdapterMAC,
		Device:  cfg.Remote(),
		Logger:  log,
	}
	if err := job.Run(ctx, r); err != nil {
		if errors.Is(err, printer.ErrTransmission) {
			log.Error().Msg("label output is incomplete")
		}
		return err
	}
	return nil
}

func dialer(cfg config.Config, p protocol.Profile) printer.Dialer {
	if cfg.Transport == config.TransportSerial {
		return printer.SerialDialer{BaudRate: cfg.BaudRate}
	}
	return printer.RFCOMMDialer{Channel: p.Channel}
}

func savePreview(path string, r *raster.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, imaging.Preview(r)); err != nil {
		f.Close()
		return fmt.Errorf("encode preview: %w", err)
	}
	return f.Close()
}
