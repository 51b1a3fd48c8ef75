// Command flashmapctl is the operator CLI for the flash-backed
// key-value store: a cobra root command with get/put/repl
// subcommands, wired the way the teacher's coordinator command wires
// zap logging and YAML configuration.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flashmap/flashmap/flash"
	"github.com/flashmap/flashmap/flash/filestore"
	"github.com/flashmap/flashmap/flash/mockflash"
	"github.com/flashmap/flashmap/flashmap"
	"github.com/flashmap/flashmap/internal/config"
	"github.com/flashmap/flashmap/internal/kvcodec"
	"github.com/flashmap/flashmap/repl"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "flashmapctl",
	Short: "Operate a log-structured key-value store on flash",
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Fetch the value stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		log, cfg, driver, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		region := flashmap.Region{Start: cfg.Region.Start, End: cfg.Region.End}
		rec, found, err := flashmap.Fetch(context.Background(), driver, region, kvcodec.Codec{}, args[0])
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		if !found {
			fmt.Println("(not found)")
			return nil
		}
		fmt.Println(rec.Value)
		return nil
	},
}

var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Store a value under a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		log, cfg, driver, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		region := flashmap.Region{Start: cfg.Region.Start, End: cfg.Region.End}
		rec := kvcodec.Record{Key: args[0], Value: args[1]}
		if err := flashmap.Store(context.Background(), driver, region, kvcodec.Codec{}, rec); err != nil {
			return fmt.Errorf("put: %w", err)
		}
		fmt.Println("OK")
		return nil
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive get/put session",
	RunE: func(_ *cobra.Command, _ []string) error {
		log, cfg, driver, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		region := flashmap.Region{Start: cfg.Region.Start, End: cfg.Region.End}
		repl.New(driver, region, log.Sugar()).Run(os.Stdin, os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file (uses built-in defaults if omitted)")
	rootCmd.AddCommand(getCmd, putCmd, replCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap builds the logger, loads configuration and constructs the
// configured flash.Driver.
func bootstrap() (*zap.Logger, *config.Config, flash.Driver, error) {
	zc := zap.NewDevelopmentConfig()
	zc.Level.SetLevel(zap.InfoLevel)
	log, err := zc.Build()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg = config.DefaultConfig()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	driver, err := buildDriver(cfg, log.Sugar())
	if err != nil {
		return nil, nil, nil, err
	}
	return log, cfg, driver, nil
}

func buildDriver(cfg *config.Config, log *zap.SugaredLogger) (flash.Driver, error) {
	switch cfg.Flash.Backend {
	case config.BackendMock, "":
		m := cfg.Flash.Mock
		log.Infow("using in-RAM mock flash", "size", m.SizeBytes, "write_size", m.WriteSize, "erase_size", m.EraseSize)
		return mockflash.New(int(m.SizeBytes), m.WriteSize, m.EraseSize), nil
	case config.BackendFile:
		f := cfg.Flash.File
		log.Infow("using file-backed flash", "path", f.Path, "size", f.SizeBytes)
		return filestore.Open(f.Path, int64(f.SizeBytes), f.WriteSize, f.EraseSize)
	case config.BackendSPI:
		return nil, fmt.Errorf("flash backend %q requires hardware wiring not available through this command; construct spiflash.Flash directly", cfg.Flash.Backend)
	default:
		return nil, fmt.Errorf("unknown flash backend %q", cfg.Flash.Backend)
	}
}
