package start

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/packetlog/packetlogd/metrics"
	"github.com/packetlog/packetlogd/server"
	"github.com/packetlog/packetlogd/utils"
	"github.com/packetlog/packetlogd/utils/log"
)

const (
	usage                 = "start"
	short                 = "Start a packetlogd server"
	long                  = "This command starts a packetlogd packet logging server"
	example               = "packetlogd start --config <path>"
	defaultConfigFilePath = "./packetlogd.yml"
	configDesc            = "set the path for the packetlogd YAML configuration file"
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"boot", "up"},
		Example:    example,
		RunE:       executeStart,
	}
	// configFilePath set flag for a path to the config file.
	configFilePath string
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&configFilePath, "config", "c", defaultConfigFilePath, configDesc)
}

// executeStart implements the start command.
func executeStart(cmd *cobra.Command, _ []string) error {
	// Attempt to read the config file. The default path is allowed to be
	// absent (all keys have defaults); an explicitly given path is not.
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if !cmd.Flags().Changed("config") && os.IsNotExist(err) {
			log.Info("no %v found, using built-in defaults", configFilePath)
		} else {
			return fmt.Errorf("failed to read configuration file: %w", err)
		}
	} else {
		log.Info("using %v for configuration", configFilePath)
	}

	// Don't output command usage for runtime errors past this point.
	cmd.SilenceUsage = true

	config, err := utils.ParseConfig(data)
	if err != nil {
		return fmt.Errorf("failed to parse configuration file: %w", err)
	}
	config.StartTime = time.Now()

	log.Info("initializing packetlogd...")
	start := time.Now()

	srv := server.New(config)
	if err := srv.Listen(); err != nil {
		return err
	}

	// Set monitoring handler.
	if config.MetricsListen != "" {
		log.Info("launching prometheus metrics server on %v...", config.MetricsListen)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(config.MetricsListen, nil); err != nil {
				log.Error("metrics server error: %v", err)
			}
		}()
	}

	startupTime := time.Since(start)
	metrics.StartupTime.Set(startupTime.Seconds())
	log.Info("startup time: %s", startupTime)

	// Spawn a goroutine and listen for a signal. The handler only requests
	// shutdown; the drain runs on the Serve goroutine.
	const defaultSignalChanLen = 10
	signalChan := make(chan os.Signal, defaultSignalChanLen)
	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGINT, syscall.SIGTERM:
				log.Info("initiating graceful shutdown due to '%v' request", s)
				if config.StopGracePeriod > 0 {
					log.Info("waiting a grace period of %v to shutdown...", config.StopGracePeriod)
					time.Sleep(config.StopGracePeriod)
				}
				srv.Shutdown()
			}
		}
	}()
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	return srv.Serve()
}
