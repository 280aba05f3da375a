// Package cmd parse args to configure application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/ashwaniclecvdoc/vc-backend-scale/sfu"
)

const envPrefix = "SFU"

// Run starts the application.
func Run() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("module", "cmd").Err(err).Msg("failed to load .env")
	}

	config, err := SetupConfig(os.Stdout, os.Args[1:])
	if err != nil {
		log.Error().Str("module", "cmd").Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	if config.Signal.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = sfu.New(config).Start(ctx); err != nil {
		log.Error().Str("module", "cmd").Err(err).Msg("sfu stopped with error")
		stop()
		os.Exit(1)
	}
}

// SetupConfig sets up and returns the configuration.
func SetupConfig(w io.Writer, args []string) (sfu.Config, error) {
	config, err := Parse(w, args)
	if err != nil {
		return config, err
	}
	if err = config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Parse parses the command line arguments. Values come from the defaults, then
// the config file, then the environment, then the flags that were set.
func Parse(w io.Writer, args []string) (sfu.Config, error) {
	flags := sfu.DefaultConfig()
	var configFile string

	fs := flag.NewFlagSet("sfu", flag.ContinueOnError)
	fs.SetOutput(w)
	fs.IntVar(&flags.Signal.Port, "port", flags.Signal.Port, "listening port")
	fs.BoolVar(&flags.Signal.Debug, "debug", false, "debug mode")
	fs.StringVar(&flags.Signal.KeyFile, "key", "", "key file path")
	fs.StringVar(&flags.Signal.CertFile, "cert", "", "cert file path")
	fs.StringVar(&configFile, "config", "", "yaml config file path")
	fs.IntVar(&flags.Metric.Port, "metrics-port", flags.Metric.Port, "metrics port, 0 disables it")
	fs.StringVar(&flags.Media.AnnouncedIP, "announced-ip", "", "public ip advertised in ICE candidates")
	fs.StringVar(&flags.Media.MinUdpPort, "rtc-min-port", flags.Media.MinUdpPort, "minimum RTC UDP port")
	fs.StringVar(&flags.Media.MaxUdpPort, "rtc-max-port", flags.Media.MaxUdpPort, "maximum RTC UDP port")

	err := fs.Parse(args)
	if err != nil {
		return sfu.Config{}, fmt.Errorf("failed to parse args: %w", err)
	}

	if fs.NArg() != 0 {
		return sfu.Config{}, errors.New("some args are not parsed")
	}

	con, err := load(configFile)
	if err != nil {
		return sfu.Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			con.Signal.Port = flags.Signal.Port
		case "debug":
			con.Signal.Debug = flags.Signal.Debug
		case "key":
			con.Signal.KeyFile = flags.Signal.KeyFile
		case "cert":
			con.Signal.CertFile = flags.Signal.CertFile
		case "metrics-port":
			con.Metric.Port = flags.Metric.Port
		case "announced-ip":
			con.Media.AnnouncedIP = flags.Media.AnnouncedIP
		case "rtc-min-port":
			con.Media.MinUdpPort = flags.Media.MinUdpPort
		case "rtc-max-port":
			con.Media.MaxUdpPort = flags.Media.MaxUdpPort
		}
	})

	return con, nil
}

// load reads the defaults, the optional yaml file and the environment.
func load(configFile string) (sfu.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, sfu.DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("signal.port", envPrefix+"_SIGNAL_PORT", "PORT"); err != nil {
		return sfu.Config{}, fmt.Errorf("failed to bind env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return sfu.Config{}, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
		log.Info().Str("module", "cmd").Str("file", v.ConfigFileUsed()).Msg("loaded config")
	}

	var con sfu.Config
	if err := v.Unmarshal(&con); err != nil {
		return sfu.Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return con, nil
}

func setDefaults(v *viper.Viper, c sfu.Config) {
	v.SetDefault("signal.port", c.Signal.Port)
	v.SetDefault("signal.debug", c.Signal.Debug)
	v.SetDefault("signal.cert_file", c.Signal.CertFile)
	v.SetDefault("signal.key_file", c.Signal.KeyFile)
	v.SetDefault("signal.ping_period", c.Signal.PingPeriod)
	v.SetDefault("signal.pong_wait", c.Signal.PongWait)
	v.SetDefault("signal.read_limit", c.Signal.ReadLimit)

	v.SetDefault("media.ip", c.Media.IP)
	v.SetDefault("media.announced_ip", c.Media.AnnouncedIP)
	v.SetDefault("media.min_udp_port", c.Media.MinUdpPort)
	v.SetDefault("media.max_udp_port", c.Media.MaxUdpPort)
	v.SetDefault("media.tcp_port", c.Media.TCPPort)
	v.SetDefault("media.ice_servers", c.Media.ICEServers)
	v.SetDefault("media.codecs", c.Media.Codecs)

	v.SetDefault("metric.port", c.Metric.Port)
	v.SetDefault("metric.path", c.Metric.Path)
	v.SetDefault("metric.interval", c.Metric.Interval)

	v.SetDefault("coordinator.enforce_unique_names", c.Coordinator.EnforceUniqueNames)
	v.SetDefault("broker.queue_size", c.Broker.QueueSize)
	v.SetDefault("database.log_queries", c.Database.LogQueries)
}
