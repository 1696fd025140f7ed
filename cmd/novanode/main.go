package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	. "github.com/novaprotocol/nova-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type _config struct {
	ListenHostPort string `json:"listenhostport"`
	Network        string `json:"network"`
	BlockTimeMs    int    `json:"blocktimems"`
	LogLevel       string `json:"loglevel"`
}

func (c *_config) Load() (err error) {
	flag.StringVar(&c.ListenHostPort, "listen", "localhost:9070", "Set host:port for the http/rpc listener")
	flag.StringVar(&c.Network, "network", string(NetworkDevNet), "Set network (mainnet|testnet|devnet)")
	flag.IntVar(&c.BlockTimeMs, "blocktime", 2000, "Set the block production interval in milliseconds")
	flag.StringVar(&c.LogLevel, "loglevel", "", "Set the log level (trace|debug|info|warn|error|fatal) Can also be set via the NOVA_NODE_LOG_LEVEL environment variable")
	flag.Parse()

	return
}

var log = Log()

var config *_config

func main() {
	config = &_config{}

	if err := config.Load(); err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	if config.LogLevel == "" {
		envLogLevel := os.Getenv("NOVA_NODE_LOG_LEVEL")
		if envLogLevel != "" {
			config.LogLevel = envLogLevel
		} else {
			config.LogLevel = "info"
		}
	}
	logLevel, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		log.Fatal().Msgf("%+v", errors.WithStack(err))
	}

	log.Info().Msgf("setting log level to: '%s'", logLevel)
	zerolog.SetGlobalLevel(logLevel)

	network := Network(config.Network)
	if err = network.Validate(); err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	if config.BlockTimeMs <= 0 {
		log.Fatal().Msg("block time must be a positive number of milliseconds")
	}

	node, err := newChain(network, NodeVersion)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}
	node.start(time.Duration(config.BlockTimeMs) * time.Millisecond)

	httpServer := newHTTPServer(config, node)

	go func() {
		if err = httpServer.Start(); err != nil {
			log.Fatal().Msgf("%+v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info().Msg("caught interrupt/terminate signal, attempting graceful shutdown...")

	node.shutdown()

	if err = httpServer.Stop(); err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	log.Info().Msg("graceful shutdown complete")
}
