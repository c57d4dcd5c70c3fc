// Command arbor serves a resource tree over HTTP.
package main

import (
	"os"
	"os/signal"
	"syscall"

	raven "github.com/getsentry/raven-go"
	"github.com/rs/zerolog/log"

	"github.com/ndlib/arbor/adapter"
	"github.com/ndlib/arbor/logging"
	"github.com/ndlib/arbor/server"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		logging.Setup(0)
		log.Fatal().Err(err).Msg("configuration")
	}
	logging.Setup(cfg.Verbosity)
	if cfg.SentryDSN != "" {
		raven.SetDSN(cfg.SentryDSN)
	}

	a, err := parselocation(cfg.Location, cfg.S3)
	if err != nil {
		log.Fatal().Err(err).Str("location", cfg.Location).Msg("Problem parsing location")
	}
	if cfg.Mount != "" {
		a = adapter.NewWithPrefix(a, cfg.Mount)
	}
	log.Info().Str("location", cfg.Location).Str("mount", cfg.Mount).Msg("Using backing store")

	s := &server.RESTServer{
		PortNumber: cfg.Port,
		PProfPort:  cfg.PProfPort,
		Adapter:    a,
	}
	if cfg.Tokens != "" {
		s.Validator, err = server.NewListDecoderFile(cfg.Tokens)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Tokens).Msg("reading tokens")
		}
	}

	go signalHandler(s)
	if err := s.Run(); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}

// signalHandler stops the server on an interrupt or a TERM signal.
func signalHandler(s *server.RESTServer) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("Received signal, stopping")
	if err := s.Stop(); err != nil {
		log.Error().Err(err).Msg("stop")
	}
}
