// Command hyperbuild serves the graph run engine over HTTP.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/hyperbuild"
	"github.com/warriorguo/hyperbuild/config"
	"github.com/warriorguo/hyperbuild/llm/openai"
	"github.com/warriorguo/hyperbuild/provider"
	"github.com/warriorguo/hyperbuild/provider/fetch"
	"github.com/warriorguo/hyperbuild/provider/static"
	"github.com/warriorguo/hyperbuild/server"
	"github.com/warriorguo/hyperbuild/types"
)

func main() {
	envFile := flag.String("env", ".env", "env file loaded before the environment")
	flag.Parse()

	if err := run(*envFile); err != nil {
		log.Fatalf("hyperbuild: %s", errors.ErrorStack(err))
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return errors.Trace(err)
	}
	cfg.ConfigureLogging()

	opts, err := cfg.EngineOptions()
	if err != nil {
		return errors.Trace(err)
	}

	var llm types.LLM
	if cfg.OpenAIAPIKey != "" {
		llm = openai.New().
			WithAPIKey(cfg.OpenAIAPIKey).
			WithBaseURL(cfg.OpenAIBaseURL).
			WithModel(cfg.OpenAIModel)
		opts = append(opts, types.WithLLM(llm))
	} else {
		log.Warnf("OPENAI_API_KEY is not set, LLM and QnAGenerator nodes will abort their runs")
	}

	provider.Register(provider.DefaultKey, fetch.New(fetch.WithLLM(llm)))
	if cfg.StaticPages != "" {
		pages, err := static.LoadFile(cfg.StaticPages)
		if err != nil {
			return errors.Trace(err)
		}
		provider.Register("static", pages)
	}
	log.Infof("providers: %v, default %s", provider.Default.Keys(), cfg.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// runs in flight stop at their next node once a signal arrives
	engine, err := hyperbuild.NewEngine(append(opts, types.WithContext(ctx))...)
	if err != nil {
		return errors.Trace(err)
	}

	srv := server.New(engine, server.WithCORSOrigin(cfg.CORSOrigin))
	serveErr := srv.ListenAndServe(ctx, cfg.Addr)

	if err := engine.Close(context.Background()); err != nil {
		log.Errorf("close engine: %v", err)
	}
	return errors.Trace(serveErr)
}
