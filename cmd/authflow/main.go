// Command authflow serves the Google and Apple sign-in flow.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/authflow/app"
	"github.com/kbukum/authflow/bootstrap"
	"github.com/kbukum/authflow/config"
	"github.com/kbukum/authflow/logger"
	"github.com/kbukum/authflow/observability"
	"github.com/kbukum/authflow/redis"
	"github.com/kbukum/authflow/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "authflow: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("authflow", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", "", "path to config.yml")
	envFile := flags.String("env-file", "", "path to a .env file")
	showVersion := flags.BoolP("version", "v", false, "print the version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println(version.Get().String())
		return nil
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}
	cfg, err := app.Load(opts...)
	if err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}

	a, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	log := a.Logger
	ctx := context.Background()

	if cfg.Observability.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Observability.TracerConfig(cfg.Name, cfg.Version, cfg.Environment))
		if err != nil {
			return err
		}
		a.OnStop("tracer", tp.Shutdown)
		mp, err := observability.InitMeter(ctx, cfg.Observability.MeterConfig(cfg.Name, cfg.Version, cfg.Environment))
		if err != nil {
			return errors.Join(err, tp.Shutdown(ctx))
		}
		a.OnStop("meter", mp.Shutdown)
	}

	svcOpts := []app.Option{app.WithLogger(log)}
	client, err := redis.New(cfg.Redis, log)
	switch {
	case errors.Is(err, redis.ErrDisabled):
		log.Info("Redis disabled; signing keys are cached per process")
	case err != nil:
		return err
	default:
		svcOpts = append(svcOpts, app.WithRedis(client))
		a.OnStart("redis", func(ctx context.Context) error {
			if err := client.Ping(ctx); err != nil {
				log.Warn("Redis unreachable at startup", logger.ErrorFields("redis.ping", err))
			}
			return nil
		})
		a.OnStop("redis", func(context.Context) error { return client.Close() })
	}

	svc, err := app.New(cfg, svcOpts...)
	if err != nil {
		return err
	}
	a.OnStart("server", svc.Server.Start)
	a.OnStop("server", svc.Server.Stop)

	return a.Run(ctx)
}
