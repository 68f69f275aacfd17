// Package main provides a server offering the replay API for a recorded
// robotic-arm capture session.
package main

import (
	"context"
	"fmt"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"github.com/colinzhenli/capture-replay/config"
	"github.com/colinzhenli/capture-replay/web"
)

var logger = golog.NewDevelopmentLogger("capture-replay")

// Arguments for the command.
type Arguments struct {
	ConfigFile string            `flag:"config,usage=path to the replay config file,required=true"`
	Port       utils.NetPortFlag `flag:"port,usage=port to listen on (overrides the config bind address)"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg, err := config.Read(argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	if argsParsed.Port != 0 {
		cfg.BindAddress = fmt.Sprintf("localhost:%d", argsParsed.Port)
	}

	return runServer(ctx, cfg, logger)
}

func runServer(ctx context.Context, cfg *config.Config, logger golog.Logger) error {
	server, err := web.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return server.Stop(context.Background())
}
