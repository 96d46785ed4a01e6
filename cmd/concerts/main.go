package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"concertbooking/cli"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"
)

func main() {
	log.Init(logrus.WarnLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", cli.Message(err))
		os.Exit(cli.GetExitCode(err))
	}
}
