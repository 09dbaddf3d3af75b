package main

import (
	"fmt"
	"os"

	"github.com/zk-tools/zk-watcher-go/pkg/daemon"
	"github.com/zk-tools/zk-watcher-go/pkg/logging"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config      string `short:"c" long:"config" default:"/etc/zk/config.yaml" description:"configuration file"`
	Server      string `short:"s" long:"server" description:"override the ZooKeeper server address list (comma separated)"`
	Verbose     bool   `short:"v" long:"verbose" description:"verbose mode"`
	RunDuration int    `long:"run-duration" description:"run for a fixed number of seconds (0 = run until signalled)"`
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v", err)
		os.Exit(1)
	}

	logger, flush := logging.NewZapLogger(opts.Verbose)
	defer flush()

	logger.Infof("opts: %+v", opts)

	daemonLogger := logging.NewLoggerFrom("module: zk-watcher , ", logger)

	if err := daemon.Run(opts.RunDuration, opts.Config, opts.Server, opts.Verbose, daemonLogger); err != nil {
		logger.Errorf("Watcher daemon failed: %v", err)
		flush()
		os.Exit(1)
	}
}
