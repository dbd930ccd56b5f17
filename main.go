package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

const progName = "zonemesh"

// AppOptions are the parsed command line flags
type AppOptions struct {
	ConfigFile string
	World      string
	OutPath    string
	Verify     bool
	Summary    bool
	MqttMode   bool
	HttpMode   bool
	HttpPort   int
}

// Application is what run dispatches to
type Application interface {
	ApplyOptions(opts AppOptions)
	RunGenerate() error
	RunSummary() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("%s: %v", progName, err)
	}
}

// run parses args and runs the selected mode
func run(args []string, out io.Writer, app Application) error {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "zones.yaml", "Path to zone configuration file")
	fs.StringVar(&opts.World, "world", "", "World GeoJSON path or http(s) URL (overrides config)")
	fs.StringVar(&opts.OutPath, "out", "", "Output topology path (overrides config)")
	fs.BoolVar(&opts.Verify, "verify", false, "Fail instead of overwriting when the output would change")
	fs.BoolVar(&opts.Summary, "summary", false, "Print zone centers without writing the artifact")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Publish zone centers to MQTT after generating")
	fs.BoolVar(&opts.HttpMode, "http", false, "Serve the generated artifact over HTTP")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port (default 8080)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s version: %s\n", progName, Version)
	app.ApplyOptions(opts)

	switch {
	case opts.Summary:
		return app.RunSummary()
	case opts.MqttMode || opts.HttpMode:
		fmt.Fprintf(out, "%s service starting...\n", progName)
		return app.RunService()
	default:
		return app.RunGenerate()
	}
}
