package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/kwv/zonemesh/mesh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App encapsulates the application state and dependencies
type App struct {
	Config    *mesh.Config
	State     *mesh.ArtifactState
	Collector *mesh.Collector
	Publisher *mesh.Publisher

	// Encoder and Store default to the rubenv encoder and the file store
	Encoder mesh.Encoder
	Store   mesh.ArtifactStore
	Out     io.Writer

	// connectMQTT is replaced in tests
	connectMQTT func(mesh.MQTTConfig) (mqtt.Client, error)
	mqttClient  mqtt.Client

	// CLI Flags (effectively dependencies)
	ConfigFile string
	World      string
	OutPath    string
	Verify     bool
	HttpPort   int
	MqttMode   bool
	HttpMode   bool
}

// NewApp creates a new App instance
func NewApp() *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := mesh.NewCollector(reg)
	if err != nil {
		log.Printf("[METRICS] disabled: %v", err)
	}

	return &App{
		State:       mesh.NewArtifactState(),
		Collector:   collector,
		Out:         os.Stdout,
		connectMQTT: mesh.ConnectMQTT,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.World = opts.World
	a.OutPath = opts.OutPath
	a.Verify = opts.Verify
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig reads .env, the config file and env overrides, then applies
// flags on top.
func (a *App) loadConfig() error {
	if err := mesh.LoadDotEnv(".env"); err != nil {
		return err
	}

	config, err := mesh.LoadConfig(a.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := mesh.ApplyEnv(config); err != nil {
		return err
	}

	if a.World != "" {
		config.World = a.World
	}
	if a.OutPath != "" {
		config.Out = a.OutPath
	}
	if a.Verify {
		config.VerifyNoUpdates = true
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", a.ConfigFile, err)
	}

	a.Config = config
	log.Printf("Loaded config from %s (%d zones)", a.ConfigFile, len(config.Zones))
	return nil
}

// build reads the world collection and aggregates it
func (a *App) build(ctx context.Context) (*mesh.BuildResult, error) {
	world, err := mesh.ReadWorld(ctx, a.Config.World)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d regions from %s", len(world.Features), a.Config.World)

	start := time.Now()
	res, err := mesh.BuildZones(world, a.Config.Zones,
		mesh.WithIDProperty(a.Config.GetIDProperty()),
		mesh.WithCenterPrecision(a.Config.CenterPrecision),
	)
	if err != nil {
		return nil, fmt.Errorf("build zones: %w", err)
	}
	a.Collector.ObserveBuild(res, time.Since(start))
	return res, nil
}

// generate builds and emits the artifact, recording the outcome
func (a *App) generate(ctx context.Context) (*mesh.BuildResult, *mesh.EmitResult, error) {
	res, err := a.build(ctx)
	if err != nil {
		a.Collector.ObserveEmit(mesh.EmitFailed)
		return nil, nil, err
	}

	encoder := a.Encoder
	if encoder == nil {
		encoder = mesh.NewTopoJSONEncoder(a.Config.Topology)
	}
	emitter := mesh.NewEmitter(encoder, a.Store)

	emitted, err := emitter.Emit(res.Collection, mesh.EmitOptions{
		OutPath:         a.Config.Out,
		VerifyNoUpdates: a.Config.VerifyNoUpdates,
	})
	if err != nil {
		var changed *mesh.UnexpectedChangeError
		if errors.As(err, &changed) {
			a.Collector.ObserveEmit(mesh.EmitChanged)
		} else {
			a.Collector.ObserveEmit(mesh.EmitFailed)
		}
		return res, nil, err
	}

	if emitted.Written {
		a.Collector.ObserveEmit(mesh.EmitWritten)
	} else {
		a.Collector.ObserveEmit(mesh.EmitUnchanged)
	}
	a.State.Update(a.Config.Out, emitted, len(res.Warnings))
	return res, emitted, nil
}

// RunGenerate builds the zones and writes (or verifies) the topology artifact
func (a *App) RunGenerate() error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	res, emitted, err := a.generate(context.Background())
	if err != nil {
		return err
	}

	verb := "Wrote"
	if !emitted.Written {
		verb = "Verified"
	}
	fmt.Fprintf(a.Out, "%s %s: %d zones, %d passthrough regions, %d warnings\n",
		verb, a.Config.Out, res.Zones, res.Passthrough, len(res.Warnings))
	return nil
}

// RunSummary builds the zones and prints every output object and its center
// without touching the artifact.
func (a *App) RunSummary() error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	res, err := a.build(context.Background())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tMEMBERS\tCENTER")
	for _, f := range res.Collection.Features {
		name, _ := f.Properties[mesh.PropZoneName].(string)
		kind := "region"
		members := 1
		if agg, _ := f.Properties[mesh.PropAggregatedView].(bool); agg {
			kind = "zone"
			if m, ok := f.Properties[mesh.PropMembers].([]string); ok {
				members = len(m)
			}
		}
		center, _ := f.Properties[mesh.PropCenter].([]float64)
		if len(center) == 2 {
			fmt.Fprintf(tw, "%s\t%s\t%d\t[%.4f, %.4f]\n", name, kind, members, center[0], center[1])
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%d\t-\n", name, kind, members)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(a.Out, "warning: %v\n", w)
	}
	return nil
}

// RunService generates the artifact, publishes centers when --mqtt is set and
// serves the artifact when --http is set, until interrupted.
func (a *App) RunService() error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, emitted, err := a.generate(ctx)
	if err != nil {
		return err
	}

	if a.MqttMode {
		if err := a.publish(emitted); err != nil {
			return err
		}
		defer a.disconnect()
	}

	if !a.HttpMode {
		return nil
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
		Handler:           newHTTPServer(a.State, a.Collector),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] Starting server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	fmt.Fprintf(a.Out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
	fmt.Fprintln(a.Out, "  GET /health         - Health check")
	fmt.Fprintln(a.Out, "  GET /topology.json  - Emitted topology")
	fmt.Fprintln(a.Out, "  GET /zones          - Zone centers")
	fmt.Fprintln(a.Out, "  GET /zones/{name}   - One zone")
	fmt.Fprintln(a.Out, "  GET /metrics        - Prometheus metrics")
	fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintln(a.Out, "\nShutting down service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// publish connects to the broker and publishes the emitted centers
func (a *App) publish(emitted *mesh.EmitResult) error {
	client, err := a.connectMQTT(a.Config.MQTT)
	if err != nil {
		return fmt.Errorf("initialize MQTT: %w", err)
	}
	if client == nil {
		return fmt.Errorf("MQTT broker not configured")
	}
	a.mqttClient = client

	a.Publisher = mesh.NewPublisher(client, a.Config.MQTT.PublishPrefix)
	return a.Publisher.PublishArtifact(a.Config.Out, emitted)
}

func (a *App) disconnect() {
	if a.mqttClient != nil {
		a.mqttClient.Disconnect(250)
	}
}
