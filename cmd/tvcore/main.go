// Command tvcore runs the service/stream engine: it ingests a live
// service (via the fakeinput harness when no real tuner input is wired),
// filters its elementary streams, selects a tuner instance, drives
// conditional-access clients, records to disk, and exposes a /metrics
// endpoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hdhrcore/tvcore/internal/asyncsaver"
	"github.com/hdhrcore/tvcore/internal/caclient"
	"github.com/hdhrcore/tvcore/internal/config"
	"github.com/hdhrcore/tvcore/internal/dvr"
	"github.com/hdhrcore/tvcore/internal/esfilter"
	"github.com/hdhrcore/tvcore/internal/idnode"
	"github.com/hdhrcore/tvcore/internal/persist"
	"github.com/hdhrcore/tvcore/internal/recfs"
	"github.com/hdhrcore/tvcore/internal/stream"
	"github.com/hdhrcore/tvcore/internal/subscription"
	"github.com/hdhrcore/tvcore/internal/supervisor"
	"github.com/hdhrcore/tvcore/internal/tvhlog"
)

func main() {
	cfg := config.Load()

	logger := tvhlog.New()
	logger.AddSink(tvhlog.NewStderrSink())
	if cfg.LogFile != "" {
		logger.AddSink(tvhlog.NewRotatingFileSink(cfg.LogFile, "tvcore"))
	}
	go logger.Run()
	defer logger.Stop()
	logf := func(format string, args ...any) {
		logger.Log("", 0, false, tvhlog.SevInfo, "tvcore", format, args...)
	}

	nodes := idnode.New()

	store, err := persist.Open(cfg.RecordStorePath)
	if err != nil {
		logf("persist: open failed: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	saver := asyncsaver.New()
	go saver.Run()
	defer saver.Stop()

	metrics := newEngineMetrics(saver)
	metrics.serve(cfg.MetricsAddr, logf)

	caReg := caclient.NewRegistry(logf)
	if len(cfg.CAPMTCommand) > 0 {
		sup := &supervisor.Supervisor{
			Name:         "capmt",
			Command:      cfg.CAPMTCommand,
			Restart:      cfg.CAPMTRestart,
			RestartDelay: cfg.CAPMTRestartDelay,
		}
		caReg.Add(caclient.NewCAPMT("capmt", sup))
	}
	defer caReg.Close()

	selector := subscription.NewSelector()
	rules := esfilter.NewSet() // empty: passes every component through

	capability := newFakeCapability("Demo Channel", "fakeinput")
	svc := stream.New(uuid.NewString(), capability)
	capability.svc = svc
	nodes.RegisterWithID(svc.ID, svc)

	svc.FilterFunc = func(s *stream.Service) {
		start := time.Now()
		esfilter.Apply(s, rules, logf)
		metrics.filterDuration.Observe(time.Since(start).Seconds())
	}
	metricsTap := metrics.attach(svc)

	layout := dvr.Layout{
		StorageRoot:  cfg.StorageRoot,
		PerDay:       cfg.PerDayDir,
		PerChannel:   cfg.PerChannelDir,
		PerTitle:     cfg.PerTitleDir,
		DirMode:      cfg.DirMode,
		Charset:      cfg.Charset,
	}
	worker := dvr.NewWorker(svc, newPassthroughMuxer, "ts", layout)
	worker.Logf = logf
	worker.SkipCommercials = cfg.SkipCommercials
	worker.PostProcCommand = cfg.PostProcCommand
	worker.ChannelName = capability.channel
	worker.Title = "Demo Recording"
	worker.OnIDBump = func() { nodes.Bump(svc.ID) }

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	sub := subscription.New(100, 1, worker)
	svc.Pad.Attach(sub)
	svc.AttachSubscription(sub)

	startFn := func(svc *stream.Service, instance any, postpone time.Duration) error {
		if err := svc.Start(instance, postpone, caReg.Start, caReg.CAIDUpdateFromService); err != nil {
			return err
		}
		svc.Restart(false, caReg.CAIDUpdateFromService)
		return nil
	}
	if _, err := selector.FindInstance(subscription.DirectService{Service: svc}, 100, 0, 0, nil, startFn); err != nil {
		logf("selector: FindInstance failed: %v", err)
	}

	if cfg.RecFSMount != "" {
		recMount, err := recfs.MountBackground(ctx, cfg.RecFSMount, []recfs.Recording{})
		if err != nil {
			logf("recfs: mount failed: %v", err)
		} else {
			defer recMount()
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logf("shutting down")

	capability.StopFeed()
	svc.Pad.Detach(sub)
	svc.Pad.Detach(metricsTap)
	svc.DetachSubscription(sub)
	svc.Stop(nil)
	if err := store.Save(svc); err != nil {
		logf("persist: save on shutdown failed: %v", err)
	}
	cancel()
}
