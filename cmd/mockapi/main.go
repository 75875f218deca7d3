// Command mockapi serves the clinic REST API from memory for local
// development of the console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/clinic-admin/config"
	"github.com/jwalitptl/clinic-admin/internal/mockapi"
	"github.com/jwalitptl/clinic-admin/pkg/logger"
	"github.com/jwalitptl/clinic-admin/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to clinicadm.yml")
	patients := flag.Int("patients", 30, "number of seeded patients")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("clinicadm", reg)

	hasher := mockapi.NewBcryptHasher(0)
	srv := mockapi.NewServer(cfg.MockAPI, mockapi.Options{
		Hasher:   hasher,
		Logger:   log,
		Metrics:  m,
		Gatherer: reg,
	})
	if cfg.MockAPI.Seed {
		if err := mockapi.Seed(srv.Store(), hasher, *patients); err != nil {
			log.Fatal(err, "failed to seed store")
		}
		for _, acc := range mockapi.SeedAccounts {
			log.Info("seeded account", "email", acc.Email, "password", acc.Password, "role", acc.Role)
		}
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MockAPI.Port),
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("mock API listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
