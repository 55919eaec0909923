// Command binder-call opens a Binder device, looks up a named service
// through its context manager, and issues one transaction against it
// carrying only the interface header, then prints a one-line success
// message. The reply's contents are not printed.
package main

import (
	"flag"
	"fmt"
	"os"

	binder "github.com/kbinder/go-binder"
	"github.com/kbinder/go-binder/internal/config"
	"github.com/kbinder/go-binder/internal/logging"
	"github.com/kbinder/go-binder/servicemanager"
)

func main() {
	var (
		device     = flag.String("device", binder.DefaultBinderDevice, "Binder device node")
		configPath = flag.String("config", "", "optional device config YAML file")
		service    = flag.String("service", "", "service name to look up (required)")
		code       = flag.Uint("code", uint(binder.FirstCallTransaction), "transaction code to issue")
		iface      = flag.String("iface", "", "interface descriptor covering -code")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *service == "" {
		fmt.Fprintln(os.Stderr, "binder-call: -service is required")
		os.Exit(2)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	variant := servicemanager.Legacy
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		dc := cfg.For(*device)
		variant, err = servicemanager.ParseVariant(dc.ServiceManager)
		if err != nil {
			logger.Error("bad servicemanager variant in config", "error", err)
			os.Exit(1)
		}
	}

	ipc, err := binder.GetOrOpen(*device, &binder.Options{Logger: logger})
	if err != nil {
		logger.Error("failed to open device", "device", *device, "error", err)
		os.Exit(1)
	}
	defer ipc.Close()

	sm, err := servicemanager.New(ipc, variant)
	if err != nil {
		logger.Error("failed to open servicemanager", "error", err)
		os.Exit(1)
	}

	remote, err := sm.GetService(*service)
	if err != nil {
		logger.Error("failed to look up service", "service", *service, "error", err)
		os.Exit(1)
	}
	if remote == nil {
		fmt.Fprintf(os.Stderr, "binder-call: service %q not found\n", *service)
		os.Exit(1)
	}

	client := binder.NewClient(ipc, remote, []binder.InterfaceRange{
		{Iface: *iface, LastCode: ^uint32(0)},
	})

	if _, err := client.Call(uint32(*code), nil); err != nil {
		logger.Error("transaction failed", "code", *code, "error", err)
		os.Exit(1)
	}

	fmt.Printf("transaction %#x against %q (handle %d) succeeded\n", *code, *service, remote.Handle())
}
