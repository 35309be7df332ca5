// Package main provides the termeric binary entry point.
// Termeric is term egress, revision, and ingress -- calendarized: an
// ARK-style persistent identifier resolver and namespace manager.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/polyneme/termeric/ark"
	"github.com/polyneme/termeric/config"
	"github.com/polyneme/termeric/legacy"
	"github.com/polyneme/termeric/server"
	"github.com/polyneme/termeric/storage"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "termeric"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "termeric",
		Short: "ARK persistent identifier resolver",
		Long: `Termeric resolves ARK-style persistent identifiers to RDF-described
resources: dated term namespaces, the terms within them, and skolem
individuals, served in content-negotiated RDF representations.

Identifiers are minted collision-free under registered NAAN shoulders,
and legacy identifier mappings keep historical URLs resolving.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath, logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the resolver HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath, logLevel)
		},
	})

	cmd.AddCommand(mintCmd(&configPath, &logLevel))
	cmd.AddCommand(hashPasswordCmd())
	cmd.AddCommand(bootstrapAgentCmd(&configPath, &logLevel))

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// loadConfig resolves the layered configuration, with the flag-supplied
// file and log level taking precedence.
func loadConfig(configPath, logLevel string) (*config.Config, *slog.Logger, error) {
	bootstrapLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.NewLoader(bootstrapLogger).Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openStore connects the document store: JetStream KV when a NATS URL is
// configured, in-memory otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.Store, func(), error) {
	if cfg.NATS.URL == "" {
		logger.Warn("No NATS URL configured, using in-memory store (state is not persisted)")
		return storage.NewMemoryStore(), func() {}, nil
	}

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}
	store, err := storage.NewStore(ctx, js)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS", slog.String("url", cfg.NATS.URL))
	return store, nc.Close, nil
}

func serve(configPath, logLevel string) error {
	cfg, logger, err := loadConfig(configPath, logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.New(store, cfg.Server.Host, logger)

	// Boot reconciliation: additive loads of the CSV baselines.
	if cfg.Boot.ArkMap != "" {
		if err := legacy.Bootstrap(ctx, store.Arks, cfg.Boot.ArkMap); err != nil {
			return fmt.Errorf("bootstrap ark map: %w", err)
		}
		logger.Info("Loaded ark map", slog.String("path", cfg.Boot.ArkMap))
	}
	if cfg.Boot.ShoulderMap != "" {
		if err := legacy.BootstrapShoulders(ctx, srv.Registry(), cfg.Boot.ShoulderMap); err != nil {
			return fmt.Errorf("bootstrap shoulder map: %w", err)
		}
		logger.Info("Loaded shoulder map", slog.String("path", cfg.Boot.ShoulderMap))
	}
	if cfg.Boot.Watch {
		go func() {
			err := legacy.Watch(ctx, srv.LegacyMap(), srv.Registry(), cfg.Boot.ArkMap, cfg.Boot.ShoulderMap)
			if err != nil && ctx.Err() == nil {
				logger.Error("bootstrap watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("Termeric ready",
		slog.String("version", Version),
		slog.String("host", cfg.Server.Host))
	return srv.Run(ctx, cfg.Server.Listen, cfg.Server.ShutdownTimeout)
}

// mintCmd mints one identifier from the command line, for operators
// reserving identifiers outside the HTTP flow.
func mintCmd(configPath, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint <naan> <shoulder>",
		Short: "Mint a fresh identifier under a registered shoulder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *logLevel)
			if err != nil {
				return err
			}
			naan, err := ark.ParseNaan(args[0])
			if err != nil {
				return err
			}
			shoulder, err := ark.ParseShoulder(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			registry := ark.NewRegistry(store.Naans)
			if err := registry.CheckRegistered(ctx, naan, shoulder); err != nil {
				return err
			}
			minted, err := ark.NewMinter(store.Arks, logger).Mint(ctx, naan, shoulder)
			if err != nil {
				return err
			}
			fmt.Println(minted)
			return nil
		},
	}
	return cmd
}

// hashPasswordCmd hashes a password read from stdin, for seeding agent
// documents.
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for an agent document",
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := readPassword()
			if err != nil {
				return err
			}
			hash, err := server.HashPassword(plaintext)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

// readPassword prompts on stderr and reads one line from stdin.
func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// bootstrapAgentCmd creates the first administrator directly in the
// store. Administrators cannot be created through the HTTP API.
func bootstrapAgentCmd(configPath, logLevel *string) *cobra.Command {
	var canAdmin []string
	cmd := &cobra.Command{
		Use:   "bootstrap-agent <naan> <username>",
		Short: "Create an administrator agent directly in the store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *logLevel)
			if err != nil {
				return err
			}
			naan, err := ark.ParseNaan(args[0])
			if err != nil {
				return err
			}
			username := args[1]

			plaintext, err := readPassword()
			if err != nil {
				return err
			}
			hash, err := server.HashPassword(plaintext)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			agent := bootstrapAgent(naan, username, hash, canAdmin)
			if err := store.Agents.Insert(ctx, agent); err != nil {
				return fmt.Errorf("create agent %s: %w", username, err)
			}
			fmt.Println(agent.ID())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&canAdmin, "can-admin", nil, "Org or org/repo paths the agent administers")
	return cmd
}

func bootstrapAgent(naan ark.Naan, username, hash string, canAdmin []string) storage.Doc {
	id := ark.AgentARK(naan, username)
	admin := make([]any, len(canAdmin))
	for i, p := range canAdmin {
		admin[i] = p
	}
	return storage.Doc{
		storage.IDKey:         id,
		"id":                  id,
		"username":            username,
		"type":                "person",
		"hashed_password":     hash,
		"can_edit":            []any{},
		"can_admin":           admin,
		"can_admin_shoulders": []any{},
	}
}
