package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/remotedeskd/remotedeskd/internal/clipboard"
	"github.com/remotedeskd/remotedeskd/internal/config"
	"github.com/remotedeskd/remotedeskd/internal/desktop"
	"github.com/remotedeskd/remotedeskd/internal/logging"
	"github.com/remotedeskd/remotedeskd/internal/protocol"
	"github.com/remotedeskd/remotedeskd/internal/tlsserver"
	"github.com/remotedeskd/remotedeskd/internal/workerpool"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "remotedeskd",
	Short: "remotedeskd",
	Long:  `remotedeskd - a remote desktop viewer server (capture, encode, broadcast over TLS/WebSocket)`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the server",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("remotedeskd v%s\n", version)
	},
}

var genCertCmd = &cobra.Command{
	Use:   "gen-cert",
	Short: "Generate a self-signed TLS certificate at the configured paths",
	Run: func(cmd *cobra.Command, args []string) {
		genCert()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/remotedeskd/config.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(genCertCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging sets up structured logging from config, adding a rotating
// file writer alongside stdout when log_file is configured.
func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout

	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")
}

func runServer() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	initLogging(cfg)

	log.Info("starting remotedeskd", "version", version, "listen_port", cfg.ListenPort)

	listener, err := tlsserver.Listen(fmt.Sprintf(":%d", cfg.ListenPort), cfg.CertPath, cfg.KeyPath)
	if err != nil {
		log.Error("failed to start tls listener", "error", err)
		os.Exit(1)
	}
	defer listener.Close()

	tokens, err := tlsserver.NewTokenChecker(cfg.AuthToken)
	if err != nil {
		log.Error("failed to initialize auth token checker", "error", err)
		os.Exit(1)
	}

	source, err := desktop.NewNativeSource()
	if err != nil {
		log.Warn("native capture unavailable, falling back to pattern source", "error", err)
		source = desktop.NewPatternSource(1280, 720)
	}

	encoder, err := desktop.NewVideoEncoder(desktop.EncoderConfig{
		Codec:   desktop.Codec(cfg.Codec),
		Quality: desktop.QualityAuto,
		Bitrate: cfg.BitrateKbps,
		FPS:     cfg.FPS,
	})
	if err != nil {
		log.Error("failed to initialize encoder", "error", err)
		os.Exit(1)
	}
	defer encoder.Close()

	pool := workerpool.New(cfg.MaxClients*2, cfg.MaxClients*8)
	conns := desktop.NewConnectionSet(pool)
	supervisor := desktop.NewSupervisor(source, encoder, conns)
	defer supervisor.Close()

	governor := desktop.NewCongestionGovernor(encoder, cfg.BitrateKbps)

	clip := clipboard.NewSync(clipboard.NewSystemClipboard(), func(text string) {
		conns.BroadcastBinary(protocol.Marshal(nil, protocol.InputEvent{
			Type:      protocol.EventClipboard,
			Clipboard: &protocol.ClipboardEvent{Text: text},
		}))
	})
	go clip.Watch()
	defer clip.Stop()

	control := desktop.NewControlPlane(newInputSink(source.Bounds), supervisor, governor, clip)

	server := desktop.NewServer(listener, cfg.WebRoot, conns, supervisor, control, tokens)

	go func() {
		if err := server.Serve(); err != nil {
			log.Warn("server stopped accepting connections", "error", err)
		}
	}()

	log.Info("remotedeskd is running", "addr", listener.Addr().String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down remotedeskd")
}

func genCert() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = config.Default()
	}
	if cfg.CertPath == "" || cfg.KeyPath == "" {
		fmt.Fprintln(os.Stderr, "cert_path and key_path must be set in config before generating a certificate")
		os.Exit(1)
	}

	certPEM, keyPEM, err := tlsserver.GenerateSelfSigned("localhost")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate certificate: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(cfg.CertPath, certPEM, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write certificate: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(cfg.KeyPath, keyPEM, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote certificate to %s and key to %s\n", cfg.CertPath, cfg.KeyPath)
}

