// Command lane-runner starts the Lane Runner game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config directory, the live tick rate, debug
// logging, version output, and optional ngrok tunneling for external access
// during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/lane-runner/api"
	"github.com/wricardo/lane-runner/game/config"
	"github.com/wricardo/lane-runner/game/runner"
	"github.com/wricardo/lane-runner/game/service"
	"github.com/wricardo/lane-runner/game/session"
	"github.com/wricardo/lane-runner/transport/mcp"
	"github.com/wricardo/lane-runner/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Lane Runner Server"
)

var logger = log15.New("module", "main")

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", envOr("CONFIG_DIR", "configs"), "Directory containing game configurations")
	tickRate     = flag.Int("tick-rate", cast.ToInt(os.Getenv("TICK_RATE")), "Frames per second for live sessions (0 uses the default)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio, mcp   Aliases for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  CONFIG_DIR, TICK_RATE, NGROK_ENABLED, NGROK_AUTHTOKEN, NGROK_DOMAIN (read from .env when present)\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                      # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -tick-rate 60        # Step live sessions at 60 frames per second\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp            # Run MCP stdio server\n", os.Args[0])
	}
}

// setupLogging routes every package logger to stderr. Stdout stays free for
// the MCP stdio transport.
func setupLogging(debug bool) {
	lvl := log15.LvlInfo
	if debug {
		lvl = log15.LvlDebug
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StderrHandler))
}

func main() {
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	setupLogging(*debug)
	if envErr == nil {
		logger.Info("loaded environment from .env")
	} else if !os.IsNotExist(envErr) {
		logger.Warn("error loading .env file", "err", envErr)
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	logger.Info("starting", "app", AppName, "version", Version, "mode", mode)

	svcs, err := initializeServices(*configDir)
	if err != nil {
		logger.Crit("failed to initialize services", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		err = runStdioMCP(ctx, svcs)
	case "server", "http":
		err = runHTTPServer(ctx, svcs, fmt.Sprintf("%s:%d", *host, *port))
	default:
		flag.Usage()
		err = fmt.Errorf("unknown mode %q", mode)
	}

	if err != nil {
		logger.Crit("server stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

type services struct {
	game     service.GameService
	sessions *session.Manager
}

// initializeServices wires the config manager, the session store and the
// game service on top of them
func initializeServices(dir string) (*services, error) {
	configManager, err := config.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager()
	return &services{
		game:     service.NewGameService(sessionManager, configManager),
		sessions: sessionManager,
	}, nil
}

// newStack builds the websocket hub, the live runner and the HTTP handler
// serving the REST API, the websocket upgrade and the /mcp endpoint
func newStack(svcs *services, baseURL string) (*websocket.Hub, *runner.Runner, http.Handler, error) {
	hub := websocket.NewHub(svcs.game)

	r, err := runner.New(svcs.game, hub, svcs.sessions, runner.Options{TickRate: *tickRate})
	if err != nil {
		return nil, nil, nil, err
	}

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(svcs.game, hub))
	mainRouter.Handle("/mcp", mcpHandler(mcp.NewClient(baseURL)))

	return hub, r, mainRouter, nil
}

// mcpHandler answers MCP JSON-RPC messages posted over HTTP
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// serve runs the hub, the runner and an HTTP server on listener until ctx
// ends, then shuts the server down gracefully
func serve(ctx context.Context, g *errgroup.Group, hub *websocket.Hub, r *runner.Runner, httpServer *http.Server, listener net.Listener) {
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return r.Run(ctx)
	})
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
}

// runHTTPServer serves the REST API, websocket hub and /mcp endpoint on addr.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, svcs *services, addr string) error {
	hub, r, handler, err := newStack(svcs, "http://"+addr)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	serve(gctx, g, hub, r, httpServer, listener)

	logger.Info("http server listening", "addr", addr, "tick_rate", 1/r.Dt())
	logger.Info("endpoints",
		"api", fmt.Sprintf("http://%s/api", addr),
		"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
		"mcp", fmt.Sprintf("http://%s/mcp", addr))

	if ngrokWanted() {
		g.Go(func() error {
			runTunnel(gctx, handler)
			return nil
		})
	}

	return g.Wait()
}

func ngrokWanted() bool {
	if *ngrokEnabled {
		return true
	}
	v := os.Getenv("NGROK_ENABLED")
	return v == "true" || v == "1"
}

// runTunnel exposes handler through ngrok until ctx ends. Tunnel failures are
// logged and never stop the local server.
func runTunnel(ctx context.Context, handler http.Handler) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
	}
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel", "domain", domain)
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "err", err)
		return
	}

	tunnelServer := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		tunnelServer.Close()
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established", "url", url,
		"api", url+"/api", "ws", url+"/ws?session=<session_id>", "mcp", url+"/mcp")

	if err := tunnelServer.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("ngrok server error", "err", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening
// on the configured port; otherwise it starts an internal HTTP API bound to a
// random loopback port and targets that.
func runStdioMCP(ctx context.Context, svcs *services) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	baseURL := fmt.Sprintf("http://localhost:%d", *port)
	g, gctx := errgroup.WithContext(ctx)

	if err := mcp.Probe(ctx, baseURL, 1); err == nil {
		logger.Info("using external API server for MCP", "url", baseURL)
	} else {
		logger.Info("no external API server found, starting internal HTTP server", "probe", err)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		hub, r, handler, err := newStack(svcs, baseURL)
		if err != nil {
			listener.Close()
			return err
		}
		serve(gctx, g, hub, r, &http.Server{Handler: handler}, listener)

		if err := mcp.Probe(ctx, baseURL, 5); err != nil {
			cancel()
			g.Wait()
			return err
		}
		logger.Info("internal HTTP server ready", "url", baseURL)
	}

	stdioErr := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	if stdioErr != nil {
		return fmt.Errorf("mcp stdio server: %w", stdioErr)
	}
	return nil
}
