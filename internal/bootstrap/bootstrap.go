package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/mark3labs/mcp-go/server"

	docstoreinadapter "timeblocks/internal/modules/docstore/adapter/in"
	docstoreoutadapter "timeblocks/internal/modules/docstore/adapter/out"
	docstoreservice "timeblocks/internal/modules/docstore/service"
	docstoreusecase "timeblocks/internal/modules/docstore/usecase"
	identityinadapter "timeblocks/internal/modules/identity/adapter/in"
	identityoutadapter "timeblocks/internal/modules/identity/adapter/out"
	identitydomain "timeblocks/internal/modules/identity/domain"
	identityservice "timeblocks/internal/modules/identity/service"
	identityusecase "timeblocks/internal/modules/identity/usecase"
	reconcileinadapter "timeblocks/internal/modules/reconcile/adapter/in"
	reconcileoutadapter "timeblocks/internal/modules/reconcile/adapter/out"
	reconcilein "timeblocks/internal/modules/reconcile/port/in"
	reconcileout "timeblocks/internal/modules/reconcile/port/out"
	reconcileservice "timeblocks/internal/modules/reconcile/service"
	reconcileusecase "timeblocks/internal/modules/reconcile/usecase"
	"timeblocks/internal/platform/clock"
	"timeblocks/internal/platform/config"
	"timeblocks/internal/platform/id"
	uiapp "timeblocks/internal/ui/app"
)

const shutdownTimeout = 5 * time.Second

// App is built once per process and owns every long-lived component.
type App struct {
	Config       config.Config
	Logger       hclog.Logger
	Countdown    reconcilein.Usecase
	CountdownCLI reconcileinadapter.CLIHandler
	IdentityCLI  identityinadapter.CLIHandler

	session *identityservice.Session
}

func New(cfg config.Config, logger hclog.Logger) (*App, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	clk := clock.SystemClock{}

	authenticator := identityoutadapter.NewPluginAuthenticator(cfg.Identity.PluginPath, logger)
	provider := identityoutadapter.NewFileProvider(cfg.IdentityPath(), id.UUID{}, authenticator)
	detector := identitydomain.UserAgentDetector{UserAgent: cfg.Identity.UserAgent}
	session := identityservice.NewSession(provider, detector, logger.Named("identity"))
	identityUC := identityusecase.NewInteractor(session)

	remote, err := newRemoteStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	reconciler := reconcileservice.NewReconciler(
		reconcileservice.Options{
			Namespace:        cfg.Namespace,
			BootstrapTimeout: cfg.BootstrapTimeout,
			DebounceWindow:   cfg.DebounceWindow,
			SavingHold:       cfg.SavingHold,
			WriteTimeout:     cfg.WriteTimeout,
			Location:         time.Local,
		},
		clk,
		reconcileoutadapter.NewIdentitySessionAdapter(identityUC),
		remote,
		reconcileoutadapter.NewDiskvSnapshotStore(cfg.SnapshotDir()),
		logger.Named("reconcile"),
	)
	countdownUC := reconcileusecase.NewInteractor(reconciler)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Countdown:    countdownUC,
		CountdownCLI: reconcileinadapter.NewCLIHandler(countdownUC),
		IdentityCLI:  identityinadapter.NewCLIHandler(identityUC),
		session:      session,
	}, nil
}

func newRemoteStore(cfg config.Config, logger hclog.Logger) (reconcileout.RemoteStore, error) {
	switch cfg.Remote.Kind {
	case config.RemoteHTTP:
		return reconcileoutadapter.NewHTTPRemoteStore(cfg.Remote.URL, nil, logger.Named("remote")), nil
	case config.RemoteDir:
		return reconcileoutadapter.NewDirRemoteStore(cfg.Remote.Dir, logger.Named("remote")), nil
	case config.RemoteNone:
		return reconcileoutadapter.NewNoRemoteStore(), nil
	}
	return nil, fmt.Errorf("unknown remote kind %q", cfg.Remote.Kind)
}

// Close stops the reconciler, cancelling any pending debounce, then
// releases the identity session and any authenticator plugin process.
func (a *App) Close() error {
	err := a.Countdown.Close()
	a.session.Close()
	plugin.CleanupClients()
	return err
}

func RunTUI(ctx context.Context, app *App) error {
	model := uiapp.NewModel(ctx, app.Countdown)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// RunMCP serves the countdown tools over stdio until stdin closes.
func RunMCP(ctx context.Context, app *App, version string) error {
	if err := app.Countdown.Start(ctx); err != nil {
		return err
	}
	s := server.NewMCPServer("timeblocks", version, server.WithToolCapabilities(true))
	reconcileinadapter.RegisterMCPTools(s, app.Countdown)
	return server.ServeStdio(s)
}

// Server is the document store that HTTP remotes sync against.
type Server struct {
	http   *http.Server
	repo   *docstoreoutadapter.SQLiteRepository
	logger hclog.Logger
}

func NewServer(cfg config.Config, logger hclog.Logger) (*Server, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("docstore")
	repo, err := docstoreoutadapter.NewSQLiteRepository(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("new document repository: %w", err)
	}
	svc := docstoreservice.NewDocumentService(repo, clock.SystemClock{}, logger)
	handler := docstoreinadapter.NewHTTPHandler(docstoreusecase.NewInteractor(svc), logger)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	// Event streams never go idle on their own; end them when shutdown starts.
	httpServer.RegisterOnShutdown(cancelBase)
	return &Server{http: httpServer, repo: repo, logger: logger}, nil
}

// Run serves until ctx is cancelled, then drains open requests.
func (s *Server) Run(ctx context.Context) error {
	defer s.repo.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("document server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve documents: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down document server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		_ = s.http.Close()
		if !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("shutdown document server: %w", err)
		}
	}
	return nil
}
