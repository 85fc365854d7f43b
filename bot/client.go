package bot

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/dispatcher/handlers"
	"github.com/celestix/gotgproto/dispatcher/handlers/filters"
	"github.com/celestix/gotgproto/ext"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/tg"
	"go-fetch-bot/config"
	"go-fetch-bot/downloader"
	"go.uber.org/zap"
)

// shutdownGrace bounds how long Stop waits for in-flight transfers to report
const shutdownGrace = 15 * time.Second

// TelegramBot wraps the gotgproto client and provides bot lifecycle management
type TelegramBot struct {
	client        *gotgproto.Client
	logger        *zap.Logger
	config        *config.BotConfig
	registry      *downloader.SessionRegistry
	router        *CommandRouter
	transport     *TelegramTransport
	service       *downloader.Service
	cancelHandler *CancelHandler
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewTelegramBot creates a new TelegramBot instance
func NewTelegramBot(cfg *config.BotConfig, logger *zap.Logger, registry *downloader.SessionRegistry) (*TelegramBot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if registry == nil {
		registry = downloader.NewSessionRegistry(cfg.MaxTransfersPerChat)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TelegramBot{
		config:   cfg,
		logger:   logger,
		registry: registry,
		router:   NewCommandRouter(logger.Named("router")),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start initializes the gotgproto client, wires the transfer pipeline and starts serving updates
func (b *TelegramBot) Start() error {
	b.logger.Info("starting Telegram bot")

	clientOpts := &gotgproto.ClientOpts{
		Session: sessionMaker.SqlSession(sqlite.Open(b.config.SessionFile)),
		Logger:  b.logger.Named("gotgproto"),
	}

	client, err := gotgproto.NewClient(b.config.APIID, b.config.APIHash, gotgproto.ClientTypeBot(b.config.Token), clientOpts)
	if err != nil {
		return fmt.Errorf("failed to create gotgproto client: %w", err)
	}
	b.client = client

	b.transport = NewTelegramTransport(client.API(), b.logger.Named("transport"))

	service, err := NewTransferService(b.ctx, b.config, b.transport, b.registry, b.logger)
	if err != nil {
		return err
	}
	b.service = service

	b.setupRouter()
	b.cancelHandler = NewCancelHandler(b.registry, b.transport, b.logger.Named("cancel"))

	client.Dispatcher.AddHandler(handlers.NewCallbackQuery(filters.CallbackQuery.Prefix(downloader.CancelPrefix), b.onCallbackQuery))
	client.Dispatcher.AddHandler(handlers.NewMessage(filters.Message.Text, b.onMessage))

	go func() {
		if err := client.Idle(); err != nil {
			b.logger.Error("gotgproto client stopped", zap.Error(err))
		}
	}()

	b.logger.Info("Telegram bot started", zap.String("session_file", b.config.SessionFile))
	return nil
}

// setupRouter registers the command and text handlers
func (b *TelegramBot) setupRouter() {
	errorHandler := NewErrorHandler(b.logger.Named("errors"), b.transport)
	b.router.SetErrorHandler(errorHandler)
	b.router.RegisterHandler(NewStartHandler(b.transport, b.logger, b.config.MaxFileSize))
	b.router.RegisterHandler(NewHelpHandler(b.transport, b.logger, b.config.MaxFileSize))
	b.router.SetTextHandler(NewURLHandler(b.service, b.logger))
}

func (b *TelegramBot) onMessage(ctx *ext.Context, u *ext.Update) error {
	msg := u.EffectiveMessage
	if msg == nil || msg.Message == nil || msg.Out {
		return nil
	}

	if chat := u.EffectiveChat(); chat != nil {
		b.transport.RememberPeer(chatIDFromPeer(msg.PeerID), chat.GetInputPeer())
	}

	return b.router.RouteCommand(ctx, &tg.UpdateNewMessage{Message: msg.Message})
}

func (b *TelegramBot) onCallbackQuery(ctx *ext.Context, u *ext.Update) error {
	query := u.CallbackQuery
	if query == nil {
		return nil
	}

	return b.cancelHandler.Handle(ctx, CallbackQuery{
		QueryID:   query.QueryID,
		ChatID:    chatIDFromPeer(query.Peer),
		MessageID: query.MsgID,
		Data:      string(query.Data),
	})
}

// Stop cancels in-flight transfers, waits for them to report, and stops the client
func (b *TelegramBot) Stop() error {
	b.logger.Info("stopping Telegram bot")

	if b.cancel != nil {
		b.cancel()
	}

	if b.service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := b.service.Shutdown(ctx); err != nil {
			b.logger.Warn("transfers did not drain before shutdown", zap.Error(err))
		}
	}

	if b.client != nil {
		b.client.Stop()
	}

	b.logger.Info("Telegram bot stopped")
	return nil
}

// GetClient returns the underlying gotgproto client for advanced usage
func (b *TelegramBot) GetClient() *gotgproto.Client {
	return b.client
}

// IsRunning returns true if the bot is currently running
func (b *TelegramBot) IsRunning() bool {
	return b.client != nil && b.ctx.Err() == nil
}

// GetRouter returns the command router for advanced usage
func (b *TelegramBot) GetRouter() *CommandRouter {
	return b.router
}

// Registry returns the session registry shared with the status server
func (b *TelegramBot) Registry() *downloader.SessionRegistry {
	return b.registry
}

// NewTransferService wires storage, fetching, download, upload and orchestration
// for cfg on top of transport
func NewTransferService(ctx context.Context, cfg *config.BotConfig, transport downloader.Transport, registry *downloader.SessionRegistry, logger *zap.Logger) (*downloader.Service, error) {
	storage, err := downloader.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, err
	}

	fetcherOpts := downloader.DefaultFetcherOptions()
	fetcherOpts.Timeout = cfg.DownloadTimeout
	fetcherOpts.ConnectTimeout = cfg.ConnectTimeout
	fetcherOpts.ProbeRetries = cfg.ProbeRetries
	fetcher := downloader.NewHTTPFetcher(fetcherOpts)

	dl := downloader.NewStreamingDownloader(fetcher, storage, downloader.DownloaderOptions{
		MaxFileSize:      cfg.MaxFileSize,
		ChunkSize:        cfg.ChunkSize,
		ProgressInterval: cfg.ProgressInterval,
		Timeout:          cfg.DownloadTimeout,
	}, logger.Named("download"))

	up := downloader.NewStreamingUploader(transport, storage, downloader.UploaderOptions{
		RetrySend:        true,
		ProgressInterval: cfg.ProgressInterval,
	}, logger.Named("upload"))

	var console io.Writer
	if cfg.ConsoleProgress {
		console = os.Stderr
	}

	orchestrator := downloader.NewOrchestrator(registry, dl, up, transport, storage, downloader.OrchestratorOptions{
		MaxFileSize:     cfg.MaxFileSize,
		MaxPerChat:      cfg.MaxTransfersPerChat,
		DownloadTimeout: cfg.DownloadTimeout,
		Console:         console,
	}, logger.Named("transfer"))

	return downloader.NewService(ctx, orchestrator, transport, cfg.MaxConcurrentTransfers, logger.Named("service")), nil
}
