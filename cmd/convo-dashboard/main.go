package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"convosense.local/dashboard/internal/auth"
	"convosense.local/dashboard/internal/channel"
	"convosense.local/dashboard/internal/config"
	"convosense.local/dashboard/internal/httpapi"
	"convosense.local/dashboard/internal/notify"
	"convosense.local/dashboard/internal/orchestrator"
	"convosense.local/dashboard/internal/profile"
	"convosense.local/dashboard/internal/store"
	"convosense.local/dashboard/internal/submit"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(os.Stdout, "dashboard ", log.Ldate|log.Ltime|log.Lmicroseconds|log.LUTC)
	cfg, err := config.FromYAMLAndEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	reports, err := store.NewGormStore(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatalf("failed to initialize report store: %v", err)
	}
	defer func() {
		if err := reports.Close(); err != nil {
			logger.Printf("report store close error: %v", err)
		}
	}()

	var authProvider auth.Provider
	if cfg.AuthBaseURL != "" {
		authProvider = auth.NewHTTPProvider(cfg.AuthBaseURL, cfg.AuthToken)
	} else {
		authProvider = auth.NewAnonymous()
	}

	userCtx, userCancel := context.WithTimeout(context.Background(), 10*time.Second)
	user, err := authProvider.CurrentUser(userCtx)
	userCancel()
	if err != nil && !errors.Is(err, auth.ErrNotSignedIn) {
		logger.Printf("identity lookup warning: %v", err)
	}
	uid := ""
	if user != nil {
		uid = user.UID
		logger.Printf("signed in uid=%s", uid)
	}

	if cfg.ProfileSync && user != nil {
		syncer := profile.NewSyncer(logger, cfg.AnalyzerBaseURL)
		go syncer.Sync(context.Background(), user)
	}

	adapter := channel.New(channel.Config{
		URL:        cfg.AnalyzerWSURL,
		MinBackoff: cfg.ReconnectMinBackoff,
		MaxBackoff: cfg.ReconnectMaxBackoff,
	}, logger)
	defer func() {
		if err := adapter.Close(); err != nil {
			logger.Printf("push channel close error: %v", err)
		}
	}()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 15*time.Second)
	err = adapter.Dial(dialCtx)
	dialCancel()
	if err != nil {
		// The adapter keeps reconnecting in the background; startup proceeds.
		logger.Printf("push channel dial warning: %v", err)
	}

	bridge := httpapi.NewSnapshotBridge()
	defer bridge.Close()

	subs := []notify.Subscriber{notify.NewLoggingSubscriber(logger), bridge}
	for idx, webhookURL := range cfg.WebhookURLs {
		name := webhookSubscriberName(idx, webhookURL)
		subs = append(subs, notify.NewWebhookSubscriber(name, webhookURL,
			notify.WithSnapshotFilter(notify.TerminalOnly)))
	}
	notifier := notify.New(logger, subs)

	submitter := submit.New(cfg.AnalyzerBaseURL)
	orch := orchestrator.New(logger, submitter, adapter,
		orchestrator.Config{MaxTweets: cfg.MaxTweets, PageSize: cfg.PageSize},
		orchestrator.WithReportStore(reports),
		orchestrator.WithPublisher(notifier),
		orchestrator.WithUser(uid),
	)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	orch.Run(runCtx)

	srv := httpapi.NewServer(logger, cfg.HTTPAddr, orch, reports, authProvider, bridge)
	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server crashed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http server shutdown error: %v", err)
	}
}

func webhookSubscriberName(index int, webhookURL string) string {
	parsed, err := url.Parse(webhookURL)
	if err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return fmt.Sprintf("webhook-%d", index+1)
}
