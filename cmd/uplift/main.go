package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uplift/internal/api"
	"uplift/internal/app"
	"uplift/internal/cache"
	"uplift/internal/config"
	"uplift/internal/pkg/logger"
	"uplift/internal/pkg/security"
	"uplift/internal/points"
	"uplift/internal/service"
	"uplift/internal/session"
)

func main() {
	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger(config.LogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	store, err := cache.NewSQLite(config.CachePath, l)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	key, err := security.LoadOrCreateKey(config.KeyPath)
	if err != nil {
		log.Fatal(err)
	}

	reconciler := points.NewReconciler(l)
	sess := session.New(store, reconciler, key, l)
	client := api.NewHTTPClient(config.APIBaseURL, sess.Token, l)
	engine := app.NewApp(client, store, sess, reconciler, config.MaxDailyItems, config.SubmissionAward, l)

	const restoreTimeout = 10 * time.Second
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), restoreTimeout)
	if engine.Restore(restoreCtx) {
		l.Sugar().Infof("Restored previous session")
	}
	cancelRestore()

	gateway := service.NewService(engine, config.RunAddress, l)

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: config.RunAddress, Handler: gateway.NewRouter(), ReadHeaderTimeout: readHeaderTimeout}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		const shutdownTimeout = 30 * time.Second
		shutdownCtx, cancel := context.WithTimeout(serverCtx, shutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		store.Close()
		log.Fatal(err)
	}

	<-serverCtx.Done()
}
