package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/cradoe/quizash/internal/app"
	"github.com/cradoe/quizash/internal/version"
	"github.com/cradoe/quizash/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	application, err := app.NewApplication(logger)
	if err != nil {
		return err
	}
	defer application.DB.Close()
	defer application.Kafka.Close()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	workers := worker.New(&worker.Worker{
		KafkaStream:  application.Kafka,
		UserRepo:     application.DB.User(),
		ActivityRepo: application.DB.Activity(),
		Mailer:       application.Mailer,
		Helper:       application.Helper,
		Ctx:          workerCtx,
	})

	go workers.WithdrawalNotificationWorker()
	go workers.ReferralBonusWorker()

	return application.ServeHTTP()
}
