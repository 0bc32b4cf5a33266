package worker

import (
	"context"

	"github.com/cradoe/quizash/internal/helper"
	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/smtp"
	"github.com/cradoe/quizash/internal/stream"
)

type Worker struct {
	KafkaStream  *stream.KafkaStream
	UserRepo     repository.UserRepository
	ActivityRepo repository.ActivityRepository
	Mailer       smtp.MailerInterface
	Helper       *helper.HelperRepository
	Ctx          context.Context
}

const (
	// withdrawalUpdatedGroupID is used for workers that react whenever a withdrawal request is created or changes status
	withdrawalUpdatedGroupID = "withdrawal-updated-group"

	// walletCreditedGroupID is used for workers that react whenever a wallet is credited outside a request cycle
	walletCreditedGroupID = "wallet-credited-group"
)

// Our workers typically need access to the repositories, the mailer and the
// kafka event stream. Worker-specific dependencies can be passed as argument
// to the worker.
func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream:  wk.KafkaStream,
		UserRepo:     wk.UserRepo,
		ActivityRepo: wk.ActivityRepo,
		Mailer:       wk.Mailer,
		Helper:       wk.Helper,
		Ctx:          wk.Ctx,
	}
}
