// Withdrawal requests change hands a few times between submission and
// payout. Every change lands on the stream, and this worker turns each one
// into an email to the request owner so they never have to poll the app.
package worker

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/stream"
)

func (wk *Worker) WithdrawalNotificationWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: withdrawalUpdatedGroupID,
		Topic:   stream.WithdrawalUpdatedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("WithdrawalNotificationWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				var withdrawalEvent stream.WithdrawalEvent
				if err := json.Unmarshal(e.Value, &withdrawalEvent); err != nil {
					log.Printf("Error decoding withdrawal event: %v", err)
					continue
				}

				wk.sendWithdrawalAlert(&withdrawalEvent)
			case kafka.Error:
				log.Printf("Error: %v\n", e)
			case *kafka.AssignedPartitions:
				consumer.Assign(e.Partitions)
			case *kafka.RevokedPartitions:
				consumer.Unassign()
			}
		}
	}
}

func (wk *Worker) sendWithdrawalAlert(event *stream.WithdrawalEvent) bool {
	user, found, err := wk.UserRepo.GetOne(event.UserID)
	if err != nil || !found {
		log.Printf("Error finding user account for withdrawal alert: %v", err)
		return false
	}

	wk.Helper.BackgroundTask(nil, func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["FirstName"] = user.FirstName
		emailData["Amount"] = event.Amount
		emailData["Status"] = event.Status
		emailData["Note"] = event.Note

		err := wk.Mailer.Send(user.Email, emailData, "withdrawal-update.tmpl")
		if err != nil {
			log.Printf("Error sending withdrawal alert: %v", err)
			return err
		}

		_, err = wk.ActivityRepo.Insert(&repository.ActivityLog{
			UserID:      repository.NullString(user.ID),
			Entity:      repository.ActivityLogWithdrawalEntity,
			EntityId:    event.WithdrawalID,
			Description: fmt.Sprintf("Notified user that withdrawal is %s", event.Status),
		})
		if err != nil {
			log.Printf("Error logging withdrawal alert: %v", err)
		}
		return nil
	})

	return true
}
