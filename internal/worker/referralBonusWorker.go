// Referral bonuses are credited inside the subscription confirmation path,
// so by the time an event reaches this worker the money has already moved.
// All that is left is telling the referrer about it.
package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/cradoe/quizash/internal/stream"
)

func (wk *Worker) ReferralBonusWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: walletCreditedGroupID,
		Topic:   stream.WalletCreditedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("ReferralBonusWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				var creditEvent stream.WalletCreditedEvent
				if err := json.Unmarshal(e.Value, &creditEvent); err != nil {
					log.Printf("Error decoding wallet credited event: %v", err)
					continue
				}

				wk.sendBonusAlert(&creditEvent)
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

func (wk *Worker) sendBonusAlert(event *stream.WalletCreditedEvent) bool {
	user, found, err := wk.UserRepo.GetOne(event.UserID)
	if err != nil || !found {
		log.Printf("Error finding user account for bonus alert: %v", err)
		return false
	}

	wk.Helper.BackgroundTask(nil, func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["FirstName"] = user.FirstName
		emailData["Amount"] = event.Amount
		emailData["ReferralCode"] = user.ReferralCode

		err := wk.Mailer.Send(user.Email, emailData, "referral-bonus.tmpl")
		if err != nil {
			log.Printf("Error sending referral bonus alert: %v", err)
			return err
		}
		return nil
	})

	return true
}
