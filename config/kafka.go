package config

import (
	"github.com/IBM/sarama"
	"github.com/gofiber/fiber/v2/log"
)

// InitKafkaProducer returns an async producer for the audit topic, or nil
// when the brokers are unreachable. The audit sink treats a nil producer as
// "database only".
func InitKafkaProducer() sarama.AsyncProducer {
	if len(Conf.Application.Kafka.Brokers) == 0 {
		return nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(Conf.Application.Kafka.Brokers, cfg)
	if err != nil {
		log.Warn("Failed to create kafka producer, audit events stay local: ", err)
		return nil
	}
	return producer
}
