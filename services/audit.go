package services

import (
	"encoding/json"

	"passkey_auth_ms/domain"
	"passkey_auth_ms/repository/command_repository"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ActionRegisterOptionsIssued     = "register_options_issued"
	ActionRegisterVerified          = "register_verified"
	ActionRegisterRejected          = "register_rejected"
	ActionAuthenticateOptionsIssued = "authenticate_options_issued"
	ActionAuthenticateVerified      = "authenticate_verified"
	ActionAuthenticateRejected      = "authenticate_rejected"
	ActionCredentialRevoked         = "credential_revoked"
)

// IAuditService is a best-effort side channel. Record never blocks the
// caller and never returns an error; a dropped audit write is acceptable
// loss, a failed request because of auditing is not.
type IAuditService interface {
	Record(event *domain.AuditEvent)
}

type AuditService struct {
	db       *gorm.DB
	command  command_repository.IAuditCommandRepository
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger
}

func NewAuditService(db *gorm.DB, command command_repository.IAuditCommandRepository, producer sarama.AsyncProducer, topic string, logger *zap.Logger) *AuditService {
	s := &AuditService{db: db, command: command, producer: producer, topic: topic, logger: logger}
	if producer != nil {
		go s.drainProducerErrors()
	}
	return s
}

func (s *AuditService) Record(event *domain.AuditEvent) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Warn("audit sink panicked", zap.Any("panic", r))
			}
		}()

		if err := s.command.Append(s.db, event); err != nil {
			s.logger.Warn("audit event dropped", zap.String("action", event.Action), zap.Error(err))
		}
		s.publish(event)
	}()
}

func (s *AuditService) publish(event *domain.AuditEvent) {
	if s.producer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(data),
	}
}

func (s *AuditService) drainProducerErrors() {
	for err := range s.producer.Errors() {
		s.logger.Warn("audit event publish failed", zap.Error(err))
	}
}
