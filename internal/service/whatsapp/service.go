package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/config"
	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
	"github.com/mamadbah2/calftracker/internal/service/commands"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
	client "github.com/mamadbah2/calftracker/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// ErrVerification indicates a webhook verification request was rejected.
var ErrVerification = errors.New("webhook verification failed")

// MessagingService describes the operations the HTTP layer and scheduler can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", fmt.Errorf("%w: missing mode or verify token", ErrVerification)
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("%w: unsupported hub.mode %s", ErrVerification, mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", fmt.Errorf("%w: invalid verify token", ErrVerification)
	}

	return challenge, nil
}

// HandleWebhook runs every inbound message as a command and replies to its sender.
// Processing continues past failures; the first error is returned.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if n := len(change.Value.Statuses); n > 0 {
				s.logger.Debug("ignoring delivery receipts", zap.Int("count", n))
			}
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := msg.Body()
	if strings.TrimSpace(text) == "" {
		s.logger.Debug("skipping message without text", zap.String("type", msg.Type), zap.String("from", msg.From))
		return nil
	}

	if msg.ID != "" {
		if err := s.client.MarkRead(ctx, msg.ID); err != nil {
			s.logger.Warn("failed to mark message read", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	cmd := models.ParseCommand(text)
	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	reply, err := s.dispatcher.HandleCommand(ctx, cmd, msg.From)
	if err != nil {
		s.logger.Info("command rejected", zap.String("from", msg.From), zap.Error(err))
		reply = ReplyForError(err)
	}

	return s.send(ctx, client.SendTextMessageRequest{To: msg.From, Body: reply, ReplyTo: msg.ID})
}

// SendOutbound pushes a text message, used for the daily report.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return s.send(ctx, client.SendTextMessageRequest{To: req.To, Body: req.Message})
}

func (s *MetaWhatsAppService) send(ctx context.Context, req client.SendTextMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := s.client.SendTextMessage(ctxWithTimeout, req); err != nil {
		return fmt.Errorf("send to %s: %w", req.To, err)
	}
	return nil
}

// ReplyForError turns a command failure into the text sent back to the operator.
func ReplyForError(err error) string {
	switch {
	case errors.Is(err, commands.ErrUnknownSender):
		return "This number is not linked to an operator. Ask an admin to add your phone."
	case errors.Is(err, commands.ErrUnsupportedCommand):
		return "Unknown command.\n" + commands.HelpText
	case errors.Is(err, commands.ErrInvalidArguments):
		return "Could not read that command.\n" + commands.HelpText
	case errors.Is(err, commands.ErrUnknownAnimal), errors.Is(err, repository.ErrNotFound):
		return "No calf with that number."
	case errors.Is(err, tracker.ErrInvalidConsumption):
		return "Consumption must be a percentage between 0 and 100."
	case errors.Is(err, tracker.ErrNoFeedingThisPeriod):
		return "Record a feeding for this period first."
	case errors.Is(err, tracker.ErrAnimalInactive):
		return "That calf is archived."
	default:
		return "Something went wrong, please try again later."
	}
}
