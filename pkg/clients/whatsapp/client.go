package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/calftracker/internal/config"
)

const messagingProduct = "whatsapp"

// Client is the subset of the Cloud API used for operator conversations.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error)
	MarkRead(ctx context.Context, messageID string) error
}

// APIClient talks to the Cloud API through resty.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient builds a client for the business phone number in cfg.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/") + "/" + cfg.APIVersion).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{httpClient: restyClient, phoneNumberID: cfg.PhoneNumberID}
}

// SendTextMessageRequest is a plain text message. ReplyTo quotes an earlier
// inbound message when set.
type SendTextMessageRequest struct {
	To      string
	Body    string
	ReplyTo string
}

// SendTextMessageResponse lists the ids Meta assigned to the sent messages.
type SendTextMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type messageContext struct {
	MessageID string `json:"message_id"`
}

type textMessage struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Text             textBody        `json:"text"`
	Context          *messageContext `json:"context,omitempty"`
}

type readReceipt struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// Error is returned when the Cloud API rejects a request.
type Error struct {
	Status  int
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d message=%s", e.Status, e.Code, e.Message)
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// SendTextMessage posts a text message to req.To.
func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error) {
	msg := textMessage{
		MessagingProduct: messagingProduct,
		To:               req.To,
		Type:             "text",
		Text:             textBody{Body: req.Body},
	}
	if req.ReplyTo != "" {
		msg.Context = &messageContext{MessageID: req.ReplyTo}
	}

	result := new(SendTextMessageResponse)
	if err := c.post(ctx, msg, result); err != nil {
		return nil, fmt.Errorf("send whatsapp message: %w", err)
	}
	return result, nil
}

// MarkRead shows the blue ticks on an inbound message.
func (c *APIClient) MarkRead(ctx context.Context, messageID string) error {
	receipt := readReceipt{
		MessagingProduct: messagingProduct,
		Status:           "read",
		MessageID:        messageID,
	}
	if err := c.post(ctx, receipt, nil); err != nil {
		return fmt.Errorf("mark message %s read: %w", messageID, err)
	}
	return nil
}

func (c *APIClient) post(ctx context.Context, body, result any) error {
	envelope := new(errorEnvelope)
	req := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetError(envelope)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(c.phoneNumberID + "/messages")
	if err != nil {
		return err
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		code := envelope.Error.Code
		if code == 0 {
			code = resp.StatusCode()
		}
		return &Error{Status: resp.StatusCode(), Code: code, Message: envelope.Error.Message}
	}
	return nil
}
