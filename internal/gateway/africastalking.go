package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"smsgateway/internal/config"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.africastalking.com"
	messagingPath  = "/version1/messaging"
)

type AfricasTalking struct {
	client   *resty.Client
	username string
	senderID string
}

type atResponse struct {
	SMSMessageData *struct {
		Message    string `json:"Message"`
		Recipients []struct {
			StatusCode int    `json:"statusCode"`
			Number     string `json:"number"`
			Status     string `json:"status"`
			Cost       string `json:"cost"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func NewAfricasTalking(cfg config.GatewayConfig) *AfricasTalking {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("apiKey", cfg.APIKey).
		SetHeader("Accept", "application/json")
	return &AfricasTalking{client: client, username: cfg.Username, senderID: cfg.SenderID}
}

func (a *AfricasTalking) Send(ctx context.Context, msg Message) (Result, error) {
	if len(msg.Recipients) == 0 {
		return Result{}, ErrNoRecipients
	}
	form := map[string]string{
		"username": a.username,
		"to":       strings.Join(msg.Recipients, ","),
		"message":  msg.Body,
	}
	senderID := msg.SenderID
	if senderID == "" {
		senderID = a.senderID
	}
	if senderID != "" {
		form["from"] = senderID
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(messagingPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	if !resp.IsSuccess() {
		return Result{}, fmt.Errorf("%w: gateway returned %d", ErrDispatch, resp.StatusCode())
	}
	var body atResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}
	if body.SMSMessageData == nil {
		return Result{}, ErrMissingPayload
	}
	byNumber := make(map[string]RecipientResult, len(body.SMSMessageData.Recipients))
	for _, r := range body.SMSMessageData.Recipients {
		outcome := OutcomeFailure
		if r.Status == "Success" {
			outcome = OutcomeSuccess
		}
		messageID := r.MessageID
		if messageID == "None" {
			messageID = ""
		}
		byNumber[r.Number] = RecipientResult{
			Recipient:         r.Number,
			Outcome:           outcome,
			ProviderMessageID: messageID,
			ProviderStatus:    r.Status,
		}
	}
	return order(msg.Recipients, byNumber), nil
}
