package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/internal/service/campaign"
	"github.com/dzerik/campaign-portal/internal/service/customer"
	"github.com/dzerik/campaign-portal/internal/service/llm"
	"github.com/dzerik/campaign-portal/internal/service/webhook"
	"github.com/dzerik/campaign-portal/pkg/logger"
	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
)

// CampaignHandler handles the customer list and campaign routes
type CampaignHandler struct {
	service      *campaign.Service
	maxBodyBytes int64
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(svc *campaign.Service, maxBodyBytes int64) *CampaignHandler {
	return &CampaignHandler{service: svc, maxBodyBytes: maxBodyBytes}
}

// RulesRequest is the body of POST /api/campaigns/rules
type RulesRequest struct {
	Description string `json:"description"`
}

// RulesResponse carries generated rules
type RulesResponse struct {
	Rules []model.Rule `json:"rules"`
}

// MessageRequest is the body of POST /api/campaigns/message
type MessageRequest struct {
	CampaignName string       `json:"campaign_name"`
	Rules        []model.Rule `json:"rules"`
}

// HandleCustomers lists customers
func (h *CampaignHandler) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.Customers(r.Context())
	if err != nil {
		h.renderServiceError(w, r, "list customers", err)
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

// HandleRules generates targeting rules from a description
func (h *CampaignHandler) HandleRules(w http.ResponseWriter, r *http.Request) {
	var req RulesRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		renderJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rules, err := h.service.GenerateRules(r.Context(), req.Description)
	if err != nil {
		h.renderServiceError(w, r, "generate rules", err)
		return
	}
	writeJSON(w, http.StatusOK, RulesResponse{Rules: rules})
}

// HandleMessage generates a subject and email body
func (h *CampaignHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		renderJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.service.GenerateMessage(r.Context(), req.CampaignName, req.Rules)
	if err != nil {
		h.renderServiceError(w, r, "generate message", err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// HandleSend dispatches a campaign. Partial failures still answer 200 with
// the per-recipient report.
func (h *CampaignHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req campaign.SendRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		renderJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.service.Send(r.Context(), req)
	if err != nil {
		h.renderServiceError(w, r, "send campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *CampaignHandler) renderServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message := campaignErrorStatus(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Warn(op+" failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Debug(op+" rejected", zap.Error(err))
	}
	renderJSONError(w, message, status)
}

// campaignErrorStatus maps service errors to a status and client message.
func campaignErrorStatus(err error) (int, string) {
	var apiErr *llm.APIError
	switch {
	case campaign.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, llm.ErrNotConfigured), errors.Is(err, webhook.ErrNotConfigured):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, circuitbreaker.ErrOpen):
		return http.StatusServiceUnavailable, "Upstream temporarily unavailable"
	case errors.Is(err, customer.ErrInvalidPayload):
		return http.StatusBadGateway, customer.ErrInvalidPayload.Error()
	case errors.Is(err, customer.ErrUnavailable):
		return http.StatusBadGateway, customer.ErrUnavailable.Error()
	case errors.Is(err, campaign.ErrInvalidModelOutput), errors.Is(err, llm.ErrEmptyCompletion):
		return http.StatusBadGateway, "The language model returned an unusable response"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, apiErr.Error()
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
