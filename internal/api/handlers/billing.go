package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/jobtrail/internal/api/dto"
	"github.com/pratik-mahalle/jobtrail/internal/api/middleware"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/utils"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/validator"
)

// BillingHandler handles the authenticated billing endpoints
type BillingHandler struct {
	users      user.Service
	checkout   billing.CheckoutService
	reconciler billing.Reconciler
	baseURL    string
	logger     *logger.Logger
	validator  *validator.Validator
}

// NewBillingHandler creates a new BillingHandler. baseURL is the public
// frontend origin used for redirect URLs; when empty the request host is used.
func NewBillingHandler(
	users user.Service,
	checkout billing.CheckoutService,
	reconciler billing.Reconciler,
	baseURL string,
	log *logger.Logger,
	val *validator.Validator,
) *BillingHandler {
	return &BillingHandler{
		users:      users,
		checkout:   checkout,
		reconciler: reconciler,
		baseURL:    baseURL,
		logger:     log,
		validator:  val,
	}
}

// Entitlement returns the caller's plan and billing state
// @Summary Get entitlement
// @Description Get the caller's plan, subscription and one-time grant state
// @Tags Billing
// @Produce json
// @Success 200 {object} dto.EntitlementDTO "Entitlement"
// @Failure 401 {object} utils.ErrorResponse "Unauthorized"
// @Failure 404 {object} utils.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /billing/entitlement [get]
func (h *BillingHandler) Entitlement(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.NewEntitlementDTO(u))
}

// Checkout starts a hosted subscription checkout
// @Summary Start subscription checkout
// @Description Create a checkout session for the pro plan and return its URL
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body dto.CheckoutRequest false "Billing interval"
// @Success 200 {object} dto.URLResponse "Checkout URL"
// @Failure 400 {object} utils.ErrorResponse "Payments disabled or invalid interval"
// @Failure 502 {object} utils.ErrorResponse "Payment processor error"
// @Security BearerAuth
// @Router /billing/checkout [post]
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	url, err := h.checkout.StartSubscriptionCheckout(r.Context(), userID, req.Interval, requestBaseURL(r, h.baseURL))
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.URLResponse{URL: url})
}

// OneTimeIntent starts a pay-what-you-want payment
// @Summary Start pay-what-you-want payment
// @Description A zero amount grants the one-time plan immediately; otherwise a payment intent client secret is returned
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body dto.OneTimeIntentRequest true "Amount in cents"
// @Success 200 {object} dto.OneTimeIntentResponse "Intent or immediate grant"
// @Failure 400 {object} utils.ErrorResponse "Invalid amount or payments disabled"
// @Failure 502 {object} utils.ErrorResponse "Payment processor error"
// @Security BearerAuth
// @Router /billing/pwyw-intent [post]
func (h *BillingHandler) OneTimeIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.OneTimeIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Invalid amount", errs))
		return
	}

	res, err := h.checkout.StartOneTimePayment(r.Context(), userID, *req.AmountCents)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	middleware.AddLogField(w, "amount_cents", *req.AmountCents)
	utils.WriteSuccess(w, http.StatusOK, dto.NewOneTimeIntentResponse(res))
}

// OneTimeComplete records a one-time payment the client confirmed itself
// @Summary Confirm pay-what-you-want payment
// @Description Grant the one-time plan after the client confirmed the payment, ahead of the webhook
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body dto.OneTimeCompleteRequest true "Amount in cents"
// @Success 200 {object} dto.OKResponse "Granted"
// @Failure 500 {object} utils.ErrorResponse "Failed to record payment"
// @Security BearerAuth
// @Router /billing/pwyw-complete [post]
func (h *BillingHandler) OneTimeComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.OneTimeCompleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.reconciler.ConfirmOneTimeClientSide(r.Context(), userID, req.AmountCents); err != nil {
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.OKResponse{OK: true})
}

// Portal opens the customer billing portal
// @Summary Open billing portal
// @Description Create a billing portal session for managing the subscription
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body dto.PortalRequest false "Return URL"
// @Success 200 {object} dto.URLResponse "Portal URL"
// @Failure 400 {object} utils.ErrorResponse "Payments disabled"
// @Failure 502 {object} utils.ErrorResponse "Payment processor error"
// @Security BearerAuth
// @Router /billing/portal [post]
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.PortalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = requestBaseURL(r, h.baseURL) + "/billing"
	}

	url, err := h.checkout.OpenBillingPortal(r.Context(), userID, returnURL)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.URLResponse{URL: url})
}

// SubscriptionStatus reports the caller's subscription as the gateway sees it
// @Summary Get subscription status
// @Description Look up the caller's active subscription at the payment processor
// @Tags Billing
// @Produce json
// @Success 200 {object} billing.SubscriptionState "Subscription status"
// @Failure 502 {object} utils.ErrorResponse "Payment processor error"
// @Security BearerAuth
// @Router /billing/subscription-status [get]
func (h *BillingHandler) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	state, err := h.checkout.SubscriptionStatus(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, state)
}

// PremiumAccess is an endpoint behind RequirePremium that clients use to check access
// @Summary Check premium access
// @Description Returns 200 for premium users and 402 otherwise
// @Tags Billing
// @Produce json
// @Success 200 {object} dto.PremiumAccessDTO "Premium access"
// @Failure 402 {object} utils.ErrorResponse "Premium plan required"
// @Security BearerAuth
// @Router /premium/access [get]
func (h *BillingHandler) PremiumAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.PremiumAccessDTO{Access: user.HasPremium(u), Plan: string(u.Plan)})
}
