package httpserver

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"storefront-api/internal/domain"
	"storefront-api/internal/service/checkout"
	"github.com/gin-gonic/gin"
)

func paymentConfigHandler(publishableKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"publishableKey": publishableKey})
	}
}

func createPaymentIntentHandler(svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identityFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "not authorized"})
			return
		}

		var in checkout.CreateIntentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
			return
		}

		res, err := svc.CreateIntent(c.Request.Context(), ident, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func confirmPaymentHandler(svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identityFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "not authorized"})
			return
		}

		var in checkout.ConfirmInput
		if err := c.ShouldBindJSON(&in); err != nil {
			writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
			return
		}

		order, err := svc.Confirm(c.Request.Context(), ident, in)
		if err != nil {
			// The charge already succeeded provider-side; tell the caller the
			// order itself failed so support can reconcile against the intent.
			if errors.Is(err, domain.ErrInsufficientInventory) {
				c.JSON(http.StatusConflict, gin.H{
					"message":         "payment succeeded but order could not be completed, contact support",
					"paymentIntentId": in.PaymentIntentID,
				})
				return
			}
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Order created successfully",
			"order": gin.H{
				"id":          order.ID,
				"orderNumber": order.OrderNumber,
				"totalCents":  order.Breakdown.TotalCents,
				"status":      order.Status,
			},
		})
	}
}

// webhookHandler authenticates provider notifications. Events are
// acknowledged and reconciled against the ledger; order creation stays with
// the confirm endpoint, which carries the cart context.
func webhookHandler(verifier WebhookVerifier, orders OrderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
			return
		}

		event, err := verifier.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			writeError(c, err)
			return
		}

		switch event.Type {
		case "payment_intent.succeeded":
			if _, err := orders.GetByPaymentIntent(c.Request.Context(), event.IntentID); errors.Is(err, domain.ErrNotFound) {
				logger.Printf("webhook: intent %s succeeded, awaiting client confirm", event.IntentID)
			} else if err == nil {
				logger.Printf("webhook: intent %s already finalized", event.IntentID)
			}
		case "payment_intent.payment_failed":
			logger.Printf("webhook: intent %s failed", event.IntentID)
		default:
			logger.Printf("webhook: unhandled event type %s", event.Type)
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
