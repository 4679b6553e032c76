package main

import (
	"apaeventus/src/services"
	"apaeventus/src/types"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = int64(65536)

func stripeWebhookRoute(g *gin.Engine, reconciler *services.ReconcilerService) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/stripe/webhook", func(ctx *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBodyBytes))
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		event, err := reconciler.VerifyWebhook(payload, ctx.GetHeader("Stripe-Signature"))
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			respondError(ctx, err)
			return
		}
		log.Printf("[StripeEvent] %s %s\n", event.Type, event.ID)
		if err := reconciler.HandleEvent(ctx.Request.Context(), event); err != nil {
			// any non-2xx makes Stripe redeliver the event
			respondError(ctx, &types.AppError{
				Kind:     types.KIND_INTERNAL,
				Messages: []string{"Webhook processing failed"},
				Err:      err,
			})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"received": true})
	})
	return apiv1
}
