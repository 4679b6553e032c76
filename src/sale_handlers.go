package main

import (
	"apaeventus/src/middlewares"
	"apaeventus/src/services"
	"apaeventus/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func saleHandlers(
	g *gin.RouterGroup,
	sales *services.SaleService,
	reconciler *services.ReconcilerService,
	redemption *services.RedemptionService,
	limiter middlewares.Limiter,
) *gin.RouterGroup {
	g.
		POST("/sale", middlewares.RateLimit(limiter), func(ctx *gin.Context) {
			var body types.CreateSaleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			res, err := reconciler.InitiateCheckout(ctx.Request.Context(), services.CheckoutInput{
				TicketID:   body.TicketID,
				UserID:     ctx.GetUint("id"),
				Quantity:   body.Quantity,
				SuccessURL: body.SuccessURL,
				CancelURL:  body.CancelURL,
			})
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, res)
		}).
		GET("/sale", func(ctx *gin.Context) {
			res, err := sales.FindByUser(ctx.Request.Context(), ctx.GetUint("id"))
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, res)
		}).
		GET("/sale/:id", func(ctx *gin.Context) {
			var params types.SaleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			res, err := sales.FindByID(ctx.Request.Context(), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			// buyers only see their own sales
			if ctx.GetString("role") != types.ROLE_ADMIN && res.UserID != ctx.GetUint("id") {
				respondError(ctx, types.NotFound(types.ERR_SALE_NOT_FOUND))
				return
			}
			ctx.JSON(http.StatusOK, res)
		})

	admin := g.Group("/sale", middlewares.RequireRole(types.ROLE_ADMIN))
	admin.
		POST("/set-used", func(ctx *gin.Context) {
			var body types.UpdateSaleUsageRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			res, err := redemption.MarkUsed(ctx.Request.Context(), body.SaleID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, res)
		}).
		POST("/set-unused", func(ctx *gin.Context) {
			var body types.UpdateSaleUsageRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			res, err := redemption.MarkUnused(ctx.Request.Context(), body.SaleID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, res)
		})
	return g
}
