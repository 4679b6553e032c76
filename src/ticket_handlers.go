package main

import (
	"apaeventus/src/config"
	"apaeventus/src/middlewares"
	"apaeventus/src/services"
	"apaeventus/src/types"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func publicRoutes(g *gin.Engine, tickets *services.TicketService) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/ticket", func(ctx *gin.Context) {
			res, err := tickets.FindAvailable(ctx.Request.Context())
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, res)
		}).
		GET("/ticket/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			res, err := tickets.FindOne(ctx.Request.Context(), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, res)
		})
	return apiv1
}

func ticketHandlers(g *gin.RouterGroup, tickets *services.TicketService) *gin.RouterGroup {
	admin := g.Group("/ticket", middlewares.RequireRole(types.ROLE_ADMIN))
	admin.
		POST("", func(ctx *gin.Context) {
			var body types.CreateTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			eventDate, err := time.Parse(config.TIME_PARSE_FORMAT, body.EventDate)
			if err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			res, err := tickets.Create(ctx.Request.Context(), services.CreateTicketInput{
				Title:       body.Title,
				Description: body.Description,
				EventDate:   eventDate,
				Quantity:    body.Quantity,
				Price:       body.Price,
				ImageURL:    body.ImageURL,
			})
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, res)
		}).
		POST("/enable-disable", func(ctx *gin.Context) {
			var body types.EnableDisableTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			if err := tickets.SetActive(ctx.Request.Context(), body.ID, body.IsActive); err != nil {
				respondError(ctx, err)
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			if err := tickets.Delete(ctx.Request.Context(), params.ID); err != nil {
				respondError(ctx, err)
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/:id/count-sold", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			count, err := tickets.CountSold(ctx.Request.Context(), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, types.CountResponse{Count: count})
		}).
		GET("/:id/count-used", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondError(ctx, bindingError(err))
				return
			}
			count, err := tickets.CountUsed(ctx.Request.Context(), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, types.CountResponse{Count: count})
		})
	return g
}
