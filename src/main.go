package main

import (
	"apaeventus/src/boot"
	"apaeventus/src/config"
	"apaeventus/src/db"
	"apaeventus/src/middlewares"
	"apaeventus/src/types"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	apiPrefix string = "/api/v1"
)

var futureDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := time.Parse(config.TIME_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	return datetime.After(time.Now())
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("futuredate", futureDateValidatorFunc)
	}
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		if mm == "" {
			return
		}
		on, err := strconv.ParseBool(mm)
		if err != nil || on {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

// respondError writes the JSON error envelope for err and aborts the chain.
func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	name := types.KIND_INTERNAL.String()
	messages := []string{"Internal server error"}
	if appErr, ok := types.AsAppError(err); ok {
		status = appErr.Status()
		name = appErr.Kind.String()
		if len(appErr.Messages) > 0 {
			messages = appErr.Messages
		}
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[%s %s] %s\n", ctx.Request.Method, ctx.Request.URL.Path, err.Error())
	}
	ctx.AbortWithStatusJSON(status, gin.H{
		"statusCode": status,
		"error":      name,
		"message":    messages,
		"path":       ctx.Request.URL.Path,
		"method":     ctx.Request.Method,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func bindingError(err error) error {
	return types.Validation(err.Error())
}

func corsMiddleware(local bool) gin.HandlerFunc {
	if local {
		return cors.Default()
	}
	appHost := os.Getenv("APP_HOST")
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", "Stripe-Signature")
	cc.AllowOriginFunc = func(origin string) bool {
		if appHost == "" {
			return false
		}
		match, _ := regexp.MatchString(appHost, origin)
		return match
	}
	return cors.New(cc)
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	if err := os.MkdirAll(path.Dir(apiLogs), 0o755); err != nil {
		log.Printf("error creating log directory: %s\n", err.Error())
	}
	f, err := os.Create(apiLogs)
	if err == nil {
		gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	}
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

// registerRoutes mounts every API route on router.
func registerRoutes(router *gin.Engine, app *boot.Services, jwtKey []byte, limiter middlewares.Limiter) {
	publicRoutes(router, app.Tickets)
	stripeWebhookRoute(router, app.Reconciler)

	authorized := apiv1Group(router)
	authorized.Use(middlewares.AuthMiddleware(jwtKey, app.Store))
	saleHandlers(authorized, app.Sales, app.Reconciler, app.Redemption, limiter)
	ticketHandlers(authorized, app.Tickets)
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	cfg := config.Load()
	database := boot.InitDb(db.GetDb())
	app, err := boot.InitServices(context.Background(), cfg, database)
	if err != nil {
		log.Fatalf("error initializing services: %s", err.Error())
	}

	router := setupRouter()
	router.Use(corsMiddleware(cfg.IsLocal()))
	registerValidators()
	router = maintenanceModeMiddleware(router)

	var limiter middlewares.Limiter
	if app.RateLimiter != nil {
		limiter = app.RateLimiter
	}
	registerRoutes(router, app, []byte(os.Getenv("JWT_SECRET")), limiter)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %s", err.Error())
	}
}
