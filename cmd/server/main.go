package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/config"
	"github.com/learnit/learnit-api/internal/database"
	"github.com/learnit/learnit-api/internal/handler"
	"github.com/learnit/learnit-api/internal/middleware"
	"github.com/learnit/learnit-api/internal/queue"
	"github.com/learnit/learnit-api/internal/repository"
	"github.com/learnit/learnit-api/internal/router"
)

func main() {
	// Honor a local .env in development; a missing file is fine.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the response cache and the rate limiter. A nil client
	// turns both into pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	machines := repository.NewMachineRepo(db)
	courses := repository.NewCourseRepo(db)
	quizzes := repository.NewQuizRepo(db)
	certs := repository.NewCertificationRepo(db)
	bookings := repository.NewBookingRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	machineH := handler.NewMachineHandler(machines, courses, certs, bookings)
	courseH := handler.NewCourseHandler(courses)
	quizH := handler.NewQuizHandler(quizzes, courses, machines, certs)
	certH := handler.NewCertificationHandler(certs, machines, users)
	userH := handler.NewUserHandler(cfg, users)
	bookingH := handler.NewBookingHandler(bookings, machines, courses, certs)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cached := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterMember(e, router.MemberHandlers{
		Machines: machineH,
		Courses:  courseH,
		Quizzes:  quizH,
		Certs:    certH,
		Bookings: bookingH,
		Users:    userH,
	}, cfg.JWTSecret, cached)
	router.RegisterAdmin(e, router.AdminHandlers{
		Machines: machineH,
		Courses:  courseH,
		Quizzes:  quizH,
		Certs:    certH,
		Bookings: bookingH,
		Users:    userH,
	}, cfg.JWTSecret)

	// The audit consumer runs for the life of the process and reconnects
	// on broker failures; it never takes the API down with it.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
