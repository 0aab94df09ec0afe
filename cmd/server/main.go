package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"fitagent/internal/api"
	"fitagent/internal/coaching"
	"fitagent/internal/config"
	"fitagent/internal/conversation"
	"fitagent/internal/db"
	"fitagent/internal/goal"
	"fitagent/internal/interaction"
	"fitagent/internal/pattern"
	"fitagent/internal/profile"
	redisdb "fitagent/internal/redis"
	"fitagent/internal/venice"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	dbConn, err := db.Init(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	rdb := redisdb.NewClient(cfg)

	profiles := profile.NewStore(dbConn)
	goals := goal.NewStore(dbConn)
	interactions := interaction.NewLog(dbConn, rdb, profiles, nil)
	analyzer := pattern.NewAnalyzer(dbConn, interactions, cfg.Coaching.AnalysisWindow)
	conversations := conversation.NewManager(dbConn)
	generator := venice.NewClient(cfg.Venice)

	engine := coaching.NewEngine(
		profiles,
		goals,
		interactions,
		analyzer,
		conversations,
		generator,
		time.Duration(cfg.Venice.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Coaching.ProactiveAfterHours)*time.Hour,
	)

	worker := coaching.NewWorker(engine, cfg.Coaching.AutonomyIntervalMinutes)
	worker.Start()
	defer worker.Stop()
	log.Printf("[Main] Autonomy worker started (every %d minutes)", cfg.Coaching.AutonomyIntervalMinutes)

	r := api.SetupRouter(cfg, engine)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Starting server on %s\n", addr)
	if err := r.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
