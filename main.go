package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	rotatelogs "github.com/iproj/file-rotatelogs"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"campus-transit/internal"
	"campus-transit/web"
)

func main() {
	var err error

	runtime.GOMAXPROCS(4)

	log.SetFormatter(&log.TextFormatter{})

	// Load .env
	err = godotenv.Load()
	if err != nil {
		log.Error(err)
	}

	setupLogRotation()

	// connect to database
	database := internal.DatabaseConnection{
		URI:    os.Getenv("MONGO_URI"),
		DB:     os.Getenv("MAIN_DB"),
		Logger: log.New(),
	}

	database.Connect()

	handleSignals(&database)

	r := web.NewRouter(database.MongoDB)

	// fully load and apply routes
	r.Init()
	r.Listen(os.Getenv("LISTEN"))
}

// setupLogRotation mirrors stdout into a daily rotating file when LOG_DIR
// is set.
func setupLogRotation() {
	dir := os.Getenv("LOG_DIR")
	if dir == "" {
		return
	}

	writer, err := rotatelogs.New(
		filepath.Join(dir, "campus-transit.%Y%m%d.log"),
		rotatelogs.WithMaxAge(30*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		log.Errorf("unable to set up log rotation: %s", err)
		return
	}

	log.SetOutput(io.MultiWriter(os.Stdout, writer))
}

func handleSignals(database *internal.DatabaseConnection) {
	// Signal Termination if using CLI
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT)
	signal.Notify(signals, syscall.SIGTERM)
	go func() {
		for range signals {
			shutdown(database)
		}
	}()
}

func shutdown(database *internal.DatabaseConnection) {
	fmt.Println()
	log.Warnf("%d threads at exit.", runtime.NumGoroutine())
	log.Warn("Shutting down Campus Transit...")
	database.Disconnect()
	os.Exit(1)
}
