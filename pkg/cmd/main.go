package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"

	pkg "github.com/boardwalkhq/boardwalk/pkg/internal"
	"github.com/boardwalkhq/boardwalk/pkg/internal/database"
	"github.com/boardwalkhq/boardwalk/pkg/internal/services"
	"github.com/boardwalkhq/boardwalk/pkg/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	fmt.Println(color.New(color.FgHiCyan, color.Bold).Sprintf("Boardwalk Transcripts v%s", pkg.AppVersion))

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Build the provider transcript strategies
	services.SetupProviders()

	// Server
	web.NewServer()
	go web.Listen()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.AddFunc("@every 15m", services.DoPendingTranscriptSweep)
	quartz.Start()

	// Messages
	log.Info().Msgf("Boardwalk Transcripts v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Boardwalk Transcripts v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
}
