package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clan_war_bot/internal/app"
	"clan_war_bot/internal/bot"
	"clan_war_bot/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	app.SetupEnvironment()

	cmd := &cli.Command{
		Name:  "clan_war_bot",
		Usage: "Clash Royale clan war Discord bot",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Interval between war tracking cycles (e.g., 5m, 10m)",
				Value: 5 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run one tracking cycle and exit (don't start the bot)",
			},
		},
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "export",
				Usage:  "Write the dashboard export once and exit",
				Action: runExport,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("clan_war_bot failed")
	}
}

func runBot(ctx context.Context, c *cli.Command) error {
	interval := c.Duration("interval")
	runOnce := c.Bool("once")
	if err := validateInterval(interval); err != nil {
		return err
	}

	log.Info().
		Dur("interval", interval).
		Bool("run_once", runOnce).
		Msg("Starting clan war bot")

	config, err := app.LoadConfig()
	if err != nil {
		return err
	}
	config.UpdateInterval = interval

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := buildServices(ctx, config)
	if err != nil {
		return err
	}
	defer services.Close()

	if config.MetricsAddr != "" {
		metricsServer, err := server.Start(config.MetricsAddr, server.NewHandler(services.registry))
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Close(shutdownCtx)
		}()
	}

	// Run initial processing
	log.Info().Msg("Running initial war tracking")
	services.runCycle(ctx)

	if runOnce {
		log.Info().Msg("Run-once mode: exiting after initial tracking")
		return nil
	}

	discord, err := bot.NewApp(config.DiscordToken, services.bot)
	if err != nil {
		return err
	}
	if err := discord.Run(); err != nil {
		return err
	}
	defer discord.Close()

	go bot.RunReminders(ctx, config.ReminderInterval, services.bot, discord.Send)

	log.Info().
		Dur("interval", interval).
		Dur("reminder_interval", config.ReminderInterval).
		Msg("Up and running")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
			return nil
		case <-ticker.C:
			services.runCycle(ctx)
		}
	}
}

func runExport(ctx context.Context, c *cli.Command) error {
	config, err := app.LoadConfig()
	if err != nil {
		return err
	}

	services, err := buildServices(ctx, config)
	if err != nil {
		return err
	}
	defer services.Close()

	if err := services.exporter.Export(ctx); err != nil {
		return err
	}
	log.Info().Str("path", config.DashboardExportPath).Msg("Dashboard exported")
	return nil
}

func validateInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %v", interval)
	}
	return nil
}
