package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ManuelReschke/GuildPay/app/controllers"
	"github.com/ManuelReschke/GuildPay/internal/pkg/billing"
	"github.com/ManuelReschke/GuildPay/internal/pkg/cache"
	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
	"github.com/ManuelReschke/GuildPay/internal/pkg/database"
	"github.com/ManuelReschke/GuildPay/internal/pkg/discord"
	"github.com/ManuelReschke/GuildPay/internal/pkg/jobqueue"
	"github.com/ManuelReschke/GuildPay/internal/pkg/router"
	"github.com/ManuelReschke/GuildPay/internal/pkg/session"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, the Discord bot and the role workers",
		Long: `Run every GuildPay component in one process.

The fiber listener serves the Stripe Connect round trip and the webhook,
the Discord bot answers slash commands and the role workers apply the
grants and revocations the webhook queued.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	database.SetupDatabase()
	cache.SetupCache()
	redisClient := cache.GetClient()
	defer func() {
		if err := cache.Close(); err != nil {
			fiberlog.Warnf("[Cache] Close error: %v", err)
		}
	}()

	signer, err := billing.NewStateSigner(cfg.SessionSecret, cfg.StateTTL)
	if err != nil {
		return err
	}
	opts := billing.Options{
		PublicDomain:   cfg.PublicDomain,
		DefaultGuildID: cfg.DiscordGuildID,
		DefaultRoleID:  cfg.DiscordSubscriberRoleID,
	}
	repo := billing.NewRepository(database.GetDB())
	provider := billing.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeClientID)
	service := billing.NewService(repo, provider, signer, billing.NewRedisNonceStore(redisClient), opts)

	dg, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}
	bot := discord.NewBot(dg, discord.NewHandler(service), cfg.DiscordGuildID)

	queue := jobqueue.NewQueue(redisClient, cfg.RoleQueueWorkers, discord.NewRoleMutator(dg), nil)
	reconciler := billing.NewReconciler(repo, queue, opts)
	queue.SetOutcomeSink(reconciler)
	manager := jobqueue.NewManager(queue)

	app := NewApplication(router.Dependencies{
		OAuth:           controllers.NewOAuthController(service),
		Webhook:         controllers.NewWebhookController(repo, reconciler, cfg.StripeWebhookSecret),
		Plans:           service,
		SessionStorage:  session.NewRedisStorage(),
		MetricsUser:     cfg.MetricsUser,
		MetricsPassword: cfg.MetricsPassword,
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fiberlog.Infof("[HTTP] Listening on %s (public domain %s)", cfg.ListenAddr(), cfg.PublicDomain)
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	g.Go(func() error {
		return manager.Run(ctx)
	})
	g.Go(func() error {
		if err := bot.Run(ctx); err != nil {
			return fmt.Errorf("discord bot: %w", err)
		}
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fiberlog.Info("[GuildPay] Shutdown complete")
	return nil
}
