package main

import (
	"fmt"
	"io"
	"net"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/culturelog/internal/api"
	"github.com/John-Robertt/culturelog/internal/config"
	"github.com/John-Robertt/culturelog/internal/logging"
	"github.com/John-Robertt/culturelog/internal/logstore"
	"github.com/John-Robertt/culturelog/internal/metrics"
	"github.com/John-Robertt/culturelog/internal/photos"
	"github.com/John-Robertt/culturelog/internal/tasks"
)

func newServeCmd(root *rootOptions, stderr io.Writer) *cobra.Command {
	var (
		addr    string
		profile string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP API（抓取任务 + 观演记录）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eff, err := loadConfig(cmd, root, config.CLIArgs{
				Addr:       addr,
				AddrSet:    cmd.Flags().Changed("addr"),
				Profile:    profile,
				ProfileSet: cmd.Flags().Changed("profile"),
			})
			if err != nil {
				return err
			}

			log := logging.Setup(eff.LogLevel, eff.LogFormat, stderr)
			if zerolog.GlobalLevel() > zerolog.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}
			return serve(cmd, eff, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址（默认 :5000）")
	cmd.Flags().StringVar(&profile, "profile", "", "规则集：full|compact")
	return cmd
}

func serve(cmd *cobra.Command, eff config.EffectiveConfig, log zerolog.Logger) error {
	ctx := cmd.Context()
	m := metrics.New()

	svc, err := newScrapeService(eff, log, m)
	if err != nil {
		return err
	}

	store, err := logstore.Open(ctx, eff.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ps := photos.Store{UploadDir: eff.UploadDir, ThumbDir: eff.ThumbDir, Logger: log}
	if err := ps.Init(); err != nil {
		return err
	}

	tracker, closeTracker, err := newTracker(ctx, eff)
	if err != nil {
		return err
	}
	defer func() { _ = closeTracker() }()

	runner := tasks.NewRunner(ctx, tracker, svc, log, m)
	router := api.NewRouter(api.Deps{
		Logs:        store,
		Photos:      ps,
		Submit:      runner,
		Tasks:       runner.Tracker(),
		Metrics:     m,
		Logger:      log,
		CORSOrigins: eff.CORSOrigins,
		AllowReset:  eff.AllowReset,
		UploadDir:   eff.UploadDir,
		ThumbDir:    eff.ThumbDir,
	})

	ln, err := net.Listen("tcp", eff.Addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败：%w", eff.Addr, err)
	}
	log.Info().
		Str("db", eff.DSN).
		Str("uploads", eff.UploadDir).
		Str("tasks", eff.TaskBackend).
		Str("profile", eff.Rules.Profile).
		Bool("allow_reset", eff.AllowReset).
		Msg("配置已加载")

	err = api.Serve(ctx, ln, router, log)
	runner.Wait()
	return err
}
