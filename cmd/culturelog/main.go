package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/culturelog/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError 表示结果已经输出，只需要以 code 退出（不再打印错误）。
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "错误：%v\n", err)
	return 1
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "culturelog",
		Short:         "演出页面抓取与观演记录",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "配置文件路径（默认读取 ./culturelog.yaml，若存在）")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "日志级别：trace|debug|info|warn|error")

	root.AddCommand(newScrapeCmd(opts, stdout, stderr))
	root.AddCommand(newServeCmd(opts, stderr))
	return root
}

// loadConfig 合并配置文件、环境变量与 CLI 参数；cli 中未显式设置的项不覆盖。
func loadConfig(cmd *cobra.Command, opts *rootOptions, cli config.CLIArgs) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	cli.ConfigPath = opts.configPath
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cli.LogLevel = opts.logLevel
		cli.LogLevelSet = true
	}
	return config.LoadEffective(cwd, cli)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
