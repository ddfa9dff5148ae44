package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/culturelog/internal/config"
	"github.com/John-Robertt/culturelog/internal/domain"
	"github.com/John-Robertt/culturelog/internal/infra/fsx"
	"github.com/John-Robertt/culturelog/internal/logging"
	"github.com/John-Robertt/culturelog/internal/logstore"
	"github.com/John-Robertt/culturelog/internal/scrape"
)

// autoSaveName 是 --save 不带值时的占位，实际文件名按时间生成。
const autoSaveName = "auto"

func newScrapeCmd(root *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		profile     string
		save        string
		addLog      string
		concurrency int
		noCache     bool
	)
	cmd := &cobra.Command{
		Use:   "scrape <url>...",
		Short: "抓取演出页面并抽取结构化信息",
		Long: `抓取一个或多个演出详情页，抽取标题/日期/场馆/出演/曲目/票价。

stdout 是终端且只有一个 URL 时输出表格；否则输出 JSON（多个 URL 时为批量报告）。
任意 URL 失败时退出码为 1。`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := config.CLIArgs{
				Profile:        profile,
				ProfileSet:     cmd.Flags().Changed("profile"),
				Concurrency:    concurrency,
				ConcurrencySet: cmd.Flags().Changed("concurrency"),
				NoCache:        noCache,
				NoCacheSet:     cmd.Flags().Changed("no-cache"),
			}
			eff, err := loadConfig(cmd, root, cli)
			if err != nil {
				emitReport(stdout, stderr, configErrorReport(err))
				return exitError{code: 1}
			}

			log := logging.Setup(eff.LogLevel, eff.LogFormat, stderr)
			svc, err := newScrapeService(eff, log, nil)
			if err != nil {
				return err
			}

			var obs scrape.Observer
			if len(args) > 1 && isTTY(stderr) {
				ui := newProgressUI(stderr, eff)
				defer ui.Stop()
				obs = ui
			}
			rr := scrape.Batch(cmd.Context(), svc, args, eff.Concurrency, obs)

			if cmd.Flags().Changed("save") {
				path, err := writeSaveFile(save, rr, time.Now())
				if err != nil {
					fmt.Fprintf(stderr, "保存失败：%v\n", err)
					emitResult(stdout, stderr, rr)
					return exitError{code: 1}
				}
				fmt.Fprintf(stderr, "已保存：%s\n", path)
			}

			if addLog != "" {
				n, err := saveLogs(cmd.Context(), eff.DSN, addLog, rr)
				if err != nil {
					fmt.Fprintf(stderr, "写入观演记录失败：%v\n", err)
					emitResult(stdout, stderr, rr)
					return exitError{code: 1}
				}
				fmt.Fprintf(stderr, "已写入观演记录：%d 条（%s）\n", n, eff.DSN)
			}

			emitResult(stdout, stderr, rr)
			if rr.Summary.Failed > 0 {
				return exitError{code: 1}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&profile, "profile", "", "规则集：full|compact（默认 full）")
	f.IntVar(&concurrency, "concurrency", 0, "并发抓取数（1-32）")
	f.BoolVar(&noCache, "no-cache", false, "不读写页面缓存")
	f.StringVar(&save, "save", "", "把结果写入 JSON 文件：--save 或 --save=<file>（默认 concert_YYYYMMDD_HHMMSS.json）")
	f.Lookup("save").NoOptDefVal = autoSaveName
	f.StringVar(&addLog, "add-log", "", "把抽取成功的记录以该分类写入观演记录库（store.dsn）")
	return cmd
}

// emitResult 决定 stdout 的形态：
// - 单个 URL：TTY 输出表格，非 TTY 输出记录 JSON
// - 多个 URL：TTY 输出摘要表，非 TTY 输出 BatchReport JSON
func emitResult(stdout, stderr io.Writer, rr domain.BatchReport) {
	if len(rr.Items) == 1 {
		it := rr.Items[0]
		if it.Status != domain.StatusOK || it.Record == nil {
			fmt.Fprintf(stderr, "%s %s: %s\n", it.URL, it.ErrorCode, it.ErrorMsg)
			if !isTTY(stdout) {
				writeJSON(stdout, rr)
			}
			return
		}
		if isTTY(stdout) {
			renderRecord(stdout, *it.Record)
			return
		}
		writeJSON(stdout, it.Record)
		return
	}
	emitReport(stdout, stderr, rr)
}

func emitReport(stdout, stderr io.Writer, rr domain.BatchReport) {
	if isTTY(stdout) {
		renderSummary(stdout, rr)
	} else {
		writeJSON(stdout, rr)
	}
	fmt.Fprintf(stderr, "完成：ok=%d failed=%d\n", rr.Summary.OK, rr.Summary.Failed)
}

func configErrorReport(err error) domain.BatchReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.BatchReport{
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// saveLogs 把成功的条目写成观演记录，返回写入条数；失败条目跳过。
func saveLogs(ctx context.Context, dsn, category string, rr domain.BatchReport) (int, error) {
	store, err := logstore.Open(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()

	n := 0
	for _, it := range rr.Items {
		if it.Status != domain.StatusOK || it.Record == nil {
			continue
		}
		if _, err := store.Create(ctx, domain.LogFromRecord(*it.Record, category)); err != nil {
			return n, fmt.Errorf("%s：%w", it.URL, err)
		}
		n++
	}
	return n, nil
}

// writeSaveFile 单个 URL 保存记录本身，多个 URL 保存完整报告。
func writeSaveFile(name string, rr domain.BatchReport, now time.Time) (string, error) {
	if name == "" || name == autoSaveName {
		name = "concert_" + now.Format("20060102_150405") + ".json"
	}
	var v any = rr
	if len(rr.Items) == 1 && rr.Items[0].Record != nil {
		v = rr.Items[0].Record
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	b = append(b, '\n')

	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	if err := fsx.WriteFileAtomicReplace(filepath.Dir(abs), filepath.Base(abs), b); err != nil {
		return "", err
	}
	return abs, nil
}
