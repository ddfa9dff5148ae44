package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/culturelog/internal/domain"
	"github.com/John-Robertt/culturelog/internal/logstore"
)

const testPage = `<html><head><title>티켓 예매</title></head><body>
<h1>2025 신년음악회 빈 필하모닉</h1>
<p>공연일시 2025.01.15</p>
<p>R석 150,000원</p>
<script>var x = "S석 1원";</script>
</body></html>`

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/concert" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_ScrapeSingleURL_NoTTY_PrintsRecordJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	srv := newPageServer(t)

	code, stdout, stderr := run(t, "scrape", srv.URL+"/concert", "--no-cache", "--log-level", "error")
	if code != 0 {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr)
	}

	var rec domain.ConcertRecord
	if err := json.Unmarshal([]byte(stdout), &rec); err != nil {
		t.Fatalf("stdout 不是合法的记录 JSON：%v\nstdout=%q", err, stdout)
	}
	if rec.Title != "2025 신년음악회 빈 필하모닉" {
		t.Fatalf("title 不符合预期：%q", rec.Title)
	}
	if rec.Date != "2025.01.15" {
		t.Fatalf("date 不符合预期：%q", rec.Date)
	}
	if len(rec.Price) != 1 || rec.Price[0] != "R석 150,000원" {
		t.Fatalf("price 不符合预期：%v", rec.Price)
	}
	if rec.SourceURL != srv.URL+"/concert" {
		t.Fatalf("sourceUrl 不符合预期：%q", rec.SourceURL)
	}
}

func TestCLI_ScrapeMany_ReportAndExitCode(t *testing.T) {
	t.Chdir(t.TempDir())
	srv := newPageServer(t)

	code, stdout, stderr := run(t, "scrape", srv.URL+"/concert", srv.URL+"/missing", "--no-cache", "--concurrency", "2", "--log-level", "error")
	if code != 1 {
		t.Fatalf("有失败时期望退出码 1，实际 %d", code)
	}

	var rr domain.BatchReport
	if err := json.Unmarshal([]byte(stdout), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 BatchReport JSON：%v\nstdout=%q", err, stdout)
	}
	if rr.Summary.OK != 1 || rr.Summary.Failed != 1 {
		t.Fatalf("summary 不符合预期：%+v", rr.Summary)
	}
	if rr.Profile != "full" {
		t.Fatalf("profile 不符合预期：%q", rr.Profile)
	}
	failed := rr.Items[1]
	if failed.URL != srv.URL+"/missing" || failed.ErrorCode != domain.ErrCodeFetchFailed {
		t.Fatalf("失败条目不符合预期：%+v", failed)
	}
	if !strings.Contains(stderr, "完成：ok=1 failed=1") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr)
	}
}

func TestCLI_ScrapeSave(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	srv := newPageServer(t)

	code, _, stderr := run(t, "scrape", srv.URL+"/concert", "--no-cache", "--save=out/concert.json", "--log-level", "error")
	if code != 0 {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out", "concert.json"))
	if err != nil {
		t.Fatalf("读取保存文件失败：%v", err)
	}
	if !strings.Contains(string(b), "신년음악회") {
		t.Fatalf("保存的 JSON 应保留韩文原文：%s", b)
	}
}

func TestCLI_ScrapeAddLog(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	srv := newPageServer(t)

	code, _, stderr := run(t, "scrape", srv.URL+"/concert", srv.URL+"/missing", "--no-cache", "--add-log=concert", "--log-level", "error")
	if code != 1 {
		t.Fatalf("有失败时期望退出码 1，实际 %d\nstderr=%s", code, stderr)
	}
	if !strings.Contains(stderr, "已写入观演记录：1 条") {
		t.Fatalf("stderr 缺少写入摘要：%q", stderr)
	}

	ctx := context.Background()
	store, err := logstore.Open(ctx, filepath.Join(dir, "culture_logs.db"))
	if err != nil {
		t.Fatalf("打开记录库失败：%v", err)
	}
	defer func() { _ = store.Close() }()
	logs, total, err := store.List(ctx, logstore.ListQuery{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if total != 1 || len(logs) != 1 {
		t.Fatalf("只有成功的条目应写入：total=%d", total)
	}
	got := logs[0]
	if got.Title != "2025 신년음악회 빈 필하모닉" || got.Category != "concert" || got.SourceURL != srv.URL+"/concert" {
		t.Fatalf("写入的记录不符合预期：%+v", got)
	}
	if got.Rating != nil || len(got.Price) != 1 {
		t.Fatalf("评分应留空、票价应沿用抽取结果：%+v", got)
	}
}

func TestCLI_ConfigNotFound(t *testing.T) {
	t.Chdir(t.TempDir())

	code, stdout, _ := run(t, "--config", "missing.yaml", "scrape", "https://x.test/1")
	if code != 1 {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	var rr domain.BatchReport
	if err := json.Unmarshal([]byte(stdout), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 BatchReport JSON：%v", err)
	}
	if len(rr.Items) != 1 || rr.Items[0].ErrorCode != "config_not_found" {
		t.Fatalf("条目不符合预期：%+v", rr.Items)
	}
}

func TestCLI_ScrapeRequiresURL(t *testing.T) {
	code, _, stderr := run(t, "scrape")
	if code == 0 {
		t.Fatalf("缺少 URL 时不应成功")
	}
	if !strings.Contains(stderr, "错误") {
		t.Fatalf("stderr 应包含错误信息：%q", stderr)
	}
}

func TestWriteSaveFile_DefaultName(t *testing.T) {
	t.Chdir(t.TempDir())
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := domain.ConcertRecord{Title: "A", Performers: []string{}, Program: []string{}, Price: []string{}}
	rr := domain.BatchReport{Items: []domain.ItemResult{{URL: "https://x.test", Status: domain.StatusOK, Record: &rec}}}

	path, err := writeSaveFile(autoSaveName, rr, now)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if filepath.Base(path) != "concert_20250102_030405.json" {
		t.Fatalf("默认文件名不符合预期：%s", path)
	}
	b, _ := os.ReadFile(path)
	var got domain.ConcertRecord
	if err := json.Unmarshal(b, &got); err != nil || got.Title != "A" {
		t.Fatalf("单个 URL 应保存记录本身：%s", b)
	}
}
